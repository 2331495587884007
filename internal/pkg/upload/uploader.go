package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/pingline/pingline-api/internal/pkg/imaging"
	"github.com/pingline/pingline-api/internal/pkg/storage"
)

// ErrUploadFailed is returned for any image upload failure so callers can
// distinguish it from persistence errors.
var ErrUploadFailed = errors.New("image upload failed")

// Kind selects the processing profile for an uploaded image.
type Kind string

const (
	KindMessage Kind = "messages"
	KindAvatar  Kind = "avatars"
)

// ImageUploader accepts base64 image payloads, normalizes them and stores
// them in object storage, returning the public URL.
type ImageUploader struct {
	store     storage.Storage
	processor *imaging.Processor
}

// NewImageUploader creates an image uploader
func NewImageUploader(store storage.Storage, processor *imaging.Processor) *ImageUploader {
	return &ImageUploader{store: store, processor: processor}
}

// Upload decodes a base64 (optionally data-URI) payload, processes it per
// kind and stores it. ownerID namespaces the object key.
func (u *ImageUploader) Upload(ctx context.Context, ownerID uuid.UUID, payload string, kind Kind) (string, error) {
	raw, err := decodeBase64Image(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if int64(len(raw)) > imaging.MaxFileSize {
		return "", fmt.Errorf("%w: image exceeds %d bytes", ErrUploadFailed, imaging.MaxFileSize)
	}

	var processed *imaging.ProcessedImage
	if kind == KindAvatar {
		processed, err = u.processor.ProcessAvatar(raw)
	} else {
		processed, err = u.processor.Process(raw)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	key := fmt.Sprintf("%s/%s/%s%s", kind, ownerID, uuid.NewString(), imaging.ExtFromContentType(processed.ContentType))
	if err := u.store.Put(ctx, key, bytes.NewReader(processed.Data), processed.ContentType); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Image upload failed")
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	return u.store.GetURL(key), nil
}

// decodeBase64Image strips an optional data-URI prefix and decodes the rest.
func decodeBase64Image(payload string) ([]byte, error) {
	if payload == "" {
		return nil, errors.New("empty image payload")
	}
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 {
			return nil, errors.New("malformed data URI")
		}
		payload = payload[idx+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}
