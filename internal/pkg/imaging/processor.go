package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
)

// ProcessedImage is the normalized output of a processed image
type ProcessedImage struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Config for image processing
type Config struct {
	MaxWidth   int // Max width for chat images (default 2000)
	MaxHeight  int // Max height for chat images (default 2000)
	AvatarSize int // Square side for avatars (default 500)
	Quality    int // JPEG quality 1-100 (default 85)
}

// DefaultConfig returns default processing config
func DefaultConfig() Config {
	return Config{
		MaxWidth:   2000,
		MaxHeight:  2000,
		AvatarSize: 500,
		Quality:    85,
	}
}

// Processor handles image processing
type Processor struct {
	config Config
}

// NewProcessor creates image processor
func NewProcessor(config Config) *Processor {
	return &Processor{config: config}
}

// MaxFileSize in bytes (10MB)
const MaxFileSize int64 = 10 * 1024 * 1024

// Process downscales an image to fit within the configured bounds.
func (p *Processor) Process(data []byte) (*ProcessedImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	result := &ProcessedImage{
		ContentType: mimeFromFormat(format),
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
	}

	resized := img
	if result.Width > p.config.MaxWidth || result.Height > p.config.MaxHeight {
		resized = imaging.Fit(img, p.config.MaxWidth, p.config.MaxHeight, imaging.Lanczos)
		result.Width = resized.Bounds().Dx()
		result.Height = resized.Bounds().Dy()
	}

	encoded, err := p.encode(resized, format)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	result.Data = encoded

	return result, nil
}

// ProcessAvatar center-crops an image to the configured square avatar size.
func (p *Processor) ProcessAvatar(data []byte) (*ProcessedImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	avatar := imaging.Fill(img, p.config.AvatarSize, p.config.AvatarSize, imaging.Center, imaging.Lanczos)

	encoded, err := p.encode(avatar, format)
	if err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", err)
	}

	return &ProcessedImage{
		Data:        encoded,
		ContentType: mimeFromFormat(format),
		Width:       avatar.Bounds().Dx(),
		Height:      avatar.Bounds().Dy(),
	}, nil
}

// encode encodes image to bytes
func (p *Processor) encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.config.Quality}); err != nil {
			return nil, err
		}
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
	default:
		// Default to JPEG for other formats
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.config.Quality}); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// mimeFromFormat matches what encode actually produces: everything that is
// not PNG is re-encoded as JPEG.
func mimeFromFormat(format string) string {
	if format == "png" {
		return "image/png"
	}
	return "image/jpeg"
}

// ExtFromContentType maps a mime type to a file extension.
func ExtFromContentType(contentType string) string {
	if contentType == "image/png" {
		return ".png"
	}
	return ".jpg"
}
