package storage

import (
	"context"
	"io"
)

// Storage defines the minimal interface for file storage backends.
// Intentionally simple: Put a file, Delete a file, get its URL.
type Storage interface {
	// Put stores a file under the given key and returns an error on failure.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error

	// Delete removes a file by its key. Returns nil if the file doesn't exist.
	Delete(ctx context.Context, key string) error

	// GetURL returns the public URL for a file given its key.
	GetURL(key string) string
}

// Config holds S3/MinIO connection settings.
type Config struct {
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	PublicURL   string
}
