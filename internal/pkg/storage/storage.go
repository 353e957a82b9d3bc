package storage

import (
	"context"
	"errors"
	"io"
)

var ErrInvalidPath = errors.New("invalid file path")

// FileStorage stores overtime proof photos.
type FileStorage interface {
	// Upload writes the content under key and returns the stored key.
	Upload(ctx context.Context, file io.Reader, key string, contentType string) (string, error)

	// Delete removes a stored object. Missing objects are not an error.
	Delete(ctx context.Context, key string) error

	// URL returns the public URL of a stored key.
	URL(key string) string

	Exists(ctx context.Context, key string) (bool, error)
}
