package storage

import (
	"context"
	"io"
)

// UploadResult describes a stored snapshot object.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader abstracts the object store holding table snapshot archives.
// Delete exists for retention pruning of superseded snapshots.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}
