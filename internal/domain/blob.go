package domain

import (
	"context"
	"time"
)

// BlobInfo describes one stored object.
type BlobInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// BlobStore abstracts raw file byte storage addressed by key.
// Put returns the public retrieval URL of the stored object.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
}
