package storage

import (
	"context"
	"errors"
	"io"

	"github.com/nutriscan-backend/internal/config"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
)

// BlobStore holds uploaded image bytes addressed by storage filename.
// Writes happen once per upload; reads and deletes use the same name.
// The store has no transactional semantics of its own.
type BlobStore interface {
	// Save writes the blob under name, replacing nothing: names are
	// derived from fresh file ids and never reused.
	Save(ctx context.Context, name string, r io.Reader) error
	// Open returns a reader for the blob plus its size in bytes.
	// Returns ErrBlobNotFound if the name is unknown.
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
	// Delete removes the blob. Deleting an unknown name returns
	// ErrBlobNotFound.
	Delete(ctx context.Context, name string) error
}

// New builds the blob store selected by the storage config.
func New(ctx context.Context, cfg config.StorageConfig) (BlobStore, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.LocalDir)
	case "s3":
		return NewS3Store(ctx, cfg.Bucket, cfg.Region)
	default:
		return nil, errors.New("unsupported storage driver: " + cfg.Driver)
	}
}
