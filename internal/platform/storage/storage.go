// Package storage holds uploaded profile photos.
package storage

import (
	"context"
	"fmt"

	"taskini/internal/platform/config"
)

// Prefix is the logical folder every profile photo ref starts with.
const Prefix = "profiles/"

// Storage keeps opaque blobs addressed by ref ("profiles/<file>").
// Delete of a missing ref succeeds; Open of a missing ref returns common.ErrNotFound.
type Storage interface {
	Store(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Open(ctx context.Context, ref string) ([]byte, string, error)
	Delete(ctx context.Context, ref string) error
	Close() error
}

// Open builds the backend selected by STORAGE_DRIVER.
func Open(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageDriver {
	case config.StorageLocal, "":
		return NewLocalStorage(cfg.UploadDir)
	case config.StorageJetStream:
		s, err := NewJetStreamStorage(cfg.NatsURL, cfg.NatsBucket)
		if err != nil {
			return nil, err
		}
		if err := s.Init(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
