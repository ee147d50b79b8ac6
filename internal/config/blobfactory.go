package config

import (
	"dbal/internal/blob"
	"dbal/internal/blob/filesystem"
	"dbal/internal/blob/memory"
	"dbal/internal/blob/s3"
	"dbal/internal/dbalerr"
)

// NewBlobStore constructs the blob.Store named by cfg.Backend (spec §6.4),
// wrapped with cfg.KeyPrefix namespacing when set.
func NewBlobStore(cfg *BlobConfig) (blob.Store, error) {
	store, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	return blob.WithKeyPrefix(store, cfg.KeyPrefix), nil
}

func newBackend(cfg *BlobConfig) (blob.Store, error) {
	switch cfg.NormalizedBackend() {
	case BlobBackendMemory:
		return memory.New(), nil
	case BlobBackendFilesystem:
		return filesystem.New(cfg.Dir)
	case BlobBackendS3:
		return s3.New(s3.Config{
			Endpoint: cfg.Endpoint, Bucket: cfg.Bucket, Region: cfg.Region,
			AccessKey: cfg.AccessKey, SecretKey: cfg.SecretKey, UsePathStyle: cfg.UsePathStyle,
		})
	default:
		return nil, dbalerr.ValidationError("unknown blob backend %q", cfg.Backend)
	}
}
