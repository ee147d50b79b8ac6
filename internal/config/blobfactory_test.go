package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbal/internal/blob"
)

func TestNewBlobStoreMemory(t *testing.T) {
	store, err := NewBlobStore(&BlobConfig{Backend: "memory"})
	require.NoError(t, err)
	require.NotNil(t, store)
}

func TestNewBlobStoreUnknownBackend(t *testing.T) {
	_, err := NewBlobStore(&BlobConfig{Backend: "tape"})
	require.Error(t, err)
}

func TestNewBlobStoreAppliesKeyPrefix(t *testing.T) {
	store, err := NewBlobStore(&BlobConfig{Backend: "memory", KeyPrefix: "tenant-1"})
	require.NoError(t, err)

	ctx := context.Background()
	meta, err := store.Upload(ctx, "doc.txt", []byte("hi"), blob.UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "doc.txt", meta.Key)

	ok, err := store.Exists(ctx, "doc.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}
