package blob_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbal/internal/blob"
	"dbal/internal/blob/memory"
)

func TestWithKeyPrefixNoopWhenEmpty(t *testing.T) {
	inner := memory.New()
	wrapped := blob.WithKeyPrefix(inner, "")
	assert.Same(t, blob.Store(inner), wrapped)
}

func TestWithKeyPrefixNamespacesKeys(t *testing.T) {
	inner := memory.New()
	wrapped := blob.WithKeyPrefix(inner, "tenant-1")
	ctx := context.Background()

	meta, err := wrapped.Upload(ctx, "doc.txt", []byte("hi"), blob.UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "doc.txt", meta.Key)

	// The inner store actually stores under the prefixed key.
	_, err = inner.Download(ctx, "tenant-1/doc.txt", blob.DownloadOptions{})
	require.NoError(t, err)

	// Not visible at the bare key on the inner store.
	_, err = inner.Download(ctx, "doc.txt", blob.DownloadOptions{})
	require.Error(t, err)

	ok, err := wrapped.Exists(ctx, "doc.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWithKeyPrefixListStripsPrefix(t *testing.T) {
	inner := memory.New()
	wrapped := blob.WithKeyPrefix(inner, "tenant-1")
	ctx := context.Background()

	_, err := wrapped.Upload(ctx, "a.txt", []byte("a"), blob.UploadOptions{})
	require.NoError(t, err)
	_, err = wrapped.Upload(ctx, "b.txt", []byte("b"), blob.UploadOptions{})
	require.NoError(t, err)

	result, err := wrapped.List(ctx, blob.ListOptions{})
	require.NoError(t, err)
	keys := make([]string, len(result.Items))
	for i, m := range result.Items {
		keys[i] = m.Key
	}
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, keys)
}

func TestWithKeyPrefixIsolatesTenants(t *testing.T) {
	inner := memory.New()
	a := blob.WithKeyPrefix(inner, "tenant-a")
	b := blob.WithKeyPrefix(inner, "tenant-b")
	ctx := context.Background()

	_, err := a.Upload(ctx, "doc.txt", []byte("a-data"), blob.UploadOptions{})
	require.NoError(t, err)

	ok, err := b.Exists(ctx, "doc.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}
