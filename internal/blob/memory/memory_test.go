package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbal/internal/blob"
)

func TestUploadDownloadRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	meta, err := s.Upload(ctx, "a.txt", []byte("hello world"), blob.UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(11), meta.Size)
	assert.NotEmpty(t, meta.ETag)

	data, err := s.Download(ctx, "a.txt", blob.DownloadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestUploadOverwriteFalseConflicts(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Upload(ctx, "a.txt", []byte("v1"), blob.UploadOptions{})
	require.NoError(t, err)

	no := false
	_, err = s.Upload(ctx, "a.txt", []byte("v2"), blob.UploadOptions{Overwrite: &no})
	require.Error(t, err)
}

func TestDownloadRange(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Upload(ctx, "a.txt", []byte("0123456789"), blob.UploadOptions{})
	require.NoError(t, err)

	offset, length := int64(2), int64(3)
	data, err := s.Download(ctx, "a.txt", blob.DownloadOptions{Offset: &offset, Length: &length})
	require.NoError(t, err)
	assert.Equal(t, "234", string(data))

	offsetBeyond := int64(100)
	_, err = s.Download(ctx, "a.txt", blob.DownloadOptions{Offset: &offsetBeyond})
	require.Error(t, err)
}

func TestDeleteNonexistentIsNotFound(t *testing.T) {
	s := New()
	err := s.Delete(context.Background(), "missing")
	require.Error(t, err)
}

func TestListPrefixAndPagination(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, k := range []string{"a/1", "a/2", "a/3", "b/1"} {
		_, err := s.Upload(ctx, k, []byte(k), blob.UploadOptions{})
		require.NoError(t, err)
	}

	result, err := s.List(ctx, blob.ListOptions{Prefix: "a/", MaxKeys: 2})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.True(t, result.IsTruncated)
	assert.NotEmpty(t, result.NextToken)

	next, err := s.List(ctx, blob.ListOptions{Prefix: "a/", ContinuationToken: result.NextToken})
	require.NoError(t, err)
	assert.Len(t, next.Items, 1)
	assert.False(t, next.IsTruncated)
}

func TestCopyAndStats(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Upload(ctx, "src", []byte("payload"), blob.UploadOptions{})
	require.NoError(t, err)

	meta, err := s.Copy(ctx, "src", "dst")
	require.NoError(t, err)
	assert.Equal(t, "dst", meta.Key)

	total, err := s.TotalSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(14), total)

	count, err := s.ObjectCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestPresignedURLUnsupported(t *testing.T) {
	s := New()
	_, err := s.GeneratePresignedURL(context.Background(), "k", 0)
	require.Error(t, err)
}
