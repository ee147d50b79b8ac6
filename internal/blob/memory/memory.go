// Package memory implements the in-memory blob backend (spec §4.3,
// component C10): a map from key to stored bytes behind a single exclusive
// lock, primarily useful for tests and ephemeral caches.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"dbal/internal/blob"
	"dbal/internal/dbalerr"
)

type object struct {
	data         []byte
	contentType  string
	etag         string
	lastModified time.Time
	metadata     map[string]string
}

// Store is a map-backed blob.Store. The zero value is not usable; use New.
type Store struct {
	mu      sync.Mutex
	objects map[string]object
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{objects: make(map[string]object)}
}

func etagOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *Store) toMetadata(key string, o object) blob.Metadata {
	return blob.Metadata{
		Key: key, Size: int64(len(o.data)), ContentType: o.contentType,
		ETag: o.etag, LastModified: o.lastModified, CustomMetadata: o.metadata,
	}
}

// Upload implements blob.Store.
func (s *Store) Upload(_ context.Context, key string, data []byte, opts blob.UploadOptions) (blob.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; exists && !opts.ShouldOverwrite() {
		return blob.Metadata{}, dbalerr.Conflict("key %q already exists", key)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	o := object{data: append([]byte(nil), data...), contentType: contentType, etag: etagOf(data), lastModified: time.Now(), metadata: opts.Metadata}
	s.objects[key] = o
	return s.toMetadata(key, o), nil
}

// UploadStream implements blob.Store.
func (s *Store) UploadStream(ctx context.Context, key string, r io.Reader, opts blob.UploadOptions) (blob.Metadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return blob.Metadata{}, dbalerr.Internal("reading upload stream: %v", err)
	}
	return s.Upload(ctx, key, data, opts)
}

// Download implements blob.Store.
func (s *Store) Download(_ context.Context, key string, opts blob.DownloadOptions) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.objects[key]
	if !ok {
		return nil, dbalerr.NotFound("key %q not found", key)
	}
	return sliceRange(o.data, opts)
}

func sliceRange(data []byte, opts blob.DownloadOptions) ([]byte, error) {
	size := int64(len(data))
	if opts.Offset == nil {
		return data, nil
	}
	offset := *opts.Offset
	if offset >= size {
		return nil, dbalerr.ValidationError("offset %d is beyond object size %d", offset, size)
	}
	end := size
	if opts.Length != nil {
		end = offset + *opts.Length
		if end > size {
			end = size
		}
	}
	return data[offset:end], nil
}

// DownloadStream implements blob.Store.
func (s *Store) DownloadStream(ctx context.Context, key string, opts blob.DownloadOptions) (io.ReadCloser, error) {
	data, err := s.Download(ctx, key, opts)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete implements blob.Store.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return dbalerr.NotFound("key %q not found", key)
	}
	delete(s.objects, key)
	return nil
}

// Exists implements blob.Store.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

// GetMetadata implements blob.Store.
func (s *Store) GetMetadata(_ context.Context, key string) (blob.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	if !ok {
		return blob.Metadata{}, dbalerr.NotFound("key %q not found", key)
	}
	return s.toMetadata(key, o), nil
}

// List implements blob.Store.
func (s *Store) List(_ context.Context, opts blob.ListOptions) (blob.ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		if opts.Prefix != "" && !strings.HasPrefix(k, opts.Prefix) {
			continue
		}
		if opts.ContinuationToken != "" && k <= opts.ContinuationToken {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	maxKeys := opts.MaxKeysOrDefault()
	truncated := len(keys) > maxKeys
	if truncated {
		keys = keys[:maxKeys]
	}

	items := make([]blob.Metadata, len(keys))
	for i, k := range keys {
		items[i] = s.toMetadata(k, s.objects[k])
	}

	result := blob.ListResult{Items: items, IsTruncated: truncated}
	if truncated {
		result.NextToken = keys[len(keys)-1]
	}
	return result, nil
}

// Copy implements blob.Store.
func (s *Store) Copy(_ context.Context, srcKey, dstKey string) (blob.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[srcKey]
	if !ok {
		return blob.Metadata{}, dbalerr.NotFound("key %q not found", srcKey)
	}
	copied := object{data: append([]byte(nil), o.data...), contentType: o.contentType, etag: o.etag, lastModified: time.Now(), metadata: o.metadata}
	s.objects[dstKey] = copied
	return s.toMetadata(dstKey, copied), nil
}

// GeneratePresignedURL implements blob.Store. The memory backend has no
// wire protocol, so it always returns CapabilityNotSupported.
func (s *Store) GeneratePresignedURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", dbalerr.CapabilityNotSupported("memory backend does not support presigned URLs")
}

// TotalSize implements blob.Store.
func (s *Store) TotalSize(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, o := range s.objects {
		total += int64(len(o.data))
	}
	return total, nil
}

// ObjectCount implements blob.Store.
func (s *Store) ObjectCount(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.objects)), nil
}
