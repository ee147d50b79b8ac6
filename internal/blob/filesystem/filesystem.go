// Package filesystem implements the local-disk blob backend (spec §4.3,
// component C11): keys map verbatim to paths beneath a canonicalized root,
// writes are atomic via a temp-file rename, and deletes prune now-empty
// parent directories back up to the root.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dbal/internal/blob"
	"dbal/internal/dbalerr"
)

// extensionContentTypes is the fixed extension -> MIME table spec §4.3
// requires when UploadOptions.ContentType is absent.
var extensionContentTypes = map[string]string{
	".txt": "text/plain", ".html": "text/html", ".htm": "text/html", ".css": "text/css",
	".csv": "text/csv", ".json": "application/json", ".xml": "application/xml",
	".png": "image/png", ".jpg": "image/jpeg", ".jpeg": "image/jpeg", ".gif": "image/gif",
	".svg": "image/svg+xml", ".webp": "image/webp",
	".mp3": "audio/mpeg", ".wav": "audio/wav", ".mp4": "video/mp4", ".webm": "video/webm",
	".zip": "application/zip", ".gz": "application/gzip", ".tar": "application/x-tar",
	".ttf": "font/ttf", ".woff": "font/woff", ".woff2": "font/woff2",
	".pdf": "application/pdf",
}

func guessContentType(key string) string {
	if ct, ok := extensionContentTypes[strings.ToLower(filepath.Ext(key))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Store is a blob.Store backed by a directory tree.
type Store struct {
	root string
}

// New creates (if absent) and opens root as a blob store root.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, dbalerr.Internal("creating blob root %q: %v", root, err)
	}
	canon, err := filepath.Abs(root)
	if err != nil {
		return nil, dbalerr.Internal("resolving blob root %q: %v", root, err)
	}
	canon, err = filepath.EvalSymlinks(canon)
	if err != nil {
		return nil, dbalerr.Internal("canonicalizing blob root %q: %v", root, err)
	}
	return &Store{root: canon}, nil
}

// resolve maps key to an absolute path beneath the root, rejecting any key
// that escapes it (spec §4.3: "..", leading "/", or a canonicalized path
// outside the root are all ValidationError).
func (s *Store) resolve(key string) (string, error) {
	if key == "" {
		return "", dbalerr.ValidationError("blob key must not be empty")
	}
	if strings.HasPrefix(key, "/") {
		return "", dbalerr.ValidationError("blob key %q must not be absolute", key)
	}
	if strings.Contains(key, "..") {
		return "", dbalerr.ValidationError("blob key %q must not contain \"..\"", key)
	}
	path := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", dbalerr.ValidationError("blob key %q escapes the store root", key)
	}
	return path, nil
}

func etagOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Upload implements blob.Store with an atomic temp-file-then-rename write.
func (s *Store) Upload(_ context.Context, key string, data []byte, opts blob.UploadOptions) (blob.Metadata, error) {
	path, err := s.resolve(key)
	if err != nil {
		return blob.Metadata{}, err
	}

	if !opts.ShouldOverwrite() {
		if _, statErr := os.Stat(path); statErr == nil {
			return blob.Metadata{}, dbalerr.Conflict("key %q already exists", key)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return blob.Metadata{}, dbalerr.Internal("creating parent directories for %q: %v", key, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return blob.Metadata{}, dbalerr.Internal("writing temp file for %q: %v", key, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return blob.Metadata{}, dbalerr.Internal("renaming temp file for %q: %v", key, err)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = guessContentType(key)
	}
	return blob.Metadata{
		Key: key, Size: int64(len(data)), ContentType: contentType,
		ETag: etagOf(data), LastModified: time.Now(), CustomMetadata: opts.Metadata,
	}, nil
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
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dbalerr.NotFound("key %q not found", key)
		}
		return nil, dbalerr.Internal("reading %q: %v", key, err)
	}
	return sliceRange(data, opts)
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
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dbalerr.NotFound("key %q not found", key)
		}
		return nil, dbalerr.Internal("opening %q: %v", key, err)
	}
	if opts.Offset != nil {
		if _, err := f.Seek(*opts.Offset, io.SeekStart); err != nil {
			f.Close()
			return nil, dbalerr.ValidationError("seeking in %q: %v", key, err)
		}
	}
	if opts.Length != nil {
		return readCloserLimit{io.LimitReader(f, *opts.Length), f}, nil
	}
	return f, nil
}

type readCloserLimit struct {
	io.Reader
	closer io.Closer
}

func (r readCloserLimit) Close() error { return r.closer.Close() }

// Delete removes the file then prunes now-empty parent directories back up
// to (but not including) the root.
func (s *Store) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return dbalerr.NotFound("key %q not found", key)
		}
		return dbalerr.Internal("removing %q: %v", key, err)
	}

	dir := filepath.Dir(path)
	for dir != s.root && strings.HasPrefix(dir, s.root) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := os.Remove(dir); err != nil {
			break
		}
		dir = filepath.Dir(dir)
	}
	return nil
}

// Exists implements blob.Store.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, dbalerr.Internal("stat %q: %v", key, err)
}

// GetMetadata implements blob.Store, computing the ETag from file content.
// It reads the whole file on every call, so its cost grows with object size.
func (s *Store) GetMetadata(_ context.Context, key string) (blob.Metadata, error) {
	path, err := s.resolve(key)
	if err != nil {
		return blob.Metadata{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return blob.Metadata{}, dbalerr.NotFound("key %q not found", key)
		}
		return blob.Metadata{}, dbalerr.Internal("reading %q: %v", key, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return blob.Metadata{}, dbalerr.Internal("stat %q: %v", key, err)
	}
	return blob.Metadata{
		Key: key, Size: info.Size(), ContentType: guessContentType(key),
		ETag: etagOf(data), LastModified: info.ModTime(),
	}, nil
}

// List recursively walks the root, skipping ".tmp" files (spec §4.3: "ETag
// is not computed for listing").
func (s *Store) List(_ context.Context, opts blob.ListOptions) (blob.ListResult, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".tmp") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if opts.Prefix != "" && !strings.HasPrefix(key, opts.Prefix) {
			return nil
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return blob.ListResult{}, dbalerr.Internal("listing %q: %v", s.root, err)
	}
	sort.Strings(keys)

	if opts.ContinuationToken != "" {
		filtered := keys[:0]
		for _, k := range keys {
			if k > opts.ContinuationToken {
				filtered = append(filtered, k)
			}
		}
		keys = filtered
	}

	maxKeys := opts.MaxKeysOrDefault()
	truncated := len(keys) > maxKeys
	if truncated {
		keys = keys[:maxKeys]
	}

	items := make([]blob.Metadata, len(keys))
	for i, k := range keys {
		items[i] = blob.Metadata{Key: k}
	}

	result := blob.ListResult{Items: items, IsTruncated: truncated}
	if truncated {
		result.NextToken = keys[len(keys)-1]
	}
	return result, nil
}

// Copy implements blob.Store by reading the source and re-uploading.
func (s *Store) Copy(ctx context.Context, srcKey, dstKey string) (blob.Metadata, error) {
	data, err := s.Download(ctx, srcKey, blob.DownloadOptions{})
	if err != nil {
		return blob.Metadata{}, err
	}
	return s.Upload(ctx, dstKey, data, blob.UploadOptions{})
}

// GeneratePresignedURL implements blob.Store. The filesystem backend has no
// wire protocol, so presigned URLs are unsupported (spec §4.3: "Presigned
// URLs return the empty string").
func (s *Store) GeneratePresignedURL(_ context.Context, _ string, _ time.Duration) (string, error) {
	return "", nil
}

// TotalSize implements blob.Store.
func (s *Store) TotalSize(_ context.Context) (int64, error) {
	var total int64
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || strings.HasSuffix(path, ".tmp") {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, dbalerr.Internal("computing total size: %v", err)
	}
	return total, nil
}

// ObjectCount implements blob.Store.
func (s *Store) ObjectCount(ctx context.Context) (int64, error) {
	result, err := s.List(ctx, blob.ListOptions{MaxKeys: 1 << 30})
	if err != nil {
		return 0, err
	}
	return int64(len(result.Items)), nil
}
