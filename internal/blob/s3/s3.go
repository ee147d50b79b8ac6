// Package s3 implements the S3-compatible blob backend (spec §4.3, component
// C12): every request is canonicalized and signed with a hand-rolled AWS
// Signature Version 4 implementation (no aws-sdk-go-v2 dependency) and sent
// over net/http to a path-style or virtual-hosted-style endpoint.
package s3

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dbal/internal/blob"
	"dbal/internal/dbalerr"
)

// Config describes how to reach an S3-compatible endpoint (spec §4.3).
type Config struct {
	Endpoint     string
	Bucket       string
	Region       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	UseSSL       bool
}

// Store is a blob.Store backed by an S3-compatible HTTP endpoint. It holds
// only immutable config, so concurrent requests need no further locking
// (spec §5).
type Store struct {
	cfg     Config
	host    string
	client  *http.Client
	keyring *signingKeyCache
}

// New validates cfg and constructs a Store. The endpoint's scheme, if
// present, overrides cfg.UseSSL.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, dbalerr.ValidationError("s3 config requires endpoint and bucket")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	host := cfg.Endpoint
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		host = u.Host
		cfg.UseSSL = u.Scheme == "https"
	}
	return &Store{
		cfg:  cfg,
		host: host,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		keyring: newSigningKeyCache(),
	}, nil
}

func (s *Store) scheme() string {
	if s.cfg.UseSSL {
		return "https://"
	}
	return "http://"
}

// objectURL returns (path-for-signing, full-request-URL) for key, honoring
// path-style vs virtual-hosted addressing (spec §4.3).
func (s *Store) objectURL(key string) (canonicalPath, fullURL, host string) {
	encodedKey := pathEncodeKey(key)
	if s.cfg.UsePathStyle {
		canonicalPath = "/" + s.cfg.Bucket + "/" + encodedKey
		return canonicalPath, s.scheme() + s.host + canonicalPath, s.host
	}
	vhost := s.cfg.Bucket + "." + s.host
	canonicalPath = "/" + encodedKey
	return canonicalPath, s.scheme() + vhost + canonicalPath, vhost
}

func (s *Store) bucketURL() (canonicalPath, baseURL, host string) {
	if s.cfg.UsePathStyle {
		canonicalPath = "/" + s.cfg.Bucket
		return canonicalPath, s.scheme() + s.host + canonicalPath, s.host
	}
	vhost := s.cfg.Bucket + "." + s.host
	return "/", s.scheme() + vhost, vhost
}

func pathEncodeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// doSigned signs req with SigV4 and executes it.
func (s *Store) doSigned(ctx context.Context, method, canonicalPath, host string, query url.Values, headers map[string]string, body []byte) (*http.Response, error) {
	now := time.Now()
	signingKey := s.keyring.get(s.cfg.SecretKey, now.UTC().Format("20060102"), s.cfg.Region, "s3")
	result := sign(signingInput{
		method: method, canonicalPath: canonicalPath, query: query,
		headers:   mergeHostHeader(headers, host),
		payload:   body,
		region:    s.cfg.Region, accessKey: s.cfg.AccessKey, secretKey: s.cfg.SecretKey,
		service: "s3", timestamp: now, signingKey: signingKey,
	})

	reqURL := s.scheme() + host + canonicalPath
	if encoded := query.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, dbalerr.Internal("building s3 request: %v", err)
	}
	req.Host = host
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("x-amz-date", result.amzDate)
	req.Header.Set("x-amz-content-sha256", sha256Hex(body))
	req.Header.Set("Authorization", result.authorization)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, dbalerr.Timeout("s3 request to %q: %v", reqURL, err)
	}
	return resp, nil
}

func mergeHostHeader(headers map[string]string, host string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	out["host"] = host
	return out
}

// httpStatusError maps a response status to the uniform taxonomy (spec
// §4.3's "HTTP-status -> error mapping").
func httpStatusError(status int, key string) error {
	switch status {
	case 404:
		return dbalerr.NotFound("key %q not found", key)
	case 403:
		return dbalerr.Forbidden("forbidden for key %q", key)
	case 401:
		return dbalerr.Unauthorized("unauthorized for key %q", key)
	case 409:
		return dbalerr.Conflict("conflict for key %q", key)
	case 412, 400:
		return dbalerr.ValidationError("bad request for key %q", key)
	default:
		return dbalerr.Internal("s3 returned status %d for key %q", status, key)
	}
}

// Upload implements blob.Store.
func (s *Store) Upload(ctx context.Context, key string, data []byte, opts blob.UploadOptions) (blob.Metadata, error) {
	if !opts.ShouldOverwrite() {
		if exists, err := s.Exists(ctx, key); err != nil {
			return blob.Metadata{}, err
		} else if exists {
			return blob.Metadata{}, dbalerr.Conflict("key %q already exists", key)
		}
	}

	canonicalPath, _, host := s.objectURL(key)
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := map[string]string{"content-type": contentType}
	for k, v := range opts.Metadata {
		headers["x-amz-meta-"+strings.ToLower(k)] = v
	}

	resp, err := s.doSigned(ctx, http.MethodPut, canonicalPath, host, url.Values{}, headers, data)
	if err != nil {
		return blob.Metadata{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return blob.Metadata{}, httpStatusError(resp.StatusCode, key)
	}

	return blob.Metadata{
		Key: key, Size: int64(len(data)), ContentType: contentType,
		ETag: strings.Trim(resp.Header.Get("ETag"), `"`), LastModified: time.Now(),
		CustomMetadata: opts.Metadata,
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

// Download implements blob.Store with an optional Range header.
func (s *Store) Download(ctx context.Context, key string, opts blob.DownloadOptions) ([]byte, error) {
	canonicalPath, _, host := s.objectURL(key)
	headers := map[string]string{}
	if opts.Offset != nil {
		end := ""
		if opts.Length != nil {
			end = strconv.FormatInt(*opts.Offset+*opts.Length-1, 10)
		}
		headers["range"] = fmt.Sprintf("bytes=%d-%s", *opts.Offset, end)
	}

	resp, err := s.doSigned(ctx, http.MethodGet, canonicalPath, host, url.Values{}, headers, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		if resp.StatusCode == 416 {
			return nil, dbalerr.ValidationError("range not satisfiable for key %q", key)
		}
		return nil, httpStatusError(resp.StatusCode, key)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dbalerr.Internal("reading s3 response body: %v", err)
	}
	return data, nil
}

// DownloadStream implements blob.Store.
func (s *Store) DownloadStream(ctx context.Context, key string, opts blob.DownloadOptions) (io.ReadCloser, error) {
	canonicalPath, _, host := s.objectURL(key)
	headers := map[string]string{}
	if opts.Offset != nil {
		end := ""
		if opts.Length != nil {
			end = strconv.FormatInt(*opts.Offset+*opts.Length-1, 10)
		}
		headers["range"] = fmt.Sprintf("bytes=%d-%s", *opts.Offset, end)
	}
	resp, err := s.doSigned(ctx, http.MethodGet, canonicalPath, host, url.Values{}, headers, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		resp.Body.Close()
		return nil, httpStatusError(resp.StatusCode, key)
	}
	return resp.Body, nil
}

// Delete issues a HEAD before the DELETE to surface NotFound (spec §4.3:
// "S3 must issue a HEAD first to surface NotFound").
func (s *Store) Delete(ctx context.Context, key string) error {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return dbalerr.NotFound("key %q not found", key)
	}

	canonicalPath, _, host := s.objectURL(key)
	resp, err := s.doSigned(ctx, http.MethodDelete, canonicalPath, host, url.Values{}, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return httpStatusError(resp.StatusCode, key)
	}
	return nil
}

// Exists implements blob.Store via HEAD.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	canonicalPath, _, host := s.objectURL(key)
	resp, err := s.doSigned(ctx, http.MethodHead, canonicalPath, host, url.Values{}, nil, nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	default:
		return false, httpStatusError(resp.StatusCode, key)
	}
}

// GetMetadata implements blob.Store via HEAD.
func (s *Store) GetMetadata(ctx context.Context, key string) (blob.Metadata, error) {
	canonicalPath, _, host := s.objectURL(key)
	resp, err := s.doSigned(ctx, http.MethodHead, canonicalPath, host, url.Values{}, nil, nil)
	if err != nil {
		return blob.Metadata{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return blob.Metadata{}, httpStatusError(resp.StatusCode, key)
	}

	size, _ := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	lastModified, _ := time.Parse(time.RFC1123, resp.Header.Get("Last-Modified"))

	custom := map[string]string{}
	for h, vals := range resp.Header {
		lh := strings.ToLower(h)
		if strings.HasPrefix(lh, "x-amz-meta-") && len(vals) > 0 {
			custom[strings.TrimPrefix(lh, "x-amz-meta-")] = vals[0]
		}
	}

	return blob.Metadata{
		Key: key, Size: size, ContentType: resp.Header.Get("Content-Type"),
		ETag: strings.Trim(resp.Header.Get("ETag"), `"`), LastModified: lastModified,
		CustomMetadata: custom,
	}, nil
}

type listBucketResult struct {
	XMLName               xml.Name        `xml:"ListBucketResult"`
	IsTruncated           bool            `xml:"IsTruncated"`
	NextContinuationToken string          `xml:"NextContinuationToken"`
	Contents              []listObjectXML `xml:"Contents"`
}

type listObjectXML struct {
	Key          string `xml:"Key"`
	Size         int64  `xml:"Size"`
	ETag         string `xml:"ETag"`
	LastModified string `xml:"LastModified"`
}

// List implements blob.Store via GET ?list-type=2 (spec §4.3).
func (s *Store) List(ctx context.Context, opts blob.ListOptions) (blob.ListResult, error) {
	canonicalPath, _, host := s.bucketURL()
	query := url.Values{"list-type": []string{"2"}}
	if opts.Prefix != "" {
		query.Set("prefix", opts.Prefix)
	}
	if opts.ContinuationToken != "" {
		query.Set("continuation-token", opts.ContinuationToken)
	}
	query.Set("max-keys", strconv.Itoa(opts.MaxKeysOrDefault()))

	resp, err := s.doSigned(ctx, http.MethodGet, canonicalPath, host, query, nil, nil)
	if err != nil {
		return blob.ListResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return blob.ListResult{}, httpStatusError(resp.StatusCode, opts.Prefix)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return blob.ListResult{}, dbalerr.Internal("reading list response: %v", err)
	}
	var parsed listBucketResult
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return blob.ListResult{}, dbalerr.Internal("parsing ListObjectsV2 XML: %v", err)
	}

	items := make([]blob.Metadata, len(parsed.Contents))
	for i, c := range parsed.Contents {
		lastModified, _ := time.Parse(time.RFC3339, c.LastModified)
		items[i] = blob.Metadata{
			Key: c.Key, Size: c.Size, ETag: strings.Trim(c.ETag, `"`), LastModified: lastModified,
		}
	}

	return blob.ListResult{
		Items: items, IsTruncated: parsed.IsTruncated, NextToken: parsed.NextContinuationToken,
	}, nil
}

// Copy implements blob.Store via a server-side PUT with x-amz-copy-source.
func (s *Store) Copy(ctx context.Context, srcKey, dstKey string) (blob.Metadata, error) {
	canonicalPath, _, host := s.objectURL(dstKey)
	headers := map[string]string{"x-amz-copy-source": "/" + s.cfg.Bucket + "/" + pathEncodeKey(srcKey)}

	resp, err := s.doSigned(ctx, http.MethodPut, canonicalPath, host, url.Values{}, headers, nil)
	if err != nil {
		return blob.Metadata{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return blob.Metadata{}, httpStatusError(resp.StatusCode, srcKey)
	}
	return s.GetMetadata(ctx, dstKey)
}

// GeneratePresignedURL implements blob.Store per the spec §4.3 presigned
// variant: query-string-embedded signing with UNSIGNED-PAYLOAD and a
// host-only signed-headers set.
func (s *Store) GeneratePresignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	expires := int64(ttl.Seconds())
	if expires <= 0 {
		expires = 3600
	}
	if expires > 604800 {
		return "", dbalerr.ValidationError("presigned URL ttl must be <= 604800 seconds")
	}

	canonicalPath, _, host := s.objectURL(key)
	now := time.Now()
	dateStamp := now.UTC().Format("20060102")
	scope := dateStamp + "/" + s.cfg.Region + "/s3/aws4_request"

	query := url.Values{
		"X-Amz-Algorithm":     []string{"AWS4-HMAC-SHA256"},
		"X-Amz-Credential":    []string{s.cfg.AccessKey + "/" + scope},
		"X-Amz-Date":          []string{now.UTC().Format("20060102T150405Z")},
		"X-Amz-Expires":       []string{strconv.FormatInt(expires, 10)},
		"X-Amz-SignedHeaders": []string{"host"},
	}

	signingKey := s.keyring.get(s.cfg.SecretKey, dateStamp, s.cfg.Region, "s3")
	result := sign(signingInput{
		method: http.MethodGet, canonicalPath: canonicalPath, query: query,
		headers:   map[string]string{"host": host},
		region:    s.cfg.Region, accessKey: s.cfg.AccessKey, secretKey: s.cfg.SecretKey,
		service: "s3", timestamp: now, unsignedPayload: true, signingKey: signingKey,
	})

	reqURL := s.scheme() + host + canonicalPath + "?" + query.Encode() + "&X-Amz-Signature=" + result.signature
	return reqURL, nil
}

// TotalSize implements blob.Store by paging through List.
func (s *Store) TotalSize(ctx context.Context) (int64, error) {
	var total int64
	token := ""
	for {
		result, err := s.List(ctx, blob.ListOptions{ContinuationToken: token})
		if err != nil {
			return 0, err
		}
		for _, item := range result.Items {
			total += item.Size
		}
		if !result.IsTruncated {
			break
		}
		token = result.NextToken
	}
	return total, nil
}

// ObjectCount implements blob.Store by paging through List.
func (s *Store) ObjectCount(ctx context.Context) (int64, error) {
	var count int64
	token := ""
	for {
		result, err := s.List(ctx, blob.ListOptions{ContinuationToken: token})
		if err != nil {
			return 0, err
		}
		count += int64(len(result.Items))
		if !result.IsTruncated {
			break
		}
		token = result.NextToken
	}
	return count, nil
}
