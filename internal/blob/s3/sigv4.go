package s3

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// signingInput is the pure-function argument set for AWS Signature Version 4
// (spec §4.3): canonicalization and signing never touch the network or the
// clock themselves, so they are trivially unit-testable against the RFC's
// known-answer vectors.
type signingInput struct {
	method        string
	canonicalPath string
	query         url.Values
	headers       map[string]string
	payload       []byte
	region        string
	accessKey     string
	secretKey     string
	service       string
	timestamp     time.Time
	// unsignedPayload, when true, uses the literal "UNSIGNED-PAYLOAD" hash
	// instead of hashing payload (the presigned-URL variant).
	unsignedPayload bool
	// signingKey, when non-nil, is used as kSigning directly instead of
	// rederiving it from secretKey (see signingKeyCache).
	signingKey []byte
}

type signingResult struct {
	amzDate         string
	dateStamp       string
	canonicalHeaders string
	signedHeaders   string
	signature       string
	authorization   string
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// uriEncode implements RFC 3986 percent-encoding per AWS's rules: unreserved
// characters pass through, everything else is percent-encoded uppercase, and
// "/" is optionally preserved (for paths, not for query keys/values).
func uriEncode(s string, preserveSlash bool) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		if isUnreserved(c) || (preserveSlash && c == '/') {
			b.WriteByte(c)
			continue
		}
		b.WriteString("%")
		b.WriteString(strings.ToUpper(hex.EncodeToString([]byte{c})))
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.' || c == '~':
		return true
	}
	return false
}

func canonicalURI(path string) string {
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = uriEncode(seg, false)
	}
	return strings.Join(segments, "/")
}

func canonicalQueryString(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		values := append([]string(nil), q[k]...)
		sort.Strings(values)
		for _, v := range values {
			pairs = append(pairs, uriEncode(k, false)+"="+uriEncode(v, false))
		}
	}
	return strings.Join(pairs, "&")
}

func canonicalHeaders(headers map[string]string) (canonical, signed string) {
	names := make([]string, 0, len(headers))
	lower := make(map[string]string, len(headers))
	for k, v := range headers {
		lk := strings.ToLower(k)
		names = append(names, lk)
		lower[lk] = strings.TrimSpace(v)
	}
	sort.Strings(names)

	var cb strings.Builder
	for _, n := range names {
		cb.WriteString(n)
		cb.WriteString(":")
		cb.WriteString(lower[n])
		cb.WriteString("\n")
	}
	return cb.String(), strings.Join(names, ";")
}

func deriveSigningKey(secretKey, dateStamp, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte("aws4_request"))
}

// signingKeyCache memoizes kSigning per (dateStamp, region, service)
// so a long-lived Store rederives it once per UTC day instead of once per
// request (spec's s3_auth.hpp supplement). Guarded the same as the rest of
// C12's per-backend mutex discipline.
type signingKeyCache struct {
	mu    sync.Mutex
	byDay map[string][]byte
}

func newSigningKeyCache() *signingKeyCache {
	return &signingKeyCache{byDay: make(map[string][]byte)}
}

func (c *signingKeyCache) get(secretKey, dateStamp, region, service string) []byte {
	key := dateStamp + "/" + region + "/" + service

	c.mu.Lock()
	defer c.mu.Unlock()

	if k, ok := c.byDay[key]; ok {
		return k
	}
	if len(c.byDay) > 2 {
		// secretKey never rotates mid-process here; a couple of stale
		// entries (region/service rarely vary) is enough to bound growth.
		c.byDay = make(map[string][]byte)
	}
	k := deriveSigningKey(secretKey, dateStamp, region, service)
	c.byDay[key] = k
	return k
}

// sign implements spec §4.3's 11-step canonicalization and signing
// algorithm, producing the Authorization header value.
func sign(in signingInput) signingResult {
	amzDate := in.timestamp.UTC().Format("20060102T150405Z")
	dateStamp := in.timestamp.UTC().Format("20060102")

	payloadHash := "UNSIGNED-PAYLOAD"
	if !in.unsignedPayload {
		payloadHash = sha256Hex(in.payload)
	}

	headers := make(map[string]string, len(in.headers)+2)
	for k, v := range in.headers {
		headers[k] = v
	}
	// The presigned variant carries x-amz-date in the query string
	// (X-Amz-Date), not as a signed header: spec §4.3 requires the
	// presigned canonical headers list contain only "host".
	if !in.unsignedPayload {
		headers["x-amz-date"] = amzDate
		headers["x-amz-content-sha256"] = payloadHash
	}

	canonHeaders, signedHeaders := canonicalHeaders(headers)
	canonicalRequest := strings.Join([]string{
		in.method,
		canonicalURI(in.canonicalPath),
		canonicalQueryString(in.query),
		canonHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	service := in.service
	if service == "" {
		service = "s3"
	}
	scope := dateStamp + "/" + in.region + "/" + service + "/aws4_request"
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256",
		amzDate,
		scope,
		sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	kSigning := in.signingKey
	if kSigning == nil {
		kSigning = deriveSigningKey(in.secretKey, dateStamp, in.region, service)
	}
	signature := hex.EncodeToString(hmacSHA256(kSigning, []byte(stringToSign)))

	authorization := "AWS4-HMAC-SHA256 Credential=" + in.accessKey + "/" + scope +
		", SignedHeaders=" + signedHeaders + ", Signature=" + signature

	return signingResult{
		amzDate: amzDate, dateStamp: dateStamp,
		canonicalHeaders: canonHeaders, signedHeaders: signedHeaders,
		signature: signature, authorization: authorization,
	}
}
