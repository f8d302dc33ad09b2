/*
Package storage uploads profile photos to an S3-compatible bucket and maps object keys to
public URLs.
*/
package storage

import (
	"context"
	"io"
	"net/url"
	"slices"
	"strings"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// PublicBaseURL prefixes object keys in public URLs. When empty it is
	// S3Endpoint/S3BucketName.
	PublicBaseURL string
}

// StorageService defines the public interface for the file storage service.
type StorageService interface {
	// Upload stores body under key with the given content type, replacing any object.
	Upload(ctx context.Context, key, contentType string, body io.Reader) error

	// Delete removes the file specified by the given key.
	Delete(ctx context.Context, key string) error

	// PublicURL returns the public address of key.
	PublicURL(key string) string

	// KeyFromURL extracts the object key from a public URL produced by this bucket.
	KeyFromURL(rawURL string) (string, bool)
}

// NewStorageService is the factory function for StorageService.
// Currently, only S3 compatible implementations are supported.
func NewStorageService(ctx context.Context, cfg ServiceConfig) (StorageService, error) {
	return newS3Client(ctx, cfg)
}

// publicURLs implements PublicURL and KeyFromURL for a bucket.
type publicURLs struct {
	base string
}

func newPublicURLs(cfg ServiceConfig) publicURLs {
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = strings.TrimRight(cfg.S3Endpoint, "/") + "/" + cfg.S3BucketName
	}
	return publicURLs{base: base}
}

func (p publicURLs) PublicURL(key string) string {
	return p.base + "/" + strings.TrimLeft(key, "/")
}

// KeyFromURL accepts only URLs under the public base. Anything else, including URLs
// on another host that happen to name the same bucket, is not ours to delete.
func (p publicURLs) KeyFromURL(rawURL string) (string, bool) {
	rest, ok := strings.CutPrefix(rawURL, p.base+"/")
	if !ok {
		return "", false
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	key, err := url.PathUnescape(rest)
	if err != nil || key == "" || slices.Contains(strings.Split(key, "/"), "..") {
		return "", false
	}
	return key, true
}
