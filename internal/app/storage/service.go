/*
Package storage stores uploaded chat images in an S3-compatible bucket.

Objects are written once under a caller-chosen key and served from a public base URL,
so the returned URL can be embedded directly in a message.
*/
package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrNotConfigured is returned by NewBlobStore when no bucket is configured.
var ErrNotConfigured = errors.New("blob storage is not configured")

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// PublicBaseURL is the prefix objects are served from. When empty the URL is
	// derived from the endpoint and bucket (path style).
	PublicBaseURL string
}

// Enabled reports whether enough settings are present to build a store.
func (c ServiceConfig) Enabled() bool {
	return c.S3BucketName != "" && c.S3Endpoint != ""
}

// BlobStore defines the public interface for the image store.
type BlobStore interface {
	// Store writes body under key and returns the public URL of the object.
	Store(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// NewBlobStore is the factory function for BlobStore.
// It returns ErrNotConfigured when the bucket settings are missing.
func NewBlobStore(ctx context.Context, cfg ServiceConfig) (BlobStore, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	// Currently, only S3 compatible implementations are supported.
	return newS3Client(ctx, cfg)
}

// PublicURL builds the URL an object with the given key is served from.
func PublicURL(cfg ServiceConfig, key string) string {
	escaped := escapeKey(key)

	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/") + "/" + escaped
	}

	return strings.TrimRight(cfg.S3Endpoint, "/") + "/" + url.PathEscape(cfg.S3BucketName) + "/" + escaped
}

func escapeKey(key string) string {
	parts := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
