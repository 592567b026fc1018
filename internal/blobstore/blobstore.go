// Package blobstore stores finished artifacts in an S3-compatible bucket and
// hands out time-limited download links for them.
package blobstore

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

// ErrNoObjects is returned when a prefix holds no matching object.
var ErrNoObjects = errors.New("no matching objects")

// Store is the blob store used by the pipeline and the download endpoint.
type Store interface {
	// Upload copies the local file to key and returns the object's URL.
	Upload(ctx context.Context, key, localPath string) (string, error)
	// List returns object keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// PresignGet returns a GET URL for key valid for ttl.
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Ping verifies the bucket is reachable.
	Ping(ctx context.Context) error
}

// ObjectKey returns the key an artifact of workID is stored under.
func ObjectKey(workID, fileName string) string {
	return path.Join(workID, path.Base(fileName))
}

// WorkPrefix returns the key prefix holding every artifact of workID.
func WorkPrefix(workID string) string {
	return strings.TrimSuffix(workID, "/") + "/"
}

// FirstWithSuffix returns the first key ending in suffix (case-insensitive).
func FirstWithSuffix(keys []string, suffix string) (string, error) {
	suffix = strings.ToLower(suffix)
	for _, key := range keys {
		if strings.HasSuffix(strings.ToLower(key), suffix) {
			return key, nil
		}
	}
	return "", ErrNoObjects
}
