package blobstore

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"vidredact/internal/config"
	"vidredact/internal/services"
)

// MinioStore implements Store against S3 or any S3-compatible server.
type MinioStore struct {
	client   *minio.Client
	bucket   string
	endpoint string
	secure   bool
}

// NewMinio builds a client from the storage section of cfg.
func NewMinio(cfg config.Storage) (*MinioStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "blobstore", "init", "storage.bucket is required", nil)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket, endpoint: cfg.Endpoint, secure: cfg.UseSSL}, nil
}

// Upload implements Store.
func (s *MinioStore) Upload(ctx context.Context, key, localPath string) (string, error) {
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "blobstore", "upload", key, err)
	}
	return s.objectURL(key), nil
}

// List implements Store.
func (s *MinioStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "blobstore", "list", prefix, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// PresignGet implements Store.
func (s *MinioStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "blobstore", "presign", key, err)
	}
	return u.String(), nil
}

// Ping implements Store.
func (s *MinioStore) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "blobstore", "ping", s.bucket, err)
	}
	if !ok {
		return services.Wrap(services.ErrConfiguration, "blobstore", "ping", fmt.Sprintf("bucket %q does not exist", s.bucket), nil)
	}
	return nil
}

// objectURL is the unsigned address of key. AWS endpoints use virtual-host
// style; other servers use path style.
func (s *MinioStore) objectURL(key string) string {
	return ObjectURL(s.endpoint, s.bucket, key, s.secure)
}

// ObjectURL formats the unsigned address of key in bucket.
func ObjectURL(endpoint, bucket, key string, secure bool) string {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	escaped := (&url.URL{Path: key}).EscapedPath()
	if strings.HasSuffix(endpoint, "amazonaws.com") {
		return fmt.Sprintf("https://%s.%s/%s", bucket, endpoint, escaped)
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, bucket, escaped)
}
