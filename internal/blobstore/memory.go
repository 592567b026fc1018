package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and dry runs.
type Memory struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	// FailUpload, when set, is returned by every Upload call.
	FailUpload error
}

// NewMemory returns an empty in-memory store for bucket.
func NewMemory(bucket string) *Memory {
	return &Memory{bucket: bucket, objects: make(map[string][]byte)}
}

// Upload implements Store.
func (m *Memory) Upload(_ context.Context, key, localPath string) (string, error) {
	if m.FailUpload != nil {
		return "", m.FailUpload
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", localPath, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return fmt.Sprintf("memory://%s/%s", m.bucket, key), nil
}

// Put stores raw bytes under key.
func (m *Memory) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
}

// Object returns the stored bytes for key.
func (m *Memory) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}

// List implements Store.
func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// PresignGet implements Store.
func (m *Memory) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	_, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoObjects, key)
	}
	q := url.Values{}
	q.Set("expires", fmt.Sprintf("%d", int(ttl.Seconds())))
	return fmt.Sprintf("memory://%s/%s?%s", m.bucket, key, q.Encode()), nil
}

// Ping implements Store.
func (m *Memory) Ping(context.Context) error { return nil }
