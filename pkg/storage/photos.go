package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrObjectNotFound = errors.New("object not found")

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/gif":  ".gif",
}

// PhotoExtension maps an image MIME type to a file extension, falling back
// to the filename's own extension.
func PhotoExtension(mimeType, filename string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if ext, ok := photoExtensions[mimeType]; ok {
		return ext
	}
	return strings.ToLower(path.Ext(filename))
}

// PhotoKey returns meals/<userId>/<uuid><ext>.
func PhotoKey(userID, ext string) string {
	return fmt.Sprintf("meals/%s/%s%s", userID, uuid.NewString(), ext)
}

// SaveMealPhoto uploads a photo and returns its object key.
func SaveMealPhoto(ctx context.Context, objects ObjectStore, userID string, data []byte, mimeType, filename string) (string, error) {
	if objects == nil {
		return "", errors.New("object store not configured")
	}
	key := PhotoKey(userID, PhotoExtension(mimeType, filename))
	if err := objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mimeType); err != nil {
		return "", err
	}
	return key, nil
}

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in-process; used when no MinIO endpoint is set.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (m *MemoryStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read object: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, contentType: contentType}
	return nil
}

// PresignGet returns a memory:// URL for existing keys.
func (m *MemoryStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[key]; !ok {
		return "", ErrObjectNotFound
	}
	return "memory://" + key, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Get returns a stored object's bytes and content type.
func (m *MemoryStore) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", false
	}
	return append([]byte(nil), obj.data...), obj.contentType, true
}

// Keys lists stored keys under prefix.
func (m *MemoryStore) Keys(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

var (
	_ ObjectStore = (*MinioStore)(nil)
	_ ObjectStore = (*MemoryStore)(nil)
)
