package storage

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
)

var _ ObjectStorage = (*MemoryObjectStorage)(nil)

// StoredObject is an object held by MemoryObjectStorage
type StoredObject struct {
	Data    []byte
	Options UploadOptions
}

// MemoryObjectStorage keeps objects in memory.
// It backs dry runs, where nothing may leave the process, and tests.
type MemoryObjectStorage struct {
	// BaseURL prefixes the returned object URLs
	BaseURL string

	mu      sync.RWMutex
	objects map[string]StoredObject
}

// NewMemoryObjectStorage creates an empty in-memory storage
func NewMemoryObjectStorage(baseURL string) *MemoryObjectStorage {
	if baseURL == "" {
		baseURL = "memory://objects"
	}
	return &MemoryObjectStorage{
		BaseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]StoredObject),
	}
}

// Upload stores a copy of data under key
func (s *MemoryObjectStorage) Upload(ctx context.Context, key string, data []byte, opts UploadOptions) (string, error) {
	if key == "" {
		return "", ErrKeyRequired
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = StoredObject{
		Data:    slices.Clone(data),
		Options: UploadOptions{
			ContentType:  opts.ContentType,
			CacheControl: opts.CacheControl,
			Visibility:   opts.Visibility,
			Metadata:     maps.Clone(opts.Metadata),
		},
	}
	return s.BaseURL + "/" + key, nil
}

// Get returns the object stored under key
func (s *MemoryObjectStorage) Get(key string) (StoredObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Keys returns the stored keys in sorted order
func (s *MemoryObjectStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.objects))
}
