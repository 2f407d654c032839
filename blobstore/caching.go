package blobstore

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CachingStore wraps a Store with a read-through in-memory cache.
// Concurrent opens of the same uncached blob are collapsed into a single
// backend fetch.
type CachingStore struct {
	inner Store

	mu    sync.RWMutex
	cache map[string][]byte
	group singleflight.Group
}

// NewCachingStore creates a CachingStore around inner.
func NewCachingStore(inner Store) *CachingStore {
	return &CachingStore{
		inner: inner,
		cache: make(map[string][]byte),
	}
}

// Put writes through to the backend and refreshes the cache entry.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	if err := s.inner.Put(ctx, name, data); err != nil {
		return err
	}

	copied := make([]byte, len(data))
	copy(copied, data)

	s.mu.Lock()
	s.cache[name] = copied
	s.mu.Unlock()

	return nil
}

// Open returns the cached blob if present, otherwise fetches it from the
// backend exactly once regardless of caller concurrency.
func (s *CachingStore) Open(ctx context.Context, name string) (Blob, error) {
	s.mu.RLock()
	data, ok := s.cache[name]
	s.mu.RUnlock()

	if ok {
		return newMemoryBlob(data), nil
	}

	v, err, _ := s.group.Do(name, func() (any, error) {
		b, err := s.inner.Open(ctx, name)
		if err != nil {
			return nil, err
		}
		defer b.Close()

		data, err := ReadAll(b)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.cache[name] = data
		s.mu.Unlock()

		return data, nil
	})
	if err != nil {
		return nil, err
	}

	return newMemoryBlob(v.([]byte)), nil
}

// Delete removes the blob from the backend and the cache.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()

	return s.inner.Delete(ctx, name)
}

// List delegates to the backend.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}
