package blobstore

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedStore wraps a Store with a byte-rate limit on uploads, so
// large snapshot pushes do not saturate the uplink of the host process.
// Reads are not limited.
type RateLimitedStore struct {
	inner   Store
	limiter *rate.Limiter
}

// NewRateLimitedStore creates a RateLimitedStore uploading at most
// bytesPerSecond, with a burst of the same size.
func NewRateLimitedStore(inner Store, bytesPerSecond int) *RateLimitedStore {
	return &RateLimitedStore{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), bytesPerSecond),
	}
}

// Put waits for rate budget covering the blob, then writes through.
// Blobs larger than the burst are paced in burst-sized chunks.
func (s *RateLimitedStore) Put(ctx context.Context, name string, data []byte) error {
	remaining := len(data)
	burst := s.limiter.Burst()

	for remaining > 0 {
		n := remaining
		if n > burst {
			n = burst
		}

		if err := s.limiter.WaitN(ctx, n); err != nil {
			return err
		}
		remaining -= n
	}

	return s.inner.Put(ctx, name, data)
}

// Open delegates to the backend.
func (s *RateLimitedStore) Open(ctx context.Context, name string) (Blob, error) {
	return s.inner.Open(ctx, name)
}

// Delete delegates to the backend.
func (s *RateLimitedStore) Delete(ctx context.Context, name string) error {
	return s.inner.Delete(ctx, name)
}

// List delegates to the backend.
func (s *RateLimitedStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}
