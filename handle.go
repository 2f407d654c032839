package feather

import (
	"errors"
	"sync"
)

// ErrInvalidHandle is returned when a handle does not refer to an open DB.
var ErrInvalidHandle = errors.New("invalid handle")

// Registry maps opaque integer handles to DB instances. Language binding
// layers hand the integer across the boundary instead of a pointer, so a
// stale or forged handle fails a lookup instead of dereferencing garbage.
type Registry struct {
	mu   sync.RWMutex
	next uint64
	dbs  map[uint64]*DB
}

// NewRegistry creates an empty handle registry. Handles start at 1; zero
// is never a valid handle.
func NewRegistry() *Registry {
	return &Registry{
		next: 1,
		dbs:  make(map[uint64]*DB),
	}
}

// Register stores db and returns its handle.
func (r *Registry) Register(db *DB) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	h := r.next
	r.next++
	r.dbs[h] = db

	return h
}

// Get returns the DB for a handle.
func (r *Registry) Get(h uint64) (*DB, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	db, ok := r.dbs[h]
	if !ok {
		return nil, ErrInvalidHandle
	}
	return db, nil
}

// Release removes the handle and closes the DB. Releasing an unknown
// handle is an error; releasing the same handle twice is too.
func (r *Registry) Release(h uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	db, ok := r.dbs[h]
	if !ok {
		return ErrInvalidHandle
	}

	delete(r.dbs, h)
	return db.Close()
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.dbs)
}
