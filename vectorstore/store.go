// Package vectorstore holds the flat append-only record array that is the
// ground truth for persistence. Graph positions are indices into this
// store, so rebuilding the index is a replay of Append calls in order.
package vectorstore

import (
	"fmt"

	"github.com/featherdb/feather/metadata"
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrDuplicateID is a named error type for reused record ids.
type ErrDuplicateID struct {
	ID uint64
}

// Error returns the error message for a duplicate id.
func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("duplicate id: %d", e.ID)
}

// Record is a single stored entry: caller-assigned id, vector, metadata.
type Record struct {
	ID     uint64
	Vector []float32
	Meta   metadata.Metadata
}

// Store is the append-only record array. Not safe for concurrent use;
// callers synchronize externally.
type Store struct {
	dimension int
	records   []Record
	byID      map[uint64]uint32
}

// New creates an empty store for vectors of the given dimension.
func New(dimension int) *Store {
	return &Store{
		dimension: dimension,
		byID:      make(map[uint64]uint32),
	}
}

// Dimension returns the fixed vector dimension of the store.
func (s *Store) Dimension() int { return s.dimension }

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Append validates and stores a record, returning its position. The vector
// is stored by reference; callers must not mutate it afterwards. Nothing is
// mutated on error.
func (s *Store) Append(id uint64, vector []float32, meta metadata.Metadata) (uint32, error) {
	if len(vector) != s.dimension {
		return 0, &ErrDimensionMismatch{Expected: s.dimension, Actual: len(vector)}
	}

	if _, exists := s.byID[id]; exists {
		return 0, &ErrDuplicateID{ID: id}
	}

	pos := uint32(len(s.records))
	s.records = append(s.records, Record{ID: id, Vector: vector, Meta: meta})
	s.byID[id] = pos

	return pos, nil
}

// Record returns a pointer to the record at pos. The pointer stays valid
// until the next Append.
func (s *Store) Record(pos uint32) *Record {
	return &s.records[pos]
}

// Vector returns the vector at pos. Implements the graph's vector source.
func (s *Store) Vector(pos uint32) []float32 {
	return s.records[pos].Vector
}

// PositionOf returns the position of the record with the given id.
func (s *Store) PositionOf(id uint64) (uint32, bool) {
	pos, ok := s.byID[id]
	return pos, ok
}

// ForEach calls fn for every record in position order, stopping at the
// first error.
func (s *Store) ForEach(fn func(pos uint32, r *Record) error) error {
	for i := range s.records {
		if err := fn(uint32(i), &s.records[i]); err != nil {
			return err
		}
	}
	return nil
}
