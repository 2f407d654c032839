package feather

import (
	"errors"
	"fmt"

	"github.com/featherdb/feather/hnsw"
	"github.com/featherdb/feather/persistence"
	"github.com/featherdb/feather/scoring"
	"github.com/featherdb/feather/vectorstore"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrClosed is returned when an operation is attempted on a closed DB.
	ErrClosed = errors.New("database is closed")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrDuplicateID indicates a caller-assigned id that is already in use.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDuplicateID struct {
	ID    uint64
	cause error
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("duplicate id: %d", e.ID)
}

func (e *ErrDuplicateID) Unwrap() error { return e.cause }

// ErrCorruptFile indicates a snapshot that failed structural validation.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrCorruptFile struct {
	Reason string
	cause  error
}

func (e *ErrCorruptFile) Error() string {
	return fmt.Sprintf("corrupt file: %s", e.Reason)
}

func (e *ErrCorruptFile) Unwrap() error { return e.cause }

// ErrUnsupportedVersion indicates a snapshot with an unknown format version.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrUnsupportedVersion struct {
	Version uint32
	cause   error
}

func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported format version: %d", e.Version)
}

func (e *ErrUnsupportedVersion) Unwrap() error { return e.cause }

// ErrInvalidConfig indicates a scoring configuration that failed validation.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidConfig struct {
	Field  string
	Reason string
	cause  error
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

func (e *ErrInvalidConfig) Unwrap() error { return e.cause }

// translateError normalizes internal package errors into the public error
// taxonomy. IO errors pass through verbatim.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var sdm *vectorstore.ErrDimensionMismatch
	if errors.As(err, &sdm) {
		return &ErrDimensionMismatch{Expected: sdm.Expected, Actual: sdm.Actual, cause: err}
	}
	var hdm *hnsw.ErrDimensionMismatch
	if errors.As(err, &hdm) {
		return &ErrDimensionMismatch{Expected: hdm.Expected, Actual: hdm.Actual, cause: err}
	}

	var dup *vectorstore.ErrDuplicateID
	if errors.As(err, &dup) {
		return &ErrDuplicateID{ID: dup.ID, cause: err}
	}

	var corrupt *persistence.ErrCorruptFile
	if errors.As(err, &corrupt) {
		return &ErrCorruptFile{Reason: corrupt.Reason, cause: err}
	}

	var unsupported *persistence.ErrUnsupportedVersion
	if errors.As(err, &unsupported) {
		return &ErrUnsupportedVersion{Version: unsupported.Version, cause: err}
	}

	var invalid *scoring.ErrInvalidConfig
	if errors.As(err, &invalid) {
		return &ErrInvalidConfig{Field: invalid.Field, Reason: invalid.Reason, cause: err}
	}

	return err
}
