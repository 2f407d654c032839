// Package persistence implements the versioned binary snapshot format.
//
// Layout (all integers little-endian):
//
//	header:  magic "FEAT" | version uint32 | dim uint32
//	v1 body: repeated { id uint64 | vector dim x float32 }
//	v2 body: v1 record + { timestamp int64 | importance float32 |
//	         type uint32 | source lp-bytes | content lp-bytes |
//	         tags lp-bytes (JSON array) }
//
// lp-bytes is a uint32 byte length followed by UTF-8 bytes. Records repeat
// until EOF; there is no count field, so a partial trailing record means
// the file is corrupt. The graph is not serialized, it is rebuilt by
// replaying inserts in file order on load.
package persistence

import "fmt"

const (
	// Version1 files carry vectors only.
	Version1 uint32 = 1

	// Version2 files carry vectors plus metadata. Writers always emit it.
	Version2 uint32 = 2
)

// Magic is the canonical file magic, the literal bytes "FEAT".
var Magic = [4]byte{'F', 'E', 'A', 'T'}

// legacyMagic is the byte-reversed magic emitted by an endianness bug in
// an early writer. Readers accept it, writers never produce it.
var legacyMagic = [4]byte{'T', 'A', 'E', 'F'}

// maxStringLen bounds length-prefixed fields so a corrupt length cannot
// trigger a huge allocation.
const maxStringLen = 64 << 20

// ErrCorruptFile is a named error type for files that fail structural
// validation: bad magic, truncated record, or an implausible field length.
type ErrCorruptFile struct {
	Reason string
}

// Error returns the error message for a corrupt file.
func (e *ErrCorruptFile) Error() string {
	return fmt.Sprintf("corrupt file: %s", e.Reason)
}

// ErrUnsupportedVersion is a named error type for unknown format versions.
type ErrUnsupportedVersion struct {
	Version uint32
}

// Error returns the error message for an unsupported version.
func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported format version: %d", e.Version)
}
