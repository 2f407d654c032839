// Package metadata defines the record metadata model, predicate filters
// over it, and a bitmap inverted index for fast pre-filtering.
package metadata

import "fmt"

// Type classifies a record by what kind of memory it holds.
type Type uint32

const (
	TypeFact Type = iota
	TypePreference
	TypeEvent
	TypeConversation
)

// String returns the canonical lower-case name of the type.
func (t Type) String() string {
	switch t {
	case TypeFact:
		return "fact"
	case TypePreference:
		return "preference"
	case TypeEvent:
		return "event"
	case TypeConversation:
		return "conversation"
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

// Valid reports whether t is one of the defined types.
func (t Type) Valid() bool {
	return t <= TypeConversation
}

// ParseType converts a canonical type name to its Type value.
func ParseType(s string) (Type, error) {
	switch s {
	case "fact":
		return TypeFact, nil
	case "preference":
		return TypePreference, nil
	case "event":
		return TypeEvent, nil
	case "conversation":
		return TypeConversation, nil
	default:
		return 0, fmt.Errorf("unknown metadata type %q", s)
	}
}

// Metadata carries the descriptive fields stored alongside a vector.
type Metadata struct {
	// Timestamp is the record's creation time as Unix seconds.
	Timestamp int64

	// Importance weights the record in recency scoring, expected in [0, 1].
	Importance float32

	// Type classifies the record.
	Type Type

	// Source names where the record came from, e.g. "chat" or "import".
	Source string

	// Content is the free-form payload the vector was derived from.
	Content string

	// Tags are free-form labels, persisted as a JSON array.
	Tags []string
}

// Default returns the metadata applied to records added without any.
func Default(now int64) Metadata {
	return Metadata{
		Timestamp:  now,
		Importance: 0.5,
		Type:       TypeFact,
	}
}
