package metadata

// Filter is a conjunction of predicates over record metadata. The zero
// value matches every record.
type Filter struct {
	// Types restricts matches to records whose type is in the set.
	// Empty means any type.
	Types []Type

	// Source, when non-nil, must equal the record's source exactly.
	Source *string

	// MinTimestamp, when non-nil, is the inclusive lower bound on the
	// record's timestamp.
	MinTimestamp *int64

	// MinImportance, when non-nil, is the inclusive lower bound on the
	// record's importance.
	MinImportance *float32
}

// Empty reports whether the filter has no predicates.
func (f *Filter) Empty() bool {
	return f == nil || (len(f.Types) == 0 && f.Source == nil && f.MinTimestamp == nil && f.MinImportance == nil)
}

// Matches reports whether m satisfies every predicate of the filter.
func (f *Filter) Matches(m *Metadata) bool {
	if f == nil {
		return true
	}

	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if m.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.Source != nil && m.Source != *f.Source {
		return false
	}

	if f.MinTimestamp != nil && m.Timestamp < *f.MinTimestamp {
		return false
	}

	if f.MinImportance != nil && m.Importance < *f.MinImportance {
		return false
	}

	return true
}
