package metadata

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Index is an inverted bitmap index over record positions, keyed by the
// equality predicates a Filter can express. It narrows a filtered query to
// a candidate bitmap before any vector work happens. Range predicates
// (timestamp, importance) are not indexed and stay with Filter.Matches.
type Index struct {
	byType   map[Type]*roaring.Bitmap
	bySource map[string]*roaring.Bitmap
	all      *roaring.Bitmap
}

// NewIndex creates an empty metadata index.
func NewIndex() *Index {
	return &Index{
		byType:   make(map[Type]*roaring.Bitmap),
		bySource: make(map[string]*roaring.Bitmap),
		all:      roaring.New(),
	}
}

// Add indexes the metadata of the record at pos.
func (idx *Index) Add(pos uint32, m *Metadata) {
	idx.all.Add(pos)

	bm, ok := idx.byType[m.Type]
	if !ok {
		bm = roaring.New()
		idx.byType[m.Type] = bm
	}
	bm.Add(pos)

	if m.Source != "" {
		bm, ok := idx.bySource[m.Source]
		if !ok {
			bm = roaring.New()
			idx.bySource[m.Source] = bm
		}
		bm.Add(pos)
	}
}

// Len returns the number of indexed positions.
func (idx *Index) Len() uint64 {
	return idx.all.GetCardinality()
}

// Candidates returns the positions that can possibly match the filter's
// equality predicates, or nil when the filter does not narrow the index
// (nil means "all positions"). Range predicates are ignored here and must
// still be checked per record.
func (idx *Index) Candidates(f *Filter) *roaring.Bitmap {
	if f == nil || (len(f.Types) == 0 && f.Source == nil) {
		return nil
	}

	var result *roaring.Bitmap

	if len(f.Types) > 0 {
		result = roaring.New()
		for _, t := range f.Types {
			if bm, ok := idx.byType[t]; ok {
				result.Or(bm)
			}
		}
	}

	if f.Source != nil {
		bm, ok := idx.bySource[*f.Source]
		if !ok {
			return roaring.New()
		}

		if result == nil {
			return bm.Clone()
		}
		result.And(bm)
	}

	return result
}
