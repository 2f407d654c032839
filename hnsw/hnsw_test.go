package hnsw

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceSource backs the graph with a plain slice of vectors.
type sliceSource struct {
	vectors [][]float32
}

func (s *sliceSource) Vector(pos uint32) []float32 {
	return s.vectors[pos]
}

func (s *sliceSource) add(v []float32) {
	s.vectors = append(s.vectors, v)
}

func buildIndex(t *testing.T, dim int, vectors [][]float32, optFns ...func(o *Options)) *Index {
	t.Helper()

	src := &sliceSource{}
	idx := New(dim, src, optFns...)

	for _, v := range vectors {
		src.add(v)
		_, err := idx.Insert(v)
		require.NoError(t, err)
	}

	return idx
}

func TestInsert(t *testing.T) {
	t.Run("Positions are dense and ordered", func(t *testing.T) {
		src := &sliceSource{}
		idx := New(2, src)

		for i := 0; i < 5; i++ {
			v := []float32{float32(i), 0}
			src.add(v)
			pos, err := idx.Insert(v)
			require.NoError(t, err)
			assert.Equal(t, uint32(i), pos)
		}

		assert.Equal(t, 5, idx.Len())
	})

	t.Run("Dimension mismatch", func(t *testing.T) {
		idx := New(3, &sliceSource{})

		_, err := idx.Insert([]float32{1, 2})

		var dimErr *ErrDimensionMismatch
		require.ErrorAs(t, err, &dimErr)
		assert.Equal(t, 3, dimErr.Expected)
		assert.Equal(t, 2, dimErr.Actual)
		assert.Equal(t, 0, idx.Len())
	})
}

func TestSearch(t *testing.T) {
	t.Run("Empty index returns empty result", func(t *testing.T) {
		idx := New(2, &sliceSource{})

		results, err := idx.Search([]float32{1, 2}, 5, 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Self search returns distance zero", func(t *testing.T) {
		vectors := [][]float32{
			{0.1, 0.2, 0.3},
			{0.5, 0.6, 0.7},
			{0.9, 0.1, 0.4},
		}
		idx := buildIndex(t, 3, vectors)

		for pos, v := range vectors {
			results, err := idx.Search(v, 1, 0)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, uint32(pos), results[0].Pos)
			assert.InDelta(t, 0, results[0].Distance, 1e-6)
		}
	})

	t.Run("Results ordered by distance", func(t *testing.T) {
		vectors := [][]float32{
			{10, 10},
			{1, 1},
			{5, 5},
		}
		idx := buildIndex(t, 2, vectors)

		results, err := idx.Search([]float32{0, 0}, 3, 0)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, uint32(1), results[0].Pos)
		assert.Equal(t, uint32(2), results[1].Pos)
		assert.Equal(t, uint32(0), results[2].Pos)
		assert.True(t, results[0].Distance <= results[1].Distance)
		assert.True(t, results[1].Distance <= results[2].Distance)
	})

	t.Run("K larger than count returns all nodes", func(t *testing.T) {
		vectors := [][]float32{{1, 0}, {2, 0}, {3, 0}}
		idx := buildIndex(t, 2, vectors)

		results, err := idx.Search([]float32{0, 0}, 10, 0)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("Query dimension mismatch", func(t *testing.T) {
		idx := buildIndex(t, 2, [][]float32{{1, 2}})

		_, err := idx.Search([]float32{1, 2, 3}, 1, 0)

		var dimErr *ErrDimensionMismatch
		assert.ErrorAs(t, err, &dimErr)
	})

	t.Run("Distance ties break by insertion order", func(t *testing.T) {
		vectors := [][]float32{
			{1, 0},
			{-1, 0},
			{0, 1},
		}
		idx := buildIndex(t, 2, vectors)

		results, err := idx.Search([]float32{0, 0}, 3, 0)
		require.NoError(t, err)
		require.Len(t, results, 3)

		for i, r := range results {
			assert.Equal(t, uint32(i), r.Pos)
		}
	})
}

func TestRecall(t *testing.T) {
	const (
		dim   = 16
		count = 500
		k     = 10
	)

	rng := rand.New(rand.NewSource(42))

	vectors := make([][]float32, count)
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()
		}
		vectors[i] = v
	}

	idx := buildIndex(t, dim, vectors)

	query := make([]float32, dim)
	for j := range query {
		query[j] = rng.Float32()
	}

	exact, err := idx.BruteSearch(query, k)
	require.NoError(t, err)
	require.Len(t, exact, k)

	approx, err := idx.Search(query, k, 200)
	require.NoError(t, err)
	require.Len(t, approx, k)

	exactSet := make(map[uint32]bool, k)
	for _, r := range exact {
		exactSet[r.Pos] = true
	}

	hits := 0
	for _, r := range approx {
		if exactSet[r.Pos] {
			hits++
		}
	}

	// A well-built graph at this scale and ef finds nearly all true
	// neighbors; allow one miss.
	assert.GreaterOrEqual(t, hits, k-1)
}

func TestDeterminism(t *testing.T) {
	const dim = 8

	rng := rand.New(rand.NewSource(7))
	vectors := make([][]float32, 100)
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()
		}
		vectors[i] = v
	}

	query := make([]float32, dim)
	for j := range query {
		query[j] = rng.Float32()
	}

	a := buildIndex(t, dim, vectors)
	b := buildIndex(t, dim, vectors)

	ra, err := a.Search(query, 5, 64)
	require.NoError(t, err)
	rb, err := b.Search(query, 5, 64)
	require.NoError(t, err)

	assert.Equal(t, ra, rb)
}

func TestBruteSearch(t *testing.T) {
	vectors := [][]float32{
		{3, 0},
		{1, 0},
		{2, 0},
	}
	idx := buildIndex(t, 2, vectors)

	results, err := idx.BruteSearch([]float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, uint32(1), results[0].Pos)
	assert.Equal(t, uint32(2), results[1].Pos)
}

func TestStats(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		idx := New(2, &sliceSource{})

		s := idx.Stats()
		assert.Equal(t, 0, s.Nodes)
		assert.Equal(t, -1, s.MaxLevel)
	})

	t.Run("Populated", func(t *testing.T) {
		rng := rand.New(rand.NewSource(3))
		vectors := make([][]float32, 50)
		for i := range vectors {
			vectors[i] = []float32{rng.Float32(), rng.Float32()}
		}

		idx := buildIndex(t, 2, vectors)
		s := idx.Stats()

		assert.Equal(t, 50, s.Nodes)
		assert.GreaterOrEqual(t, s.MaxLevel, 0)
		assert.Positive(t, s.Connections)

		total := 0
		for _, c := range s.LevelCounts {
			total += c
		}
		assert.Equal(t, 50, total)
	})
}

func TestSelectNeighboursOrdering(t *testing.T) {
	// The simple selector must keep the closest m candidates.
	vectors := [][]float32{
		{0, 0},
		{1, 0},
		{2, 0},
		{3, 0},
		{4, 0},
	}

	idx := buildIndex(t, 2, vectors, func(o *Options) {
		o.Heuristic = false
		o.M = 2
	})

	results, err := idx.Search([]float32{0, 0}, 5, 64)
	require.NoError(t, err)
	require.Len(t, results, 5)

	sorted := sort.SliceIsSorted(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	assert.True(t, sorted)
}
