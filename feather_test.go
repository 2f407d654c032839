package feather

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/featherdb/feather/metadata"
	"github.com/featherdb/feather/persistence"
	"github.com/featherdb/feather/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constVector(dim int, value float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = value
	}
	return v
}

func TestAddAndSearch(t *testing.T) {
	t.Run("Self search returns distance zero", func(t *testing.T) {
		db := New(4)

		vectors := [][]float32{
			{0.1, 0.2, 0.3, 0.4},
			{0.9, 0.8, 0.7, 0.6},
			{0.5, 0.5, 0.5, 0.5},
		}

		for i, v := range vectors {
			require.NoError(t, db.Add(uint64(i), v))
		}

		for i, v := range vectors {
			results, err := db.Search(v, 1)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, uint64(i), results[0].ID)
			assert.InDelta(t, 0, results[0].Distance, 1e-6)
		}
	})

	t.Run("Empty database returns empty result", func(t *testing.T) {
		db := New(4)

		results, err := db.Search([]float32{1, 2, 3, 4}, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("K larger than count returns all records", func(t *testing.T) {
		db := New(2)
		require.NoError(t, db.Add(1, []float32{1, 0}))
		require.NoError(t, db.Add(2, []float32{2, 0}))

		results, err := db.Search([]float32{0, 0}, 10)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("Invalid k", func(t *testing.T) {
		db := New(2)

		_, err := db.Search([]float32{1, 2}, 0)
		assert.ErrorIs(t, err, ErrInvalidK)

		_, err = db.Search([]float32{1, 2}, -3)
		assert.ErrorIs(t, err, ErrInvalidK)
	})

	t.Run("Dimension mismatch leaves count unchanged", func(t *testing.T) {
		db := New(3)
		require.NoError(t, db.Add(1, []float32{1, 2, 3}))

		err := db.Add(2, []float32{1, 2})

		var dimErr *ErrDimensionMismatch
		require.ErrorAs(t, err, &dimErr)
		assert.Equal(t, 3, dimErr.Expected)
		assert.Equal(t, 2, dimErr.Actual)
		assert.Equal(t, 1, db.Len())
	})

	t.Run("Duplicate id rejected", func(t *testing.T) {
		db := New(2)
		require.NoError(t, db.Add(1, []float32{1, 2}))

		err := db.Add(1, []float32{3, 4})

		var dupErr *ErrDuplicateID
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, uint64(1), dupErr.ID)
		assert.Equal(t, 1, db.Len())
	})
}

func TestExampleScenario(t *testing.T) {
	// dim=128: vector1 nearly equals the query, vector3 is a slightly
	// noisier copy, vector2 is far away. The ordering [1, 3, 2] and the
	// rough distance magnitudes must hold.
	const dim = 128

	query := constVector(dim, 0.5)
	vector1 := constVector(dim, 0.5+0.047)
	vector2 := constVector(dim, 0.5+1.31533)
	vector3 := constVector(dim, 0.5+0.1143)

	db := New(dim)
	require.NoError(t, db.Add(1, vector1))
	require.NoError(t, db.Add(2, vector2))
	require.NoError(t, db.Add(3, vector3))

	results, err := db.Search(query, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, uint64(1), results[0].ID)
	assert.Equal(t, uint64(3), results[1].ID)
	assert.Equal(t, uint64(2), results[2].ID)

	assert.InDelta(t, 0.28, results[0].Distance, 0.05)
	assert.InDelta(t, 1.67, results[1].Distance, 0.05)
	assert.InDelta(t, 221.45, results[2].Distance, 1.0)
}

func TestPersistence(t *testing.T) {
	t.Run("Save and reopen reproduces search results", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.feather")
		const dim = 16

		db, err := OpenOrCreate(path, dim)
		require.NoError(t, err)

		rng := rand.New(rand.NewSource(11))
		for i := uint64(0); i < 50; i++ {
			v := make([]float32, dim)
			for j := range v {
				v[j] = rng.Float32()
			}
			require.NoError(t, db.Add(i, v))
		}

		query := make([]float32, dim)
		for j := range query {
			query[j] = rng.Float32()
		}

		before, err := db.Search(query, 10)
		require.NoError(t, err)

		require.NoError(t, db.Save())
		require.NoError(t, db.Close())

		reopened, err := OpenOrCreate(path, dim)
		require.NoError(t, err)
		defer reopened.Close()

		require.Equal(t, 50, reopened.Len())

		after, err := reopened.Search(query, 10)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("Reopen finds a stored vector exactly", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.feather")

		db, err := OpenOrCreate(path, 8)
		require.NoError(t, err)

		vec := []float32{1, 2, 3, 4, 5, 6, 7, 8}
		require.NoError(t, db.Add(0, vec))
		require.NoError(t, db.Save())
		require.NoError(t, db.Close())

		reopened, err := OpenOrCreate(path, 8)
		require.NoError(t, err)
		defer reopened.Close()

		results, err := reopened.Search(vec, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, uint64(0), results[0].ID)
		assert.Less(t, results[0].Distance, float32(0.001))
	})

	t.Run("Metadata survives the round-trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.feather")

		db, err := OpenOrCreate(path, 2)
		require.NoError(t, err)

		meta := metadata.Metadata{
			Timestamp:  1700000000,
			Importance: 0.9,
			Type:       metadata.TypeConversation,
			Source:     "chat",
			Content:    "remember this",
			Tags:       []string{"x", "y"},
		}
		require.NoError(t, db.AddWithMetadata(5, []float32{1, 2}, meta))
		require.NoError(t, db.Save())
		require.NoError(t, db.Close())

		reopened, err := OpenOrCreate(path, 2)
		require.NoError(t, err)
		defer reopened.Close()

		results, err := reopened.Search([]float32{1, 2}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, meta, results[0].Meta)
	})

	t.Run("Close without save discards records", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.feather")

		db, err := OpenOrCreate(path, 2)
		require.NoError(t, err)
		require.NoError(t, db.Add(1, []float32{1, 2}))
		require.NoError(t, db.Save())
		require.NoError(t, db.Add(2, []float32{3, 4}))
		require.NoError(t, db.Close())

		reopened, err := OpenOrCreate(path, 2)
		require.NoError(t, err)
		defer reopened.Close()

		assert.Equal(t, 1, reopened.Len())
	})

	t.Run("Operations after close fail", func(t *testing.T) {
		db := New(2)
		require.NoError(t, db.Close())

		assert.ErrorIs(t, db.Add(1, []float32{1, 2}), ErrClosed)

		_, err := db.Search([]float32{1, 2}, 1)
		assert.ErrorIs(t, err, ErrClosed)

		assert.ErrorIs(t, db.Save(), ErrClosed)
		assert.NoError(t, db.Close())
	})

	t.Run("Dirty flag tracks unsaved records", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.feather")

		db, err := OpenOrCreate(path, 2)
		require.NoError(t, err)
		defer db.Close()

		assert.False(t, db.Dirty())
		require.NoError(t, db.Add(1, []float32{1, 2}))
		assert.True(t, db.Dirty())
		require.NoError(t, db.Save())
		assert.False(t, db.Dirty())
	})

	t.Run("Dimension mismatch on open", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.feather")

		db, err := OpenOrCreate(path, 4)
		require.NoError(t, err)
		require.NoError(t, db.Save())
		require.NoError(t, db.Close())

		_, err = OpenOrCreate(path, 8)

		var dimErr *ErrDimensionMismatch
		assert.ErrorAs(t, err, &dimErr)
	})

	t.Run("Corrupt file rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.feather")
		require.NoError(t, os.WriteFile(path, []byte("JUNKJUNKJUNK"), 0o644))

		_, err := OpenOrCreate(path, 4)

		var corrupt *ErrCorruptFile
		assert.ErrorAs(t, err, &corrupt)
	})

	t.Run("Version-1 file loads with default metadata", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "v1.feather")

		var buf bytes.Buffer
		buf.Write(persistence.Magic[:])
		binary.Write(&buf, binary.LittleEndian, persistence.Version1)
		binary.Write(&buf, binary.LittleEndian, uint32(2))
		binary.Write(&buf, binary.LittleEndian, uint64(9))
		binary.Write(&buf, binary.LittleEndian, math.Float32bits(1))
		binary.Write(&buf, binary.LittleEndian, math.Float32bits(2))
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

		db, err := OpenOrCreate(path, 2)
		require.NoError(t, err)
		defer db.Close()

		results, err := db.Search([]float32{1, 2}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, uint64(9), results[0].ID)
		assert.Equal(t, int64(0), results[0].Meta.Timestamp)
		assert.Equal(t, float32(0.5), results[0].Meta.Importance)
		assert.Equal(t, metadata.TypeFact, results[0].Meta.Type)
	})
}

func TestSearchWithOptions(t *testing.T) {
	newPopulated := func(t *testing.T) *DB {
		t.Helper()

		db := New(2)

		add := func(id uint64, v []float32, typ metadata.Type, source string, ts int64, importance float32) {
			require.NoError(t, db.AddWithMetadata(id, v, metadata.Metadata{
				Timestamp:  ts,
				Importance: importance,
				Type:       typ,
				Source:     source,
			}))
		}

		add(1, []float32{1, 0}, metadata.TypeFact, "chat", 1000, 0.9)
		add(2, []float32{2, 0}, metadata.TypeEvent, "chat", 2000, 0.5)
		add(3, []float32{3, 0}, metadata.TypeEvent, "import", 3000, 0.2)
		add(4, []float32{4, 0}, metadata.TypePreference, "chat", 4000, 0.8)

		return db
	}

	t.Run("Type filter never returns other types", func(t *testing.T) {
		db := newPopulated(t)

		results, err := db.SearchWithOptions([]float32{0, 0}, 4, SearchOptions{
			Filter: &metadata.Filter{Types: []metadata.Type{metadata.TypeEvent}},
		})
		require.NoError(t, err)
		require.NotEmpty(t, results)

		for _, r := range results {
			assert.Equal(t, metadata.TypeEvent, r.Meta.Type)
		}
		assert.Len(t, results, 2)
	})

	t.Run("Source and importance filters compose", func(t *testing.T) {
		db := newPopulated(t)

		source := "chat"
		minImp := float32(0.7)
		results, err := db.SearchWithOptions([]float32{0, 0}, 4, SearchOptions{
			Filter: &metadata.Filter{Source: &source, MinImportance: &minImp},
		})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, uint64(1), results[0].ID)
		assert.Equal(t, uint64(4), results[1].ID)
	})

	t.Run("Selective filter can return fewer than k", func(t *testing.T) {
		db := newPopulated(t)

		source := "import"
		results, err := db.SearchWithOptions([]float32{0, 0}, 4, SearchOptions{
			Filter: &metadata.Filter{Source: &source},
		})
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("Scoring prefers recent important records", func(t *testing.T) {
		db := New(2)

		// Same distance from the query, very different recency.
		require.NoError(t, db.AddWithMetadata(1, []float32{1, 0}, metadata.Metadata{
			Timestamp: 0, Importance: 0.9, Type: metadata.TypeFact,
		}))
		require.NoError(t, db.AddWithMetadata(2, []float32{-1, 0}, metadata.Metadata{
			Timestamp: 10000, Importance: 0.9, Type: metadata.TypeFact,
		}))

		results, err := db.SearchWithOptions([]float32{0, 0}, 2, SearchOptions{
			Scoring: &scoring.Config{HalfLifeSeconds: 1000, RecencyWeight: 0.9},
			Now:     10000,
		})
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, uint64(2), results[0].ID)
		assert.Greater(t, results[0].Score, results[1].Score)
	})

	t.Run("Invalid scoring config rejected before search", func(t *testing.T) {
		db := newPopulated(t)

		_, err := db.SearchWithOptions([]float32{0, 0}, 2, SearchOptions{
			Scoring: &scoring.Config{HalfLifeSeconds: 0, RecencyWeight: 0.5},
		})

		var invalid *ErrInvalidConfig
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "HalfLifeSeconds", invalid.Field)

		_, err = db.SearchWithOptions([]float32{0, 0}, 2, SearchOptions{
			Scoring: &scoring.Config{HalfLifeSeconds: 100, RecencyWeight: 1.5},
		})
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("No scoring keeps distance order", func(t *testing.T) {
		db := newPopulated(t)

		results, err := db.SearchWithOptions([]float32{0, 0}, 4, SearchOptions{})
		require.NoError(t, err)
		require.Len(t, results, 4)

		for i := 1; i < len(results); i++ {
			assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
		}
		assert.Zero(t, results[0].Score)
	})
}

func TestConcurrentSearches(t *testing.T) {
	const dim = 8

	db := New(dim)

	rng := rand.New(rand.NewSource(21))
	for i := uint64(0); i < 200; i++ {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()
		}
		require.NoError(t, db.Add(i, v))
	}

	query := make([]float32, dim)
	for j := range query {
		query[j] = rng.Float32()
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			results, err := db.Search(query, 5)
			assert.NoError(t, err)
			assert.Len(t, results, 5)
		}()
	}
	wg.Wait()
}

func TestMetricsAndLogging(t *testing.T) {
	collector := &BasicMetricsCollector{}

	db := New(2,
		WithMetricsCollector(collector),
		WithLogger(NoopLogger()),
	)

	require.NoError(t, db.Add(1, []float32{1, 2}))
	require.Error(t, db.Add(1, []float32{1, 2}))

	_, err := db.Search([]float32{1, 2}, 1)
	require.NoError(t, err)

	assert.Equal(t, int64(2), collector.AddCount.Load())
	assert.Equal(t, int64(1), collector.AddErrors.Load())
	assert.Equal(t, int64(1), collector.SearchCount.Load())
}
