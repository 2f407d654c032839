package feather

import (
	"context"
	"testing"

	"github.com/featherdb/feather/blobstore"
	"github.com/featherdb/feather/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobSnapshot(t *testing.T) {
	ctx := context.Background()

	newPopulated := func(t *testing.T) *DB {
		t.Helper()

		db := New(3)
		require.NoError(t, db.Add(1, []float32{1, 2, 3}))
		require.NoError(t, db.AddWithMetadata(2, []float32{4, 5, 6}, metadata.Metadata{
			Timestamp:  1700000000,
			Importance: 0.7,
			Type:       metadata.TypeEvent,
			Source:     "chat",
		}))
		return db
	}

	t.Run("Round-trip through memory store", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		db := newPopulated(t)

		require.NoError(t, db.SaveToBlobStore(ctx, store, "snap"))

		loaded, err := LoadFromBlobStore(ctx, store, "snap")
		require.NoError(t, err)
		defer loaded.Close()

		require.Equal(t, 2, loaded.Len())
		assert.Equal(t, 3, loaded.Dimension())

		results, err := loaded.Search([]float32{4, 5, 6}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, uint64(2), results[0].ID)
		assert.Equal(t, metadata.TypeEvent, results[0].Meta.Type)
	})

	t.Run("Round-trip through compressed local store", func(t *testing.T) {
		local, err := blobstore.NewLocalStore(t.TempDir())
		require.NoError(t, err)

		codec, err := blobstore.NewZstdCodec()
		require.NoError(t, err)

		store := blobstore.NewCompressedStore(local, codec)

		db := newPopulated(t)
		require.NoError(t, db.SaveToBlobStore(ctx, store, "snap"))

		loaded, err := LoadFromBlobStore(ctx, store, "snap")
		require.NoError(t, err)
		defer loaded.Close()

		assert.Equal(t, 2, loaded.Len())
	})

	t.Run("Missing blob", func(t *testing.T) {
		_, err := LoadFromBlobStore(ctx, blobstore.NewMemoryStore(), "nope")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("Closed database cannot snapshot", func(t *testing.T) {
		db := newPopulated(t)
		require.NoError(t, db.Close())

		err := db.SaveToBlobStore(ctx, blobstore.NewMemoryStore(), "snap")
		assert.ErrorIs(t, err, ErrClosed)
	})
}
