package feather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Run("Register and get", func(t *testing.T) {
		r := NewRegistry()

		db := New(2)
		h := r.Register(db)
		require.NotZero(t, h)

		got, err := r.Get(h)
		require.NoError(t, err)
		assert.Same(t, db, got)
		assert.Equal(t, 1, r.Len())
	})

	t.Run("Handles are distinct", func(t *testing.T) {
		r := NewRegistry()

		h1 := r.Register(New(2))
		h2 := r.Register(New(2))
		assert.NotEqual(t, h1, h2)
	})

	t.Run("Release closes the database", func(t *testing.T) {
		r := NewRegistry()

		db := New(2)
		h := r.Register(db)

		require.NoError(t, r.Release(h))
		assert.Equal(t, 0, r.Len())

		_, err := r.Get(h)
		assert.ErrorIs(t, err, ErrInvalidHandle)

		assert.ErrorIs(t, db.Add(1, []float32{1, 2}), ErrClosed)
	})

	t.Run("Double release fails", func(t *testing.T) {
		r := NewRegistry()

		h := r.Register(New(2))
		require.NoError(t, r.Release(h))
		assert.ErrorIs(t, r.Release(h), ErrInvalidHandle)
	})

	t.Run("Unknown handle", func(t *testing.T) {
		r := NewRegistry()

		_, err := r.Get(42)
		assert.ErrorIs(t, err, ErrInvalidHandle)

		assert.ErrorIs(t, r.Release(0), ErrInvalidHandle)
	})
}
