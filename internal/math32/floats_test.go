package math32

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDot(t *testing.T) {
	t.Run("Exact multiple of four", func(t *testing.T) {
		a := []float32{1, 2, 3, 4}
		b := []float32{5, 6, 7, 8}
		assert.InDelta(t, 70.0, Dot(a, b), 1e-6)
	})

	t.Run("Tail elements", func(t *testing.T) {
		a := []float32{1, 2, 3, 4, 5, 6}
		b := []float32{1, 1, 1, 1, 1, 1}
		assert.InDelta(t, 21.0, Dot(a, b), 1e-6)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, float32(0), Dot(nil, nil))
	})
}

func TestSquaredL2(t *testing.T) {
	t.Run("Known distance", func(t *testing.T) {
		a := []float32{0, 0, 0, 0}
		b := []float32{1, 2, 3, 4}
		assert.InDelta(t, 30.0, SquaredL2(a, b), 1e-6)
	})

	t.Run("Identical vectors", func(t *testing.T) {
		v := []float32{0.1, 0.2, 0.3, 0.4, 0.5}
		assert.Equal(t, float32(0), SquaredL2(v, v))
	})
}

func TestScaleInPlace(t *testing.T) {
	v := []float32{1, 2, 3}
	ScaleInPlace(v, 2)
	assert.Equal(t, []float32{2, 4, 6}, v)
}
