// Package math32 provides float32 vector kernels used by the metric package.
// The hot loops are manually unrolled four lanes wide so the compiler can
// keep the accumulators in registers and vectorize on amd64/arm64.
package math32

import "math"

// Dot calculates the dot product of two vectors.
// Assumes len(a) == len(b) (caller's responsibility).
func Dot(a, b []float32) float32 {
	var s0, s1, s2, s3 float32

	n := len(a) &^ 3
	for i := 0; i < n; i += 4 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}

	s := s0 + s1 + s2 + s3
	for i := n; i < len(a); i++ {
		s += a[i] * b[i]
	}

	return s
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes len(a) == len(b) (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var s0, s1, s2, s3 float32

	n := len(a) &^ 3
	for i := 0; i < n; i += 4 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}

	s := s0 + s1 + s2 + s3
	for i := n; i < len(a); i++ {
		d := a[i] - b[i]
		s += d * d
	}

	return s
}

// Sqrt returns the square root of x.
func Sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

// ScaleInPlace multiplies all elements of a by scalar.
func ScaleInPlace(a []float32, scalar float32) {
	for i := range a {
		a[i] *= scalar
	}
}
