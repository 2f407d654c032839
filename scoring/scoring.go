// Package scoring re-ranks search candidates by blending vector similarity
// with an importance-weighted exponential time decay.
package scoring

import (
	"fmt"
	"math"
)

// SimilarityFunc converts a raw distance to a similarity in (0, 1].
type SimilarityFunc func(distance float32) float32

// InverseDistance is the default distance-to-similarity transform,
// 1 / (1 + d). Monotonically decreasing, 1 at distance zero.
func InverseDistance(distance float32) float32 {
	return 1 / (1 + distance)
}

// ErrInvalidConfig is a named error type for scoring configurations that
// fail validation.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

// Error returns the error message for an invalid scoring config.
func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid scoring config: %s %s", e.Field, e.Reason)
}

// Config controls how candidates are re-ranked.
type Config struct {
	// HalfLifeSeconds is the time for a record's recency contribution to
	// halve. Must be positive.
	HalfLifeSeconds float64

	// RecencyWeight blends recency against similarity:
	// final = (1-w)*similarity + w*recency. Must be in [0, 1].
	RecencyWeight float64

	// Similarity converts distance to similarity. Nil means InverseDistance.
	Similarity SimilarityFunc
}

// Validate rejects configurations before any query work is done.
func (c *Config) Validate() error {
	if c.HalfLifeSeconds <= 0 {
		return &ErrInvalidConfig{Field: "HalfLifeSeconds", Reason: "must be positive"}
	}

	if c.RecencyWeight < 0 || c.RecencyWeight > 1 {
		return &ErrInvalidConfig{Field: "RecencyWeight", Reason: "must be in [0, 1]"}
	}

	return nil
}

func (c *Config) similarity(distance float32) float64 {
	fn := c.Similarity
	if fn == nil {
		fn = InverseDistance
	}
	return float64(fn(distance))
}

// Recency computes importance * exp(-ln2/halfLife * age), where age is
// now - timestamp in seconds, clamped to zero for future timestamps.
func (c *Config) Recency(now, timestamp int64, importance float32) float64 {
	age := float64(now - timestamp)
	if age < 0 {
		age = 0
	}

	decay := math.Exp(-math.Ln2 / c.HalfLifeSeconds * age)
	return float64(importance) * decay
}

// Score computes the final blended score of a candidate.
func (c *Config) Score(distance float32, now, timestamp int64, importance float32) float64 {
	sim := c.similarity(distance)
	rec := c.Recency(now, timestamp, importance)
	return (1-c.RecencyWeight)*sim + c.RecencyWeight*rec
}
