// Package embedding wraps remote embedding generation behind a small
// interface shared by the search orchestrator and the sync manager.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder generates a fixed-dimensionality vector for a piece of text.
// The dimension must match the vector index's configured dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// ComputeHash returns the SHA-256 hex digest of text, used as a cache key.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// Deterministic is a dependency-free embedder that hashes tokens into a
// normalized bag-of-words vector. Texts sharing vocabulary land near each
// other, which is enough for tests and offline development.
type Deterministic struct {
	dimension int
}

// NewDeterministic creates a deterministic embedder of the given dimension.
func NewDeterministic(dimension int) *Deterministic {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Deterministic{dimension: dimension}
}

// Embed implements Embedder.
func (d *Deterministic) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	vec := make([]float32, d.dimension)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[int(h.Sum32())%d.dimension]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}

	return vec, nil
}

// Dimension implements Embedder.
func (d *Deterministic) Dimension() int { return d.dimension }
