package vector

import (
	"context"
	"errors"
	"math"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// index's configured dimensionality.
var ErrDimensionMismatch = errors.New("vector: dimension mismatch")

// Hit is one similarity-search result. Similarity is cosine similarity in
// [-1, 1]; implementations backed by a certainty metric convert to cosine.
type Hit struct {
	ID         string  `json:"id"`
	Similarity float64 `json:"similarity"`
}

// Index is the vector index capability: one entry per live node, keyed by
// node id. Upsert must be idempotent so the coordinator can replay it
// during index-pending recovery.
type Index interface {
	Upsert(ctx context.Context, id string, vec []float32) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, vec []float32, k int) ([]Hit, error)
	Len(ctx context.Context) (int, error)
	Close() error
}

// Cosine returns the cosine similarity between two vectors, or 0 when
// either has zero magnitude or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
