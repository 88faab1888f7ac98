package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashProvider produces deterministic embeddings from token hashes. Texts
// sharing words land near each other, distinct texts get distinct vectors,
// and no network is involved. Useful for tests and offline development;
// not a substitute for a real embedding model.
type HashProvider struct {
	dimensions int
}

var _ Provider = (*HashProvider)(nil)

// NewHashProvider creates a provider emitting vectors of the given length.
func NewHashProvider(dimensions int) *HashProvider {
	if dimensions <= 0 {
		dimensions = 64
	}
	return &HashProvider{dimensions: dimensions}
}

func (h *HashProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = h.encode(text)
	}
	return embeddings, nil
}

func (h *HashProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.encode(text), nil
}

func (h *HashProvider) Dimensions() int {
	return h.dimensions
}

func (h *HashProvider) Close() error {
	return nil
}

// encode buckets each token into the vector by hash, then L2-normalizes so
// cosine similarity behaves like a bag-of-words overlap measure.
func (h *HashProvider) encode(text string) []float32 {
	vec := make([]float32, h.dimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(token))
		vec[int(hasher.Sum32())%h.dimensions]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// Empty text still gets a stable non-zero vector.
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
