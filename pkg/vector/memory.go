package vector

import (
	"context"
	"sort"
	"sync"
)

// MemoryIndex is an exact in-process index: a cosine scan over all stored
// vectors under a read-write mutex. Writes serialize; searches run
// concurrently. Suitable for embedded deployments where the node count
// stays in the tens of thousands.
type MemoryIndex struct {
	mu         sync.RWMutex
	vectors    map[string][]float32
	dimensions int
}

var _ Index = (*MemoryIndex)(nil)

// NewMemoryIndex creates an empty index. dimensions of 0 disables the
// dimension check (the first upsert fixes it).
func NewMemoryIndex(dimensions int) *MemoryIndex {
	return &MemoryIndex{
		vectors:    make(map[string][]float32),
		dimensions: dimensions,
	}
}

func (m *MemoryIndex) Upsert(ctx context.Context, id string, vec []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimensions == 0 {
		m.dimensions = len(vec)
	}
	if len(vec) != m.dimensions {
		return ErrDimensionMismatch
	}
	stored := make([]float32, len(vec))
	copy(stored, vec)
	m.vectors[id] = stored
	return nil
}

// Delete is idempotent: removing an absent id is not an error, which lets
// the coordinator replay deletes safely.
func (m *MemoryIndex) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vectors, id)
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, vec []float32, k int) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	hits := make([]Hit, 0, len(m.vectors))
	for id, stored := range m.vectors {
		hits = append(hits, Hit{ID: id, Similarity: Cosine(vec, stored)})
	}
	m.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *MemoryIndex) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors), nil
}

func (m *MemoryIndex) Close() error {
	return nil
}
