package consistency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemos-ai/mnemos/pkg/embedder"
	"github.com/mnemos-ai/mnemos/pkg/store"
	"github.com/mnemos-ai/mnemos/pkg/types"
	"github.com/mnemos-ai/mnemos/pkg/vector"
)

// brokenIndex fails every mutation until healed, to exercise the
// index-pending path.
type brokenIndex struct {
	*vector.MemoryIndex
	healed bool
}

func (b *brokenIndex) Upsert(ctx context.Context, id string, vec []float32) error {
	if !b.healed {
		return errors.New("index unreachable")
	}
	return b.MemoryIndex.Upsert(ctx, id, vec)
}

func (b *brokenIndex) Delete(ctx context.Context, id string) error {
	if !b.healed {
		return errors.New("index unreachable")
	}
	return b.MemoryIndex.Delete(ctx, id)
}

// downProvider models an unreachable embedding endpoint.
type downProvider struct{}

func (d *downProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, embedder.ErrUnavailable
}

func (d *downProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return nil, embedder.ErrUnavailable
}

func (d *downProvider) Dimensions() int { return 8 }
func (d *downProvider) Close() error    { return nil }

func newTestStore(t *testing.T) store.GraphStore {
	t.Helper()
	s, err := store.OpenBadger(store.InMemoryBadgerConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fastRetry() RetryConfig {
	return RetryConfig{Attempts: 2, Backoff: time.Millisecond}
}

func putNode(tx store.Tx, id string, embedding []float32) error {
	now := time.Now().UTC()
	return tx.PutNode(&types.Node{
		ID:         id,
		Type:       types.FactNodeType,
		Content:    "the default region is us-east-1",
		Confidence: types.ConfidenceDefault,
		Embedding:  embedding,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

func TestCommitContentWritesStoreAndIndex(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	idx := vector.NewMemoryIndex(8)
	c := New(s, idx, embedder.NewHashProvider(8), fastRetry(), nil)

	err := c.CommitContent(ctx, "n1", "the default region is us-east-1", func(tx store.Tx, embedding []float32) error {
		return putNode(tx, "n1", embedding)
	})
	require.NoError(t, err)

	err = s.View(ctx, func(tx store.Tx) error {
		n, err := tx.GetNode("n1")
		if err != nil {
			return err
		}
		assert.NotEmpty(t, n.Embedding)
		return nil
	})
	require.NoError(t, err)

	count, err := idx.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCommitContentAbortsWhenEmbedderDown(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	idx := vector.NewMemoryIndex(8)
	c := New(s, idx, &downProvider{}, fastRetry(), nil)

	applied := false
	err := c.CommitContent(ctx, "n1", "anything", func(tx store.Tx, embedding []float32) error {
		applied = true
		return putNode(tx, "n1", embedding)
	})
	assert.ErrorIs(t, err, embedder.ErrUnavailable)
	assert.False(t, applied, "mutation must not run when embedding fails")

	err = s.View(ctx, func(tx store.Tx) error {
		_, err := tx.GetNode("n1")
		return err
	})
	assert.ErrorIs(t, err, types.ErrNodeNotFound)

	count, err := idx.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCommitContentRollsBackOnApplyError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	idx := vector.NewMemoryIndex(8)
	c := New(s, idx, embedder.NewHashProvider(8), fastRetry(), nil)

	boom := errors.New("constraint violated")
	err := c.CommitContent(ctx, "n1", "anything", func(tx store.Tx, embedding []float32) error {
		if err := putNode(tx, "n1", embedding); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.View(ctx, func(tx store.Tx) error {
		_, err := tx.GetNode("n1")
		return err
	})
	assert.ErrorIs(t, err, types.ErrNodeNotFound)

	count, err := idx.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "index must stay untouched when the transaction rolls back")
}

func TestIndexFailureMarksPendingWithoutFailingCaller(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	idx := &brokenIndex{MemoryIndex: vector.NewMemoryIndex(8)}
	c := New(s, idx, embedder.NewHashProvider(8), fastRetry(), nil)

	err := c.CommitContent(ctx, "n1", "the default region is us-east-1", func(tx store.Tx, embedding []float32) error {
		return putNode(tx, "n1", embedding)
	})
	require.NoError(t, err, "a post-commit index failure must not surface")

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, pending)

	// The graph commit stands.
	err = s.View(ctx, func(tx store.Tx) error {
		_, err := tx.GetNode("n1")
		return err
	})
	require.NoError(t, err)
}

func TestReconcilerRepairsPendingNode(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	idx := &brokenIndex{MemoryIndex: vector.NewMemoryIndex(8)}
	c := New(s, idx, embedder.NewHashProvider(8), fastRetry(), nil)

	require.NoError(t, c.CommitContent(ctx, "n1", "content", func(tx store.Tx, embedding []float32) error {
		return putNode(tx, "n1", embedding)
	}))

	idx.healed = true
	r := NewReconciler(s, idx, time.Second, nil)
	repaired, err := r.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	count, err := idx.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestReconcilerDropsPendingForDeletedNode(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	idx := &brokenIndex{MemoryIndex: vector.NewMemoryIndex(8)}
	c := New(s, idx, embedder.NewHashProvider(8), fastRetry(), nil)

	require.NoError(t, c.CommitContent(ctx, "n1", "content", func(tx store.Tx, embedding []float32) error {
		return putNode(tx, "n1", embedding)
	}))
	require.NoError(t, c.CommitDelete(ctx, "n1", func(tx store.Tx) error {
		return tx.DeleteNode("n1")
	}))

	idx.healed = true
	r := NewReconciler(s, idx, time.Second, nil)
	_, err := r.ReconcileOnce(ctx)
	require.NoError(t, err)

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	count, err := idx.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReconcilerLeavesStillFailingNodesPending(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	idx := &brokenIndex{MemoryIndex: vector.NewMemoryIndex(8)}
	c := New(s, idx, embedder.NewHashProvider(8), fastRetry(), nil)

	require.NoError(t, c.CommitContent(ctx, "n1", "content", func(tx store.Tx, embedding []float32) error {
		return putNode(tx, "n1", embedding)
	}))

	r := NewReconciler(s, idx, time.Second, nil)
	repaired, err := r.ReconcileOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, repaired)

	pending, err := s.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"n1"}, pending)
}

func TestCommitDeleteRemovesIndexEntry(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	idx := vector.NewMemoryIndex(8)
	c := New(s, idx, embedder.NewHashProvider(8), fastRetry(), nil)

	require.NoError(t, c.CommitContent(ctx, "n1", "content", func(tx store.Tx, embedding []float32) error {
		return putNode(tx, "n1", embedding)
	}))
	require.NoError(t, c.CommitDelete(ctx, "n1", func(tx store.Tx) error {
		return tx.DeleteNode("n1")
	}))

	count, err := idx.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCommitGraphSerializesConcurrentPairMutations(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	idx := vector.NewMemoryIndex(8)
	c := New(s, idx, embedder.NewHashProvider(8), fastRetry(), nil)

	for _, id := range []string{"a", "b"} {
		require.NoError(t, c.CommitContent(ctx, id, "content "+id, func(tx store.Tx, embedding []float32) error {
			return putNode(tx, id, embedding)
		}))
	}

	// Opposite lock orders must not deadlock; sorted acquisition makes both
	// goroutines take "a" then "b".
	done := make(chan error, 2)
	link := func(from, to string, edgeType types.EdgeType) {
		done <- c.CommitGraph(ctx, []string{from, to}, func(tx store.Tx) error {
			return tx.PutEdge(&types.Edge{
				FromID:    from,
				ToID:      to,
				Type:      edgeType,
				CreatedAt: time.Now().UTC(),
			})
		})
	}
	go link("a", "b", types.RelatedToEdge)
	go link("b", "a", types.DerivedFromEdge)

	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("concurrent pair mutations deadlocked")
		}
	}
}
