package consistency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mnemos-ai/mnemos/pkg/embedder"
	"github.com/mnemos-ai/mnemos/pkg/store"
	"github.com/mnemos-ai/mnemos/pkg/vector"
)

// ErrIndexPending is recorded internally when the vector index could not
// absorb a committed graph change. It reaches the reconciliation path,
// never the caller whose graph commit already succeeded.
var ErrIndexPending = errors.New("vector index update pending")

// RetryConfig bounds the index replay after a successful graph commit.
type RetryConfig struct {
	// Attempts is the number of index applications tried before the node
	// is marked index-pending.
	Attempts int
	// Backoff is the initial delay between attempts; it doubles each
	// retry.
	Backoff time.Duration
}

// DefaultRetryConfig keeps a failed index write from delaying a caller for
// more than roughly a second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 3, Backoff: 100 * time.Millisecond}
}

// Coordinator wraps every node-mutating operation so graph store and
// vector index changes commit or roll back together from the caller's
// perspective.
type Coordinator struct {
	store    store.GraphStore
	index    vector.Index
	provider embedder.Provider
	logger   *slog.Logger
	retry    RetryConfig

	mu    sync.Mutex
	locks map[string]*nodeLock
}

// nodeLock is a reference-counted per-node mutex; entries are dropped once
// no mutation holds or awaits them.
type nodeLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a Coordinator. A nil logger falls back to slog.Default().
func New(graphStore store.GraphStore, index vector.Index, provider embedder.Provider, retry RetryConfig, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if retry.Attempts <= 0 {
		retry = DefaultRetryConfig()
	}
	return &Coordinator{
		store:    graphStore,
		index:    index,
		provider: provider,
		logger:   logger,
		retry:    retry,
		locks:    make(map[string]*nodeLock),
	}
}

// Store exposes the underlying graph store for read paths.
func (c *Coordinator) Store() store.GraphStore { return c.store }

// Index exposes the vector index for read paths.
func (c *Coordinator) Index() vector.Index { return c.index }

// Provider exposes the embedding provider for read paths.
func (c *Coordinator) Provider() embedder.Provider { return c.provider }

// lock acquires the per-node mutexes for ids in sorted order, so edge
// operations touching a pair cannot deadlock against each other.
func (c *Coordinator) lock(ids ...string) func() {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Strings(unique)

	acquired := make([]*nodeLock, 0, len(unique))
	for _, id := range unique {
		c.mu.Lock()
		l, ok := c.locks[id]
		if !ok {
			l = &nodeLock{}
			c.locks[id] = l
		}
		l.refs++
		c.mu.Unlock()
		l.mu.Lock()
		acquired = append(acquired, l)
	}

	keys := unique
	return func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].mu.Unlock()
			c.mu.Lock()
			acquired[i].refs--
			if acquired[i].refs == 0 {
				delete(c.locks, keys[i])
			}
			c.mu.Unlock()
		}
	}
}

// CommitContent runs a mutation that creates a node or changes its
// content. The embedding is obtained before the graph transaction opens:
// a provider failure or timeout aborts the whole operation with no state
// change. apply receives the fresh embedding and must store it on the node
// record it writes.
func (c *Coordinator) CommitContent(ctx context.Context, nodeID, content string, apply func(tx store.Tx, embedding []float32) error) error {
	unlock := c.lock(nodeID)
	defer unlock()

	embedding, err := c.provider.EmbedSingle(ctx, content)
	if err != nil {
		return err
	}

	if err := c.store.Update(ctx, func(tx store.Tx) error {
		return apply(tx, embedding)
	}); err != nil {
		return err
	}

	c.applyIndex(ctx, nodeID, func(ctx context.Context) error {
		return c.index.Upsert(ctx, nodeID, embedding)
	})
	return nil
}

// CommitDelete runs a node removal: the graph transaction cascades edges
// and drops the node, then the index entry is deleted with replay.
func (c *Coordinator) CommitDelete(ctx context.Context, nodeID string, apply func(tx store.Tx) error) error {
	unlock := c.lock(nodeID)
	defer unlock()

	if err := c.store.Update(ctx, apply); err != nil {
		return err
	}

	c.applyIndex(ctx, nodeID, func(ctx context.Context) error {
		return c.index.Delete(ctx, nodeID)
	})
	return nil
}

// CommitGraph runs a mutation that touches only graph structure or
// derived state (edges, confidence, supersession, clarification). The
// vector index is unaffected, so no staging is needed beyond the per-node
// serialization.
func (c *Coordinator) CommitGraph(ctx context.Context, ids []string, apply func(tx store.Tx) error) error {
	unlock := c.lock(ids...)
	defer unlock()
	return c.store.Update(ctx, apply)
}

// applyIndex replays an index mutation with exponential backoff. On
// exhaustion the node is marked index-pending for the reconciler; the
// caller's request is not failed, because the graph store already
// committed.
func (c *Coordinator) applyIndex(ctx context.Context, nodeID string, op func(ctx context.Context) error) {
	backoff := c.retry.Backoff
	var lastErr error
	for attempt := 0; attempt < c.retry.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = c.retry.Attempts
			case <-time.After(backoff):
				backoff *= 2
			}
			if lastErr != nil {
				break
			}
		}
		if lastErr = op(ctx); lastErr == nil {
			return
		}
	}

	c.logger.Warn("vector index update failed, marking node index-pending",
		"node_id", nodeID,
		"error", lastErr)

	markErr := c.store.Update(context.WithoutCancel(ctx), func(tx store.Tx) error {
		return tx.MarkPending(nodeID)
	})
	if markErr != nil {
		// Both the index and the pending marker failed; the reconciler
		// cannot see this node, so shout.
		c.logger.Error("failed to record index-pending marker",
			"node_id", nodeID,
			"index_error", fmt.Sprintf("%v", lastErr),
			"error", markErr)
	}
}
