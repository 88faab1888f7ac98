package consistency

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mnemos-ai/mnemos/pkg/store"
	"github.com/mnemos-ai/mnemos/pkg/types"
	"github.com/mnemos-ai/mnemos/pkg/vector"
)

// DefaultReconcileInterval is how often the reconciler sweeps the
// index-pending set when the config does not override it.
const DefaultReconcileInterval = 30 * time.Second

// Reconciler repairs graph-store / vector-index divergence. It sweeps the
// index-pending set on an interval and replays each node's committed state
// into the index: present nodes are re-upserted from the embedding stored
// on their graph record, deleted nodes have their index entry removed.
type Reconciler struct {
	store    store.GraphStore
	index    vector.Index
	logger   *slog.Logger
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconciler creates a Reconciler sweeping at the given interval. A
// non-positive interval falls back to DefaultReconcileInterval.
func NewReconciler(graphStore store.GraphStore, index vector.Index, interval time.Duration, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return &Reconciler{
		store:    graphStore,
		index:    index,
		logger:   logger,
		interval: interval,
	}
}

// Start launches the background sweep loop. It is a no-op if the loop is
// already running.
func (r *Reconciler) Start(ctx context.Context) {
	if r.done != nil {
		return
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.run(ctx)
}

// Stop halts the sweep loop and waits for the in-flight sweep to finish.
func (r *Reconciler) Stop() {
	if r.done == nil {
		return
	}
	r.cancel()
	<-r.done
	r.done = nil
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if repaired, err := r.ReconcileOnce(ctx); err != nil {
				r.logger.Warn("index reconciliation sweep failed", "error", err)
			} else if repaired > 0 {
				r.logger.Info("index reconciliation repaired nodes", "count", repaired)
			}
		}
	}
}

// ReconcileOnce drains the index-pending set and returns how many nodes it
// repaired. Nodes whose index write still fails stay pending for the next
// sweep.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (int, error) {
	pending, err := r.store.Pending(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, id := range pending {
		if err := ctx.Err(); err != nil {
			return repaired, err
		}
		if err := r.reconcileNode(ctx, id); err != nil {
			r.logger.Warn("node still index-pending after sweep",
				"node_id", id,
				"error", err)
			continue
		}
		repaired++
	}
	return repaired, nil
}

// reconcileNode replays one node's committed state into the index and
// clears its pending marker on success.
func (r *Reconciler) reconcileNode(ctx context.Context, id string) error {
	var node *types.Node
	err := r.store.View(ctx, func(tx store.Tx) error {
		n, err := tx.GetNode(id)
		if err != nil {
			return err
		}
		node = n
		return nil
	})
	switch {
	case errors.Is(err, types.ErrNodeNotFound):
		// The node was deleted after the marker was set; the index entry,
		// if any, must go too.
		if err := r.index.Delete(ctx, id); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if err := r.index.Upsert(ctx, id, node.Embedding); err != nil {
			return err
		}
	}

	return r.store.Update(ctx, func(tx store.Tx) error {
		return tx.ClearPending(id)
	})
}
