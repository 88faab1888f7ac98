package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/mnemos-ai/mnemos/pkg/types"
)

// Key layout. Node and edge ids are UUIDs and edge types are fixed tokens,
// so ':' is a safe separator.
//
//	n:<id>                  node record (JSON)
//	e:<from>:<type>:<to>    edge record (JSON)
//	r:<to>:<type>:<from>    reverse index entry (value is the edge key)
//	p:<id>                  index-pending marker
const (
	nodePrefix    = "n:"
	edgePrefix    = "e:"
	reversePrefix = "r:"
	pendingPrefix = "p:"
)

// BadgerConfig holds configuration for the embedded store.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is
	// true.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful for
	// testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logging. If nil, internal
	// logging is disabled.
	Logger *slog.Logger

	// GCInterval is how often to run value log garbage collection.
	// Set to 0 to disable.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	GCDiscardRatio float64
}

// DefaultBadgerConfig returns production defaults: durable writes and a
// five minute GC cadence.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryBadgerConfig returns a configuration for tests: no disk I/O, no
// GC loop.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// BadgerStore implements GraphStore on an embedded BadgerDB instance.
// Badger transactions are serializable, so Update acts as the commit
// authority without any external coordination.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
	gcStop chan struct{}
}

var _ GraphStore = (*BadgerStore)(nil)

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens (creating if necessary) a BadgerStore with the given
// configuration.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("store: badger path must not be empty")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("store: create badger directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(cfg.SyncWrites)
	}

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &BadgerStore{db: db, logger: logger, gcStop: make(chan struct{})}
	if !cfg.InMemory && cfg.GCInterval > 0 {
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

func (s *BadgerStore) runGC(interval time.Duration, discardRatio float64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.gcStop:
			return
		case <-ticker.C:
			// RunValueLogGC returns ErrNoRewrite when there is nothing
			// worth collecting; that is not a failure.
			if err := s.db.RunValueLogGC(discardRatio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("badger value log GC failed", "error", err)
			}
		}
	}
}

// Close stops the GC loop and closes the database.
func (s *BadgerStore) Close() error {
	close(s.gcStop)
	return s.db.Close()
}

// badgerTx implements Tx over a single badger transaction.
type badgerTx struct {
	txn      *badger.Txn
	writable bool
}

var _ Tx = (*badgerTx)(nil)

func nodeKey(id string) []byte {
	return []byte(nodePrefix + id)
}

func edgeKey(from string, edgeType types.EdgeType, to string) []byte {
	return []byte(edgePrefix + from + ":" + string(edgeType) + ":" + to)
}

func reverseKey(to string, edgeType types.EdgeType, from string) []byte {
	return []byte(reversePrefix + to + ":" + string(edgeType) + ":" + from)
}

func pendingKey(id string) []byte {
	return []byte(pendingPrefix + id)
}

func (t *badgerTx) GetNode(id string) (*types.Node, error) {
	item, err := t.txn.Get(nodeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, types.ErrNodeNotFound
	}
	if err != nil {
		return nil, &types.StorageError{Op: "get node", Err: err}
	}
	var node types.Node
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &node)
	}); err != nil {
		return nil, &types.StorageError{Op: "decode node", Err: err}
	}
	return &node, nil
}

func (t *badgerTx) PutNode(n *types.Node) error {
	if !t.writable {
		return &types.StorageError{Op: "put node", Err: badger.ErrReadOnlyTxn}
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return &types.StorageError{Op: "encode node", Err: err}
	}
	if err := t.txn.Set(nodeKey(n.ID), raw); err != nil {
		return &types.StorageError{Op: "put node", Err: err}
	}
	return nil
}

func (t *badgerTx) DeleteNode(id string) error {
	if !t.writable {
		return &types.StorageError{Op: "delete node", Err: badger.ErrReadOnlyTxn}
	}
	if _, err := t.GetNode(id); err != nil {
		return err
	}
	// Cascade: drop every incident edge before the node record.
	edges, err := t.EdgesOf(id, types.DirectionBoth, nil)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if err := t.DeleteEdge(e.FromID, e.ToID, e.Type); err != nil {
			return err
		}
	}
	if err := t.txn.Delete(nodeKey(id)); err != nil {
		return &types.StorageError{Op: "delete node", Err: err}
	}
	if err := t.txn.Delete(pendingKey(id)); err != nil {
		return &types.StorageError{Op: "delete node pending marker", Err: err}
	}
	return nil
}

func (t *badgerTx) GetEdge(from, to string, edgeType types.EdgeType) (*types.Edge, error) {
	item, err := t.txn.Get(edgeKey(from, edgeType, to))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, types.ErrEdgeNotFound
	}
	if err != nil {
		return nil, &types.StorageError{Op: "get edge", Err: err}
	}
	var edge types.Edge
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &edge)
	}); err != nil {
		return nil, &types.StorageError{Op: "decode edge", Err: err}
	}
	return &edge, nil
}

func (t *badgerTx) PutEdge(e *types.Edge) error {
	if !t.writable {
		return &types.StorageError{Op: "put edge", Err: badger.ErrReadOnlyTxn}
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return &types.StorageError{Op: "encode edge", Err: err}
	}
	key := edgeKey(e.FromID, e.Type, e.ToID)
	if err := t.txn.Set(key, raw); err != nil {
		return &types.StorageError{Op: "put edge", Err: err}
	}
	if err := t.txn.Set(reverseKey(e.ToID, e.Type, e.FromID), key); err != nil {
		return &types.StorageError{Op: "put edge reverse index", Err: err}
	}
	return nil
}

func (t *badgerTx) DeleteEdge(from, to string, edgeType types.EdgeType) error {
	if !t.writable {
		return &types.StorageError{Op: "delete edge", Err: badger.ErrReadOnlyTxn}
	}
	if _, err := t.GetEdge(from, to, edgeType); err != nil {
		return err
	}
	if err := t.txn.Delete(edgeKey(from, edgeType, to)); err != nil {
		return &types.StorageError{Op: "delete edge", Err: err}
	}
	if err := t.txn.Delete(reverseKey(to, edgeType, from)); err != nil {
		return &types.StorageError{Op: "delete edge reverse index", Err: err}
	}
	return nil
}

func (t *badgerTx) EdgesOf(id string, dir types.Direction, edgeTypes []types.EdgeType) ([]*types.Edge, error) {
	wantType := func(et types.EdgeType) bool {
		if len(edgeTypes) == 0 {
			return true
		}
		for _, allowed := range edgeTypes {
			if et == allowed {
				return true
			}
		}
		return false
	}

	var edges []*types.Edge
	appendEdge := func(val []byte) error {
		var edge types.Edge
		if err := json.Unmarshal(val, &edge); err != nil {
			return err
		}
		if wantType(edge.Type) {
			edges = append(edges, &edge)
		}
		return nil
	}

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true

	if dir == types.DirectionOutgoing || dir == types.DirectionBoth {
		prefix := []byte(edgePrefix + id + ":")
		it := t.txn.NewIterator(opts)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(appendEdge); err != nil {
				it.Close()
				return nil, &types.StorageError{Op: "scan outgoing edges", Err: err}
			}
		}
		it.Close()
	}

	if dir == types.DirectionIncoming || dir == types.DirectionBoth {
		prefix := []byte(reversePrefix + id + ":")
		it := t.txn.NewIterator(opts)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var edgeK []byte
			if err := it.Item().Value(func(val []byte) error {
				edgeK = append([]byte(nil), val...)
				return nil
			}); err != nil {
				it.Close()
				return nil, &types.StorageError{Op: "scan incoming edges", Err: err}
			}
			item, err := t.txn.Get(edgeK)
			if err != nil {
				it.Close()
				return nil, &types.StorageError{Op: "resolve reverse index", Err: err}
			}
			if err := item.Value(appendEdge); err != nil {
				it.Close()
				return nil, &types.StorageError{Op: "decode incoming edge", Err: err}
			}
		}
		it.Close()
	}

	return edges, nil
}

func (t *badgerTx) MarkPending(id string) error {
	if !t.writable {
		return &types.StorageError{Op: "mark pending", Err: badger.ErrReadOnlyTxn}
	}
	if err := t.txn.Set(pendingKey(id), []byte(time.Now().UTC().Format(time.RFC3339Nano))); err != nil {
		return &types.StorageError{Op: "mark pending", Err: err}
	}
	return nil
}

func (t *badgerTx) ClearPending(id string) error {
	if !t.writable {
		return &types.StorageError{Op: "clear pending", Err: badger.ErrReadOnlyTxn}
	}
	if err := t.txn.Delete(pendingKey(id)); err != nil {
		return &types.StorageError{Op: "clear pending", Err: err}
	}
	return nil
}

// Update runs fn in a serializable read-write transaction.
func (s *BadgerStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn, writable: true})
	})
}

// View runs fn against a consistent snapshot.
func (s *BadgerStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
}

// Conflicts returns unresolved contradicts pairs, oldest edge first.
func (s *BadgerStore) Conflicts(ctx context.Context) ([]types.Conflict, error) {
	var conflicts []types.Conflict
	err := s.View(ctx, func(tx Tx) error {
		bt := tx.(*badgerTx)
		opts := badger.DefaultIteratorOptions
		it := bt.txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(edgePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			if !bytes.Contains(key, []byte(":"+string(types.ContradictsEdge)+":")) {
				continue
			}
			var edge types.Edge
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &edge)
			}); err != nil {
				return &types.StorageError{Op: "decode conflict edge", Err: err}
			}
			if edge.Type != types.ContradictsEdge {
				continue
			}
			from, err := tx.GetNode(edge.FromID)
			if err != nil {
				return err
			}
			to, err := tx.GetNode(edge.ToID)
			if err != nil {
				return err
			}
			// Superseding either side resolves the conflict without
			// removing the edge.
			if from.Superseded || to.Superseded {
				continue
			}
			conflicts = append(conflicts, types.Conflict{
				FromID:    edge.FromID,
				ToID:      edge.ToID,
				CreatedAt: edge.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].CreatedAt.Before(conflicts[j].CreatedAt)
	})
	return conflicts, nil
}

// Orphans returns nodes with no incident edges, ordered by creation time.
func (s *BadgerStore) Orphans(ctx context.Context) ([]*types.Node, error) {
	var orphans []*types.Node
	err := s.View(ctx, func(tx Tx) error {
		bt := tx.(*badgerTx)
		return scanNodes(bt, func(n *types.Node) error {
			if hasIncident(bt, n.ID) {
				return nil
			}
			orphans = append(orphans, n)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(orphans, func(i, j int) bool {
		return orphans[i].CreatedAt.Before(orphans[j].CreatedAt)
	})
	return orphans, nil
}

// Nodes streams every node through fn within one snapshot.
func (s *BadgerStore) Nodes(ctx context.Context, fn func(n *types.Node) error) error {
	return s.View(ctx, func(tx Tx) error {
		return scanNodes(tx.(*badgerTx), fn)
	})
}

// Pending returns the ids in the index-pending set.
func (s *BadgerStore) Pending(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.View(ctx, func(tx Tx) error {
		bt := tx.(*badgerTx)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := bt.txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(pendingPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), pendingPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Stats summarizes the graph within one snapshot.
func (s *BadgerStore) Stats(ctx context.Context) (*types.GraphStats, error) {
	stats := &types.GraphStats{
		NodesByType: make(map[types.NodeType]int64),
		EdgesByType: make(map[types.EdgeType]int64),
		LastUpdated: time.Now().UTC(),
	}
	err := s.View(ctx, func(tx Tx) error {
		bt := tx.(*badgerTx)
		if err := scanNodes(bt, func(n *types.Node) error {
			stats.NodeCount++
			stats.NodesByType[n.Type]++
			if !hasIncident(bt, n.ID) {
				stats.OrphanCount++
			}
			return nil
		}); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		it := bt.txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(edgePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var edge types.Edge
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &edge)
			}); err != nil {
				return &types.StorageError{Op: "decode edge for stats", Err: err}
			}
			stats.EdgeCount++
			stats.EdgesByType[edge.Type]++
		}

		pendingIt := bt.txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		defer pendingIt.Close()
		pendingPfx := []byte(pendingPrefix)
		for pendingIt.Seek(pendingPfx); pendingIt.ValidForPrefix(pendingPfx); pendingIt.Next() {
			stats.PendingCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	conflicts, err := s.Conflicts(ctx)
	if err != nil {
		return nil, err
	}
	stats.ConflictCount = int64(len(conflicts))
	return stats, nil
}

func scanNodes(bt *badgerTx, fn func(n *types.Node) error) error {
	opts := badger.DefaultIteratorOptions
	it := bt.txn.NewIterator(opts)
	defer it.Close()
	prefix := []byte(nodePrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var node types.Node
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &node)
		}); err != nil {
			return &types.StorageError{Op: "decode node during scan", Err: err}
		}
		if err := fn(&node); err != nil {
			return err
		}
	}
	return nil
}

// hasIncident reports whether any edge touches the node in either
// direction.
func hasIncident(bt *badgerTx, id string) bool {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	for _, prefix := range [][]byte{
		[]byte(edgePrefix + id + ":"),
		[]byte(reversePrefix + id + ":"),
	} {
		it := bt.txn.NewIterator(opts)
		it.Seek(prefix)
		ok := it.ValidForPrefix(prefix)
		it.Close()
		if ok {
			return true
		}
	}
	return false
}
