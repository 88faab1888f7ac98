package store

import (
	"context"

	"github.com/mnemos-ai/mnemos/pkg/types"
)

// Tx is a transaction view over the graph store. Methods return
// types.ErrNodeNotFound / types.ErrEdgeNotFound for missing records and
// *types.StorageError for I/O failures. A Tx obtained from View rejects
// writes.
type Tx interface {
	// GetNode returns the node with the given id.
	GetNode(id string) (*types.Node, error)

	// PutNode inserts or replaces a node record.
	PutNode(n *types.Node) error

	// DeleteNode removes a node and all of its incident edges.
	DeleteNode(id string) error

	// GetEdge returns the edge identified by (from, to, edgeType).
	GetEdge(from, to string, edgeType types.EdgeType) (*types.Edge, error)

	// PutEdge inserts an edge record and its reverse-index entry.
	PutEdge(e *types.Edge) error

	// DeleteEdge removes the edge identified by (from, to, edgeType).
	DeleteEdge(from, to string, edgeType types.EdgeType) error

	// EdgesOf returns the edges incident to a node, filtered by direction
	// and, when non-empty, by edge type.
	EdgesOf(id string, dir types.Direction, edgeTypes []types.EdgeType) ([]*types.Edge, error)

	// MarkPending records that the vector index has not yet absorbed the
	// latest state of the node. ClearPending removes the marker.
	MarkPending(id string) error
	ClearPending(id string) error
}

// GraphStore is the transactional graph storage capability consumed by the
// graph engine and the consistency coordinator. Implementations must give
// each Update a serializable transaction scope and each View a consistent
// snapshot.
type GraphStore interface {
	// Update runs fn in a read-write transaction. If fn returns an error
	// the transaction is rolled back and no change is visible.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Conflicts returns every pair of nodes connected by an unresolved
	// contradicts edge, oldest first. A contradicts edge is resolved once
	// either side is superseded. Each call is a fresh consistent read.
	Conflicts(ctx context.Context) ([]types.Conflict, error)

	// Orphans returns nodes with no incident edges, ordered by creation
	// time.
	Orphans(ctx context.Context) ([]*types.Node, error)

	// Nodes streams every node through fn; returning a non-nil error from
	// fn stops the scan.
	Nodes(ctx context.Context, fn func(n *types.Node) error) error

	// Pending returns the ids in the index-pending set, i.e. nodes whose
	// committed state the vector index has not yet absorbed.
	Pending(ctx context.Context) ([]string, error)

	// Stats summarizes the current graph state.
	Stats(ctx context.Context) (*types.GraphStats, error)

	Close() error
}
