package mnemos

import (
	"context"

	"github.com/mnemos-ai/mnemos/pkg/types"
)

// This file defines focused interfaces following the Interface Segregation
// Principle. The main Mnemos interface is composed from these smaller
// interfaces; consumers should depend on the smallest one that meets their
// needs.

// KnowledgeWriter provides the node-level mutations.
type KnowledgeWriter interface {
	// AddNode records a new unit of knowledge. Confidence is defaulted per
	// the policy for the node type when not asserted.
	AddNode(ctx context.Context, req AddNodeRequest) (*types.Node, error)

	// Approve sets the node's confidence to 1.0 and clears any pending
	// clarification request. Idempotent.
	Approve(ctx context.Context, nodeID string) error

	// Clarify marks the node as needing human input and returns a
	// descriptor to surface to the user.
	Clarify(ctx context.Context, nodeID, question string) (*types.ClarificationRequest, error)

	// UpdateContent replaces the node's content and re-embeds it.
	UpdateContent(ctx context.Context, nodeID, content string) error

	// DeleteNode removes the node, its incident edges, and its vector
	// entry in one logical transaction.
	DeleteNode(ctx context.Context, nodeID string) error
}

// GraphLinker provides the edge-level mutations.
type GraphLinker interface {
	// Link creates a typed edge between two existing nodes.
	Link(ctx context.Context, fromID, toID string, edgeType types.EdgeType) error

	// Unlink removes a specific edge.
	Unlink(ctx context.Context, fromID, toID string, edgeType types.EdgeType) error
}

// KnowledgeQuerier provides the read and retrieval operations.
type KnowledgeQuerier interface {
	// Query returns the top limit nodes relevant to the question, ranked
	// by hybrid similarity and confidence.
	Query(ctx context.Context, question string, limit int) ([]types.ScoredNode, error)

	// Subgraph runs Query and expands each result with its 1-hop
	// neighborhood and connecting edges.
	Subgraph(ctx context.Context, question string, limit int) (*types.Subgraph, error)

	// GetNode retrieves a specific node.
	GetNode(ctx context.Context, nodeID string) (*types.Node, error)

	// GetEdge retrieves a specific edge.
	GetEdge(ctx context.Context, fromID, toID string, edgeType types.EdgeType) (*types.Edge, error)

	// Neighbors returns the distinct nodes adjacent to a node, filtered by
	// optional edge types and direction.
	Neighbors(ctx context.Context, nodeID string, edgeTypes []types.EdgeType, dir types.Direction) ([]*types.Node, error)
}

// GraphAuditor provides the review surfaces for graph hygiene.
type GraphAuditor interface {
	// Conflicts returns node pairs connected by an unresolved contradicts
	// edge, oldest first.
	Conflicts(ctx context.Context) ([]types.Conflict, error)

	// Orphans returns nodes with no incident edges, by creation time.
	Orphans(ctx context.Context) ([]*types.Node, error)

	// Stats summarizes the current graph state.
	Stats(ctx context.Context) (*types.GraphStats, error)
}

// Admin provides lifecycle operations.
type Admin interface {
	// Close stops the reconciler and closes the store, index, and
	// embedding provider.
	Close() error
}

// Compile-time check that the main interface composes the focused ones.
var _ interface {
	KnowledgeWriter
	GraphLinker
	KnowledgeQuerier
	GraphAuditor
	Admin
} = (Mnemos)(nil)
