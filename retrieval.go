package mnemos

import (
	"context"

	"github.com/mnemos-ai/mnemos/pkg/types"
)

// Query implements KnowledgeQuerier.
func (c *Client) Query(ctx context.Context, question string, limit int) ([]types.ScoredNode, error) {
	return c.searcher.Query(ctx, question, limit)
}

// Subgraph implements KnowledgeQuerier.
func (c *Client) Subgraph(ctx context.Context, question string, limit int) (*types.Subgraph, error) {
	return c.searcher.Subgraph(ctx, question, limit)
}

// GetNode implements KnowledgeQuerier.
func (c *Client) GetNode(ctx context.Context, nodeID string) (*types.Node, error) {
	return c.engine.GetNode(ctx, nodeID)
}

// GetEdge implements KnowledgeQuerier.
func (c *Client) GetEdge(ctx context.Context, fromID, toID string, edgeType types.EdgeType) (*types.Edge, error) {
	return c.engine.GetEdge(ctx, fromID, toID, edgeType)
}

// Neighbors implements KnowledgeQuerier.
func (c *Client) Neighbors(ctx context.Context, nodeID string, edgeTypes []types.EdgeType, dir types.Direction) ([]*types.Node, error) {
	return c.engine.Neighbors(ctx, nodeID, edgeTypes, dir)
}

// Conflicts implements GraphAuditor.
func (c *Client) Conflicts(ctx context.Context) ([]types.Conflict, error) {
	return c.engine.Conflicts(ctx)
}

// Orphans implements GraphAuditor.
func (c *Client) Orphans(ctx context.Context) ([]*types.Node, error) {
	return c.engine.Orphans(ctx)
}

// Stats implements GraphAuditor.
func (c *Client) Stats(ctx context.Context) (*types.GraphStats, error) {
	return c.engine.Stats(ctx)
}
