package mnemos

import (
	"context"

	"github.com/mnemos-ai/mnemos/pkg/types"
)

// AddNode implements KnowledgeWriter.
func (c *Client) AddNode(ctx context.Context, req AddNodeRequest) (*types.Node, error) {
	return c.engine.AddNode(ctx, req)
}

// Approve implements KnowledgeWriter.
func (c *Client) Approve(ctx context.Context, nodeID string) error {
	return c.engine.Approve(ctx, nodeID)
}

// Clarify implements KnowledgeWriter.
func (c *Client) Clarify(ctx context.Context, nodeID, question string) (*types.ClarificationRequest, error) {
	return c.engine.Clarify(ctx, nodeID, question)
}

// UpdateContent implements KnowledgeWriter.
func (c *Client) UpdateContent(ctx context.Context, nodeID, content string) error {
	return c.engine.UpdateContent(ctx, nodeID, content)
}

// DeleteNode implements KnowledgeWriter.
func (c *Client) DeleteNode(ctx context.Context, nodeID string) error {
	return c.engine.Delete(ctx, nodeID)
}

// Link implements GraphLinker.
func (c *Client) Link(ctx context.Context, fromID, toID string, edgeType types.EdgeType) error {
	return c.engine.Link(ctx, fromID, toID, edgeType)
}

// Unlink implements GraphLinker.
func (c *Client) Unlink(ctx context.Context, fromID, toID string, edgeType types.EdgeType) error {
	return c.engine.Unlink(ctx, fromID, toID, edgeType)
}
