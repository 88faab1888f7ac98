package graph

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mnemos-ai/mnemos/pkg/consistency"
	"github.com/mnemos-ai/mnemos/pkg/store"
	"github.com/mnemos-ai/mnemos/pkg/types"
)

// Engine implements the graph operations on top of the consistency
// coordinator. All mutations go through the coordinator; reads go straight
// to the graph store.
type Engine struct {
	coord  *consistency.Coordinator
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates an Engine. A nil logger falls back to slog.Default().
func NewEngine(coord *consistency.Coordinator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		coord:  coord,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AddNodeRequest carries the caller-supplied fields for node creation.
// Confidence is optional; when nil the policy default for the node type
// applies. A caller may assert any value in [0.0, 0.99]; 1.0 is reserved
// for the approval operation.
type AddNodeRequest struct {
	Type       types.NodeType
	Content    string
	UserSaid   string
	Confidence *float64
	Metadata   map[string]interface{}
}

// AddNode validates the request, assigns an id and confidence, embeds the
// content, and commits the new node.
func (e *Engine) AddNode(ctx context.Context, req AddNodeRequest) (*types.Node, error) {
	confidence := types.DefaultConfidence(req.Type)
	if req.Confidence != nil {
		c := *req.Confidence
		if c < 0.0 || c >= types.ConfidenceApproved {
			return nil, &types.ValidationError{
				Field:  "confidence",
				Reason: "must be in [0.0, 0.99]; 1.0 is set only by approval",
			}
		}
		confidence = c
	}

	now := e.now()
	node := &types.Node{
		ID:         uuid.NewString(),
		Type:       req.Type,
		Content:    req.Content,
		UserSaid:   req.UserSaid,
		Confidence: confidence,
		CreatedAt:  now,
		UpdatedAt:  now,
		Metadata:   req.Metadata,
	}
	if err := node.Validate(); err != nil {
		return nil, err
	}

	err := e.coord.CommitContent(ctx, node.ID, node.Content, func(tx store.Tx, embedding []float32) error {
		node.Embedding = embedding
		return tx.PutNode(node)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("node added",
		"node_id", node.ID,
		"type", string(node.Type),
		"confidence", node.Confidence)
	return node, nil
}

// GetNode returns the node with the given id.
func (e *Engine) GetNode(ctx context.Context, id string) (*types.Node, error) {
	var node *types.Node
	err := e.coord.Store().View(ctx, func(tx store.Tx) error {
		n, err := tx.GetNode(id)
		if err != nil {
			return err
		}
		node = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// GetEdge returns the edge identified by (from, to, edgeType).
func (e *Engine) GetEdge(ctx context.Context, from, to string, edgeType types.EdgeType) (*types.Edge, error) {
	var edge *types.Edge
	err := e.coord.Store().View(ctx, func(tx store.Tx) error {
		found, err := tx.GetEdge(from, to, edgeType)
		if err != nil {
			return err
		}
		edge = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edge, nil
}

// Approve sets the node's confidence to 1.0 and clears any pending
// clarification request. Idempotent.
func (e *Engine) Approve(ctx context.Context, id string) error {
	return e.coord.CommitGraph(ctx, []string{id}, func(tx store.Tx) error {
		node, err := tx.GetNode(id)
		if err != nil {
			return err
		}
		node.Confidence = types.ConfidenceApproved
		if node.Metadata != nil {
			delete(node.Metadata, types.MetaKeyClarification)
		}
		node.UpdatedAt = e.now()
		return tx.PutNode(node)
	})
}

// Clarify marks the node as needing human input and returns a descriptor
// the caller surfaces to the user. Confidence is unchanged; the request is
// cleared by a later approval.
func (e *Engine) Clarify(ctx context.Context, id, question string) (*types.ClarificationRequest, error) {
	var req *types.ClarificationRequest
	err := e.coord.CommitGraph(ctx, []string{id}, func(tx store.Tx) error {
		node, err := tx.GetNode(id)
		if err != nil {
			return err
		}
		now := e.now()
		req = &types.ClarificationRequest{
			NodeID:    node.ID,
			Content:   node.Content,
			Question:  question,
			CreatedAt: now,
		}
		if node.Metadata == nil {
			node.Metadata = make(map[string]interface{})
		}
		node.Metadata[types.MetaKeyClarification] = map[string]interface{}{
			"question":   question,
			"created_at": now.Format(time.RFC3339Nano),
		}
		node.UpdatedAt = now
		return tx.PutNode(node)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateContent replaces the node's content and re-embeds it. Type,
// user_said, and confidence are unchanged.
func (e *Engine) UpdateContent(ctx context.Context, id, content string) error {
	if content == "" {
		return &types.ValidationError{Field: "content", Reason: "must not be empty"}
	}
	return e.coord.CommitContent(ctx, id, content, func(tx store.Tx, embedding []float32) error {
		node, err := tx.GetNode(id)
		if err != nil {
			return err
		}
		node.Content = content
		node.Embedding = embedding
		node.UpdatedAt = e.now()
		return tx.PutNode(node)
	})
}

// Delete removes the node, all incident edges, and its vector entry.
// Nodes the deleted node was superseding get their flag re-derived from
// the remaining edges.
func (e *Engine) Delete(ctx context.Context, id string) error {
	err := e.coord.CommitDelete(ctx, id, func(tx store.Tx) error {
		superseding, err := tx.EdgesOf(id, types.DirectionOutgoing, []types.EdgeType{types.SupersedesEdge})
		if err != nil {
			return err
		}
		if err := tx.DeleteNode(id); err != nil {
			return err
		}
		for _, edge := range superseding {
			remaining, err := tx.EdgesOf(edge.ToID, types.DirectionIncoming, []types.EdgeType{types.SupersedesEdge})
			if err != nil {
				return err
			}
			if len(remaining) > 0 {
				continue
			}
			target, err := tx.GetNode(edge.ToID)
			if err != nil {
				return err
			}
			if target.Superseded {
				target.Superseded = false
				target.UpdatedAt = e.now()
				if err := tx.PutNode(target); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.logger.Debug("node deleted", "node_id", id)
	return nil
}

// Link creates a typed edge between two existing nodes. A supersedes edge
// additionally marks the target node as superseded; a contradicts edge
// places the pair in the unresolved conflict set.
func (e *Engine) Link(ctx context.Context, from, to string, edgeType types.EdgeType) error {
	edge := &types.Edge{
		FromID:    from,
		ToID:      to,
		Type:      edgeType,
		CreatedAt: e.now(),
	}
	if err := edge.Validate(); err != nil {
		return err
	}

	return e.coord.CommitGraph(ctx, []string{from, to}, func(tx store.Tx) error {
		if _, err := tx.GetNode(from); err != nil {
			return err
		}
		target, err := tx.GetNode(to)
		if err != nil {
			return err
		}
		if _, err := tx.GetEdge(from, to, edgeType); err == nil {
			return types.ErrDuplicateEdge
		} else if !errors.Is(err, types.ErrEdgeNotFound) {
			return err
		}
		if err := tx.PutEdge(edge); err != nil {
			return err
		}
		if edgeType == types.SupersedesEdge && !target.Superseded {
			target.Superseded = true
			target.UpdatedAt = edge.CreatedAt
			return tx.PutNode(target)
		}
		return nil
	})
}

// Unlink removes a specific edge. Removing the last supersedes edge
// targeting a node clears its superseded flag; removing a contradicts edge
// takes the pair out of the conflict set.
func (e *Engine) Unlink(ctx context.Context, from, to string, edgeType types.EdgeType) error {
	return e.coord.CommitGraph(ctx, []string{from, to}, func(tx store.Tx) error {
		if err := tx.DeleteEdge(from, to, edgeType); err != nil {
			return err
		}
		if edgeType != types.SupersedesEdge {
			return nil
		}
		remaining, err := tx.EdgesOf(to, types.DirectionIncoming, []types.EdgeType{types.SupersedesEdge})
		if err != nil {
			return err
		}
		if len(remaining) > 0 {
			return nil
		}
		target, err := tx.GetNode(to)
		if err != nil {
			return err
		}
		if target.Superseded {
			target.Superseded = false
			target.UpdatedAt = e.now()
			return tx.PutNode(target)
		}
		return nil
	})
}

// Conflicts returns every pair of nodes connected by an unresolved
// contradicts edge, oldest first.
func (e *Engine) Conflicts(ctx context.Context) ([]types.Conflict, error) {
	return e.coord.Store().Conflicts(ctx)
}

// Orphans returns nodes with no incident edges, ordered by creation time.
func (e *Engine) Orphans(ctx context.Context) ([]*types.Node, error) {
	return e.coord.Store().Orphans(ctx)
}

// Neighbors returns the distinct nodes adjacent to the given node,
// filtered by direction and optional edge types. Default direction is
// both; empty edgeTypes means all types.
func (e *Engine) Neighbors(ctx context.Context, id string, edgeTypes []types.EdgeType, dir types.Direction) ([]*types.Node, error) {
	if dir == "" {
		dir = types.DirectionBoth
	}
	var neighbors []*types.Node
	err := e.coord.Store().View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetNode(id); err != nil {
			return err
		}
		edges, err := tx.EdgesOf(id, dir, edgeTypes)
		if err != nil {
			return err
		}
		seen := make(map[string]bool, len(edges))
		for _, edge := range edges {
			other := edge.ToID
			if other == id {
				other = edge.FromID
			}
			if seen[other] {
				continue
			}
			seen[other] = true
			node, err := tx.GetNode(other)
			if err != nil {
				return err
			}
			neighbors = append(neighbors, node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return neighbors, nil
}

// Stats summarizes the current graph state.
func (e *Engine) Stats(ctx context.Context) (*types.GraphStats, error) {
	return e.coord.Store().Stats(ctx)
}
