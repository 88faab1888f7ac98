package dto

import (
	"time"

	"github.com/mnemos-ai/mnemos/pkg/types"
)

// AddNodeRequest creates a knowledge node.
type AddNodeRequest struct {
	Type       string                 `json:"type" binding:"required"`
	Content    string                 `json:"content" binding:"required"`
	UserSaid   string                 `json:"user_said,omitempty"`
	Confidence *float64               `json:"confidence,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// UpdateContentRequest replaces a node's content.
type UpdateContentRequest struct {
	Content string `json:"content" binding:"required"`
}

// ClarifyRequest flags a node for human input.
type ClarifyRequest struct {
	Question string `json:"question,omitempty"`
}

// ClarificationResponse is the wire form of a clarification request.
type ClarificationResponse struct {
	NodeID    string    `json:"node_id"`
	Content   string    `json:"content"`
	Question  string    `json:"question,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewClarificationResponse converts the engine descriptor.
func NewClarificationResponse(r *types.ClarificationRequest) ClarificationResponse {
	return ClarificationResponse{
		NodeID:    r.NodeID,
		Content:   r.Content,
		Question:  r.Question,
		CreatedAt: r.CreatedAt,
	}
}

// EdgeRequest identifies an edge for linking and unlinking.
type EdgeRequest struct {
	FromID string `json:"from_id" binding:"required"`
	ToID   string `json:"to_id" binding:"required"`
	Type   string `json:"type" binding:"required"`
}

// ConflictResponse is the wire form of an unresolved conflict pair.
type ConflictResponse struct {
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewConflictResponses converts the engine conflict list.
func NewConflictResponses(conflicts []types.Conflict) []ConflictResponse {
	out := make([]ConflictResponse, len(conflicts))
	for i, c := range conflicts {
		out[i] = ConflictResponse{FromID: c.FromID, ToID: c.ToID, CreatedAt: c.CreatedAt}
	}
	return out
}
