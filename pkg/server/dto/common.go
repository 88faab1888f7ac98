// Package dto defines the JSON request and response shapes of the HTTP
// API, kept separate from the engine types so the wire format can evolve
// independently.
package dto

import (
	"time"

	"github.com/mnemos-ai/mnemos/pkg/types"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// NodeResponse is the wire form of a knowledge node. The embedding is
// omitted; it is an internal artifact, not part of the API surface.
type NodeResponse struct {
	ID                 string                 `json:"id"`
	Type               string                 `json:"type"`
	Content            string                 `json:"content"`
	UserSaid           string                 `json:"user_said,omitempty"`
	Confidence         float64                `json:"confidence"`
	Approved           bool                   `json:"approved"`
	Superseded         bool                   `json:"superseded"`
	NeedsClarification bool                   `json:"needs_clarification"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
	Metadata           map[string]interface{} `json:"metadata,omitempty"`
}

// NewNodeResponse converts an engine node to its wire form.
func NewNodeResponse(n *types.Node) NodeResponse {
	return NodeResponse{
		ID:                 n.ID,
		Type:               string(n.Type),
		Content:            n.Content,
		UserSaid:           n.UserSaid,
		Confidence:         n.Confidence,
		Approved:           n.Approved(),
		Superseded:         n.Superseded,
		NeedsClarification: n.NeedsClarification(),
		CreatedAt:          n.CreatedAt,
		UpdatedAt:          n.UpdatedAt,
		Metadata:           n.Metadata,
	}
}

// NewNodeResponses converts a slice of engine nodes.
func NewNodeResponses(nodes []*types.Node) []NodeResponse {
	out := make([]NodeResponse, len(nodes))
	for i, n := range nodes {
		out[i] = NewNodeResponse(n)
	}
	return out
}

// EdgeResponse is the wire form of an edge.
type EdgeResponse struct {
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEdgeResponse converts an engine edge to its wire form.
func NewEdgeResponse(e *types.Edge) EdgeResponse {
	return EdgeResponse{
		FromID:    e.FromID,
		ToID:      e.ToID,
		Type:      string(e.Type),
		CreatedAt: e.CreatedAt,
	}
}
