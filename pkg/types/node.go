package types

import (
	"time"
)

// NodeType classifies a unit of knowledge. The type is immutable after
// creation.
type NodeType string

const (
	// DecisionNodeType records a choice that was made and why.
	DecisionNodeType NodeType = "decision"
	// FactNodeType records a verifiable statement about the world.
	FactNodeType NodeType = "fact"
	// ErrorNodeType records a known error and its circumstances.
	ErrorNodeType NodeType = "error"
	// GuideNodeType records a how-to or procedure.
	GuideNodeType NodeType = "guide"
	// GlossaryNodeType records a term definition.
	GlossaryNodeType NodeType = "glossary"
	// ContextNodeType records background information about the project.
	ContextNodeType NodeType = "context"
	// AssumptionNodeType records an unverified belief. Assumptions default
	// to weak confidence until approved or corroborated.
	AssumptionNodeType NodeType = "assumption"
)

// NodeTypes lists every recognized node type.
var NodeTypes = []NodeType{
	DecisionNodeType,
	FactNodeType,
	ErrorNodeType,
	GuideNodeType,
	GlossaryNodeType,
	ContextNodeType,
	AssumptionNodeType,
}

// Valid reports whether t is a recognized node type.
func (t NodeType) Valid() bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Confidence policy bands. Confidence is assigned at creation and adjusted
// only through defined operations (Approve, explicit assertion).
const (
	// ConfidenceApproved is set only by an explicit approval operation.
	ConfidenceApproved = 1.0
	// ConfidenceStrongMin is the lower bound of the caller-asserted
	// strong-evidence band [0.8, 0.99].
	ConfidenceStrongMin = 0.8
	// ConfidenceDefault is the default for ordinary additions, the middle
	// of the reasonable-inference band [0.5, 0.79].
	ConfidenceDefault = 0.6
	// ConfidenceAssumptionDefault is the default for Assumption nodes,
	// inside the weak-inference band [0.0, 0.49].
	ConfidenceAssumptionDefault = 0.3
)

// DefaultConfidence returns the creation-time confidence for a node type
// when the caller does not assert one.
func DefaultConfidence(t NodeType) float64 {
	if t == AssumptionNodeType {
		return ConfidenceAssumptionDefault
	}
	return ConfidenceDefault
}

// MetaKeyClarification is the reserved metadata key under which a pending
// ClarificationRequest is stored on a node.
const MetaKeyClarification = "mnemos.clarification"

// Node is a single unit of recorded knowledge.
type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`

	// Content is the knowledge text. Mutable; every change triggers
	// re-embedding through the consistency coordinator.
	Content string `json:"content"`

	// UserSaid is the optional verbatim statement that prompted creation.
	// Immutable, audit-only.
	UserSaid string `json:"user_said,omitempty"`

	// Confidence is trust in the node's correctness, in [0, 1].
	Confidence float64 `json:"confidence"`

	// Embedding is derived from Content by the embedding provider. It is
	// persisted with the node so the graph store remains the source of
	// truth when the vector index lags behind (index-pending recovery).
	Embedding []float32 `json:"embedding,omitempty"`

	// Superseded is derived state: true while at least one supersedes edge
	// targets this node. Superseded nodes are excluded from default
	// retrieval but kept for the audit trail.
	Superseded bool `json:"superseded,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Metadata is an open key/value bag for display and filtering. The
	// engine does not interpret it, except for reserved "mnemos." keys.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Approved reports whether the node has been explicitly approved.
func (n *Node) Approved() bool {
	return n.Confidence == ConfidenceApproved
}

// NeedsClarification reports whether a clarification request is pending on
// the node.
func (n *Node) NeedsClarification() bool {
	if n.Metadata == nil {
		return false
	}
	_, ok := n.Metadata[MetaKeyClarification]
	return ok
}

// Validate checks the invariants that hold for every stored node.
func (n *Node) Validate() error {
	if n.ID == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if !n.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "unknown node type " + string(n.Type)}
	}
	if n.Content == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if n.Confidence < 0.0 || n.Confidence > 1.0 {
		return &ValidationError{Field: "confidence", Reason: "must be in [0.0, 1.0]"}
	}
	return nil
}

// ClarificationRequest describes a node that needs human input. The engine
// surfaces it to the caller; it never changes confidence by itself.
type ClarificationRequest struct {
	NodeID    string    `json:"node_id"`
	Content   string    `json:"content"`
	Question  string    `json:"question,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
