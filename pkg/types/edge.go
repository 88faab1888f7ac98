package types

import (
	"time"
)

// EdgeType classifies a directed relationship between two nodes.
type EdgeType string

const (
	// SupersedesEdge marks the source node as the replacement for the
	// target. The target is kept for the audit trail but excluded from
	// default retrieval.
	SupersedesEdge EdgeType = "supersedes"
	// ContradictsEdge marks two nodes as conflicting. Symmetric in
	// meaning, stored directionally once; the pair stays in the unresolved
	// conflict set until the edge is removed or one side is superseded.
	ContradictsEdge EdgeType = "contradicts"
	// RequiresEdge marks the source as depending on the target.
	RequiresEdge EdgeType = "requires"
	// RelatedToEdge marks a loose association.
	RelatedToEdge EdgeType = "related_to"
	// DerivedFromEdge marks the source as inferred from the target.
	DerivedFromEdge EdgeType = "derived_from"
	// AnswersEdge marks the source as answering the question recorded in
	// the target.
	AnswersEdge EdgeType = "answers"
)

// EdgeTypes lists every recognized edge type.
var EdgeTypes = []EdgeType{
	SupersedesEdge,
	ContradictsEdge,
	RequiresEdge,
	RelatedToEdge,
	DerivedFromEdge,
	AnswersEdge,
}

// Valid reports whether t is a recognized edge type.
func (t EdgeType) Valid() bool {
	for _, known := range EdgeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Edge is a directed, typed relationship between two nodes. At most one
// edge of a given type exists per ordered (from, to) pair, and both
// endpoints must exist in the graph store at commit time.
type Edge struct {
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	Type      EdgeType  `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the invariants that hold for every stored edge. Self
// loops are rejected for all edge types.
func (e *Edge) Validate() error {
	if e.FromID == "" {
		return &ValidationError{Field: "from_id", Reason: "must not be empty"}
	}
	if e.ToID == "" {
		return &ValidationError{Field: "to_id", Reason: "must not be empty"}
	}
	if !e.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "unknown edge type " + string(e.Type)}
	}
	if e.FromID == e.ToID {
		return ErrSelfLoop
	}
	return nil
}

// Direction selects which incident edges of a node to consider.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// Conflict is a pair of nodes connected by an unresolved contradicts edge.
type Conflict struct {
	FromID    string    `json:"from_id"`
	ToID      string    `json:"to_id"`
	CreatedAt time.Time `json:"created_at"`
}
