package types

import "time"

// ScoredNode is one ranked query result. Score is the composite of vector
// similarity and confidence weighting computed by pkg/search.
type ScoredNode struct {
	Node       *Node   `json:"node"`
	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Subgraph is the result of a subgraph query: the ranked nodes plus their
// 1-hop neighborhood and the connecting edges, de-duplicated.
type Subgraph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// GraphStats summarizes the state of the knowledge graph.
type GraphStats struct {
	NodeCount     int64              `json:"node_count"`
	EdgeCount     int64              `json:"edge_count"`
	NodesByType   map[NodeType]int64 `json:"nodes_by_type"`
	EdgesByType   map[EdgeType]int64 `json:"edges_by_type"`
	ConflictCount int64              `json:"conflict_count"`
	OrphanCount   int64              `json:"orphan_count"`
	PendingCount  int64              `json:"pending_count"`
	LastUpdated   time.Time          `json:"last_updated"`
}
