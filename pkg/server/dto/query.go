package dto

import (
	"github.com/mnemos-ai/mnemos/pkg/types"
)

// QueryRequest asks for the nodes most relevant to a question.
type QueryRequest struct {
	Question string `json:"question"`
	Limit    int    `json:"limit,omitempty"`
}

// ScoredNodeResponse is one ranked query result.
type ScoredNodeResponse struct {
	Node       NodeResponse `json:"node"`
	Score      float64      `json:"score"`
	Similarity float64      `json:"similarity"`
}

// QueryResponse is the result of a query call.
type QueryResponse struct {
	Results []ScoredNodeResponse `json:"results"`
}

// NewQueryResponse converts ranked engine results.
func NewQueryResponse(scored []types.ScoredNode) QueryResponse {
	results := make([]ScoredNodeResponse, len(scored))
	for i, sn := range scored {
		results[i] = ScoredNodeResponse{
			Node:       NewNodeResponse(sn.Node),
			Score:      sn.Score,
			Similarity: sn.Similarity,
		}
	}
	return QueryResponse{Results: results}
}

// SubgraphResponse is the result of a subgraph call.
type SubgraphResponse struct {
	Nodes []NodeResponse `json:"nodes"`
	Edges []EdgeResponse `json:"edges"`
}

// NewSubgraphResponse converts an engine subgraph.
func NewSubgraphResponse(sub *types.Subgraph) SubgraphResponse {
	edges := make([]EdgeResponse, len(sub.Edges))
	for i, e := range sub.Edges {
		edges[i] = NewEdgeResponse(e)
	}
	return SubgraphResponse{
		Nodes: NewNodeResponses(sub.Nodes),
		Edges: edges,
	}
}
