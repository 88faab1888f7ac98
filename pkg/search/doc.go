// Package search implements the hybrid query engine: semantic candidate
// retrieval from the vector index, confidence-weighted re-ranking against
// the graph store, supersession filtering, and 1-hop subgraph expansion.
package search
