// Package mnemos is a durable knowledge store for autonomous agents: it
// records discrete units of knowledge (decisions, facts, known errors,
// guides, glossary terms, context, assumptions), links them into a graph
// expressing supersession, contradiction, and dependency, and answers
// natural-language queries by combining embedding similarity with graph
// structure and confidence weighting.
//
// The graph store is the source of truth; the vector index is a derived,
// self-healing projection kept consistent by the coordinator in
// pkg/consistency. See the Client type for the main entry point.
package mnemos
