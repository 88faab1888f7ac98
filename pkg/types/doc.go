// Package types defines the core data model for the mnemos knowledge store:
// nodes, edges, the confidence policy, and the shared error taxonomy.
//
// A Node is a single unit of recorded knowledge (a decision, fact, known
// error, guide, glossary term, contextual note, or unverified assumption).
// Every node carries a confidence score in [0, 1] and an embedding derived
// from its content. An Edge is a directed, typed relationship between two
// nodes: supersession, contradiction, dependency, derivation, relatedness,
// or answering.
//
// The package is storage-agnostic: pkg/store persists these values,
// pkg/vector indexes their embeddings, and pkg/graph enforces the mutation
// rules.
package types
