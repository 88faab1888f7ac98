// Package graph implements the authoritative CRUD surface over knowledge
// nodes and edges: creation with confidence policy, approval,
// clarification, content updates with re-embedding, linking with
// supersession and conflict semantics, and the graph-level queries
// (conflicts, orphans, neighbors). All mutations run through the
// consistency coordinator so the vector index never diverges from the
// graph store.
package graph
