// Package store provides the durable graph store behind the mnemos
// knowledge graph: the source of truth for node content, confidence,
// timestamps, and edges.
//
// The GraphStore interface exposes closure-scoped transactions so the
// consistency coordinator can make graph and vector-index changes appear
// atomic to callers. Two implementations are provided:
//
//   - BadgerStore: embedded, serializable-transaction store on BadgerDB.
//     The default for local and single-process deployments.
//   - Neo4jStore: server-backed store on the Neo4j bolt driver for
//     deployments that already run a graph database.
//
// Both keep the same logical layout: a nodes table keyed by id, an edges
// table keyed by (from, type, to) with a reverse index for incoming
// lookups, and an index-pending set used by the reconciliation path.
package store
