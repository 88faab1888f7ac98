// Package consistency makes the graph store and the vector index appear as
// one atomic resource.
//
// The graph store is the commit authority; the vector index is a derived,
// idempotent, replayable projection. Every content-bearing mutation runs
// as: embed first (a provider failure aborts before anything is written),
// commit the graph transaction, then apply the index mutation with bounded
// retries. If retries exhaust after the graph commit, the node is recorded
// as index-pending and the background reconciler repairs the divergence;
// the caller's request still succeeds, because the source of truth did.
//
// Mutations touching the same node serialize through per-node locks;
// mutations on disjoint nodes proceed concurrently.
package consistency
