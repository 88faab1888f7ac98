// Package vector provides the approximate-nearest-neighbor index that
// accelerates hybrid retrieval. The index is a derived projection of the
// graph store: it holds exactly one vector per live node and is kept in
// step by the consistency coordinator. Divergence is tolerated only
// transiently and is repaired by the reconciliation path.
//
// Two implementations are provided:
//
//   - MemoryIndex: exact cosine scan held in process. The default for
//     embedded deployments and tests; exact results, linear search cost.
//   - WeaviateIndex: a Weaviate class queried with nearVector for
//     deployments that need true ANN at scale.
package vector
