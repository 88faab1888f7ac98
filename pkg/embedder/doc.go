// Package embedder provides the embedding providers that turn knowledge
// text into fixed-length vectors.
//
// The Provider interface treats embedding as an opaque synchronous
// capability with a mandatory per-call timeout: the consistency
// coordinator never commits a node without an embedding, so a slow or
// failing provider aborts the enclosing write.
//
// Implementations:
//
//   - OpenAIProvider: any OpenAI-compatible embeddings endpoint.
//   - BreakerProvider: wraps another provider with a circuit breaker so a
//     flapping endpoint fails fast instead of stalling every write.
//   - HashProvider: deterministic local vectors for tests and offline use.
package embedder
