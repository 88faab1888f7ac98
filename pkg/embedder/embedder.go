package embedder

import (
	"context"
	"errors"
)

// Typed provider failures. The coordinator maps these onto its abort path:
// a write that cannot obtain an embedding never reaches the graph store
// commit.
var (
	// ErrUnavailable is returned when the provider cannot be reached or
	// rejects the request.
	ErrUnavailable = errors.New("embedding provider unavailable")
	// ErrTimeout is returned when the per-call timeout elapses before the
	// provider responds.
	ErrTimeout = errors.New("embedding call timed out")
)

// Provider generates embeddings for text. Implementations must respect
// context cancellation and apply their configured per-call timeout to
// every request.
type Provider interface {
	// Embed generates embeddings for the given texts, one vector per
	// input, all of Dimensions() length.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the fixed, provider-defined vector length.
	Dimensions() int

	// Close cleans up any resources.
	Close() error
}
