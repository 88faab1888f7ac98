package embedder

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Config holds settings for the OpenAI-compatible provider.
type Config struct {
	// Model is the embedding model name, e.g. "text-embedding-3-small".
	Model string
	// Dimensions is the vector length produced by Model.
	Dimensions int
	// BaseURL overrides the API endpoint for OpenAI-compatible local
	// servers. Empty means the public OpenAI endpoint.
	BaseURL string
	// Timeout bounds every embedding call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout bounds embedding calls when the config does not set one.
// A write mutation blocks for at most this long on the provider.
const DefaultTimeout = 15 * time.Second

// OpenAIProvider implements Provider against any OpenAI-compatible
// embeddings endpoint.
type OpenAIProvider struct {
	client  *openai.Client
	config  Config
	timeout time.Duration
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a provider for the configured endpoint.
func NewOpenAIProvider(apiKey string, cfg Config) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  cfg,
		timeout: timeout,
	}
}

// Embed generates embeddings for the given texts in a single request.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(p.config.Model),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrUnavailable, len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = data.Embedding
	}
	return embeddings, nil
}

// EmbedSingle generates an embedding for a single text.
func (p *OpenAIProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrUnavailable)
	}
	return embeddings[0], nil
}

// Dimensions returns the configured vector length.
func (p *OpenAIProvider) Dimensions() int {
	return p.config.Dimensions
}

// Close is a no-op; the HTTP client holds no persistent resources.
func (p *OpenAIProvider) Close() error {
	return nil
}
