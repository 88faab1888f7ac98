package embedder

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the circuit breaker around a provider.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval resets the failure counts while closed.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// ReadyToTripRatio is the failure ratio that opens the breaker once at
	// least three requests have been observed.
	ReadyToTripRatio float64
}

// DefaultBreakerConfig returns the settings used when the config file does
// not override them.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		ReadyToTripRatio: 0.6,
	}
}

// BreakerProvider wraps a Provider with circuit breaking so a failing
// embedding endpoint rejects writes immediately instead of stalling each
// one until its timeout.
type BreakerProvider struct {
	provider Provider
	cb       *gobreaker.CircuitBreaker
}

var _ Provider = (*BreakerProvider)(nil)

// NewBreakerProvider wraps provider with a circuit breaker.
func NewBreakerProvider(provider Provider, cfg BreakerConfig, logger *slog.Logger) *BreakerProvider {
	if logger == nil {
		logger = slog.Default()
	}
	st := gobreaker.Settings{
		Name:        "embedder",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("embedding circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	}
	return &BreakerProvider{
		provider: provider,
		cb:       gobreaker.NewCircuitBreaker(st),
	}
}

func (b *BreakerProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.provider.Embed(ctx, texts)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, ErrUnavailable
		}
		return nil, err
	}
	return result.([][]float32), nil
}

func (b *BreakerProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := b.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, ErrUnavailable
	}
	return embeddings[0], nil
}

func (b *BreakerProvider) Dimensions() int {
	return b.provider.Dimensions()
}

func (b *BreakerProvider) Close() error {
	return b.provider.Close()
}
