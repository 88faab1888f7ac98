package embedder

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashProviderDeterministic(t *testing.T) {
	ctx := context.Background()
	p := NewHashProvider(32)

	first, err := p.EmbedSingle(ctx, "timestamps are stored in UTC")
	require.NoError(t, err)
	second, err := p.EmbedSingle(ctx, "timestamps are stored in UTC")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 32)
}

func TestHashProviderDistinguishesTexts(t *testing.T) {
	ctx := context.Background()
	p := NewHashProvider(64)

	a, err := p.EmbedSingle(ctx, "use library X for parsing")
	require.NoError(t, err)
	b, err := p.EmbedSingle(ctx, "the deployment region is eu-west-1")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashProviderEmptyText(t *testing.T) {
	ctx := context.Background()
	p := NewHashProvider(16)

	vec, err := p.EmbedSingle(ctx, "")
	require.NoError(t, err)
	require.Len(t, vec, 16)
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	assert.NotZero(t, norm)
}

// failingProvider always errors, to drive the breaker open.
type failingProvider struct{}

func (f *failingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("connection refused")
}

func (f *failingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("connection refused")
}

func (f *failingProvider) Dimensions() int { return 4 }
func (f *failingProvider) Close() error    { return nil }

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	cfg := BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		ReadyToTripRatio: 0.5,
	}
	b := NewBreakerProvider(&failingProvider{}, cfg, slog.Default())

	// Drive enough failures to trip.
	for i := 0; i < 5; i++ {
		_, _ = b.EmbedSingle(ctx, "anything")
	}
	_, err := b.EmbedSingle(ctx, "anything")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	ctx := context.Background()
	b := NewBreakerProvider(NewHashProvider(8), DefaultBreakerConfig(), nil)

	vec, err := b.EmbedSingle(ctx, "hello world")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, 8, b.Dimensions())
}
