package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemos-ai/mnemos/pkg/consistency"
	"github.com/mnemos-ai/mnemos/pkg/embedder"
	"github.com/mnemos-ai/mnemos/pkg/graph"
	"github.com/mnemos-ai/mnemos/pkg/store"
	"github.com/mnemos-ai/mnemos/pkg/types"
	"github.com/mnemos-ai/mnemos/pkg/vector"
)

type fixture struct {
	engine   *graph.Engine
	searcher *Searcher
	store    store.GraphStore
	index    *vector.MemoryIndex
	provider embedder.Provider
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	s, err := store.OpenBadger(store.InMemoryBadgerConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	idx := vector.NewMemoryIndex(64)
	provider := embedder.NewHashProvider(64)
	coord := consistency.New(s, idx, provider,
		consistency.RetryConfig{Attempts: 1, Backoff: time.Millisecond}, nil)
	return &fixture{
		engine:   graph.NewEngine(coord, nil),
		searcher: NewSearcher(s, idx, provider, cfg, nil),
		store:    s,
		index:    idx,
		provider: provider,
	}
}

func (f *fixture) add(t *testing.T, nodeType types.NodeType, content string, confidence float64) *types.Node {
	t.Helper()
	node, err := f.engine.AddNode(context.Background(), graph.AddNodeRequest{
		Type:       nodeType,
		Content:    content,
		Confidence: &confidence,
	})
	require.NoError(t, err)
	return node
}

func TestQueryRanksBySimilarity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())

	target := f.add(t, types.FactNodeType, "the deployment pipeline uses blue green releases", 0.6)
	f.add(t, types.FactNodeType, "coffee restock happens on mondays", 0.6)

	results, err := f.searcher.Query(ctx, "how does the deployment pipeline release", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, target.ID, results[0].Node.ID)
	assert.Greater(t, results[0].Score, 0.0)
	assert.Greater(t, results[0].Similarity, 0.0)
}

func TestQueryConfidenceWeighting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())

	// Identical content means identical similarity; confidence decides.
	weak := f.add(t, types.AssumptionNodeType, "the cache ttl is one hour", 0.2)
	strong := f.add(t, types.FactNodeType, "the cache ttl is one hour", 0.9)

	results, err := f.searcher.Query(ctx, "what is the cache ttl", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, strong.ID, results[0].Node.ID)
	assert.Equal(t, weak.ID, results[1].Node.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestQueryExcludesSupersededWithFallback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())

	oldDecision := f.add(t, types.DecisionNodeType, "use library X for parsing config files", 0.6)
	newDecision := f.add(t, types.DecisionNodeType, "use library Y for parsing config files", 0.6)
	require.NoError(t, f.engine.Link(ctx, newDecision.ID, oldDecision.ID, types.SupersedesEdge))

	results, err := f.searcher.Query(ctx, "which library for parsing config files", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, newDecision.ID, results[0].Node.ID, "superseded decision must not win")

}

func TestQueryFallsBackWhenEverythingSuperseded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())

	// A supersession cycle leaves both decisions superseded; cycles are
	// legal graph shapes, and the superseded pool is still the best answer.
	a := f.add(t, types.DecisionNodeType, "use library X for parsing config files", 0.6)
	b := f.add(t, types.DecisionNodeType, "use library Y for parsing config files", 0.6)
	require.NoError(t, f.engine.Link(ctx, a.ID, b.ID, types.SupersedesEdge))
	require.NoError(t, f.engine.Link(ctx, b.ID, a.ID, types.SupersedesEdge))

	results, err := f.searcher.Query(ctx, "which library for parsing config files", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestQueryIncludeSuperseded(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.IncludeSuperseded = true
	f := newFixture(t, cfg)

	oldDecision := f.add(t, types.DecisionNodeType, "use library X for parsing", 0.6)
	newDecision := f.add(t, types.DecisionNodeType, "use library Y for parsing", 0.6)
	require.NoError(t, f.engine.Link(ctx, newDecision.ID, oldDecision.ID, types.SupersedesEdge))

	results, err := f.searcher.Query(ctx, "which library for parsing", 5)
	require.NoError(t, err)
	ids := make(map[string]bool)
	for _, r := range results {
		ids[r.Node.ID] = true
	}
	assert.True(t, ids[oldDecision.ID], "superseded node requested explicitly")
	assert.True(t, ids[newDecision.ID])
}

func TestQuerySuppressesClarificationWhenConfigured(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.IncludeNeedsClarification = false
	f := newFixture(t, cfg)

	flagged := f.add(t, types.FactNodeType, "the retention window is thirty days", 0.6)
	_, err := f.engine.Clarify(ctx, flagged.ID, "thirty or ninety?")
	require.NoError(t, err)
	kept := f.add(t, types.FactNodeType, "the retention window applies to logs", 0.6)

	results, err := f.searcher.Query(ctx, "what is the retention window", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, kept.ID, results[0].Node.ID)
}

func TestQueryEmptyQuestionRanksByConfidenceAndRecency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())

	low := f.add(t, types.AssumptionNodeType, "maybe relevant", 0.3)
	high := f.add(t, types.FactNodeType, "definitely relevant", 0.9)

	results, err := f.searcher.Query(ctx, "", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, high.ID, results[0].Node.ID)
	assert.Equal(t, low.ID, results[1].Node.ID)

	// Deterministic across calls.
	again, err := f.searcher.Query(ctx, "  ", 5)
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, results[0].Node.ID, again[0].Node.ID)
}

func TestQueryValidatesLimit(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	_, err := f.searcher.Query(context.Background(), "anything", 0)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestQueryFindsIndexPendingNodes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())

	node := f.add(t, types.FactNodeType, "the feature flag service runs in cluster two", 0.6)

	// Simulate a committed node whose index write was lost.
	require.NoError(t, f.index.Delete(ctx, node.ID))
	require.NoError(t, f.store.Update(ctx, func(tx store.Tx) error {
		return tx.MarkPending(node.ID)
	}))

	results, err := f.searcher.Query(ctx, "where does the feature flag service run", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, node.ID, results[0].Node.ID)
}

func TestQueryPropagatesEmbedderFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())
	f.add(t, types.FactNodeType, "something", 0.6)

	down := NewSearcher(f.store, f.index, downProvider{}, DefaultConfig(), nil)

	_, err := down.Query(ctx, "anything", 3)
	assert.ErrorIs(t, err, embedder.ErrUnavailable)
}

type downProvider struct{}

func (downProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, embedder.ErrUnavailable
}

func (downProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return nil, embedder.ErrUnavailable
}

func (downProvider) Dimensions() int { return 64 }
func (downProvider) Close() error    { return nil }

func TestSubgraphIncludesOneHopNeighbors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultConfig())

	answer := f.add(t, types.DecisionNodeType, "serialize events with protobuf", 0.8)
	dep := f.add(t, types.FactNodeType, "the schema registry stores protobuf descriptors", 0.6)
	unrelated := f.add(t, types.ContextNodeType, "office moves next quarter", 0.5)
	require.NoError(t, f.engine.Link(ctx, answer.ID, dep.ID, types.RequiresEdge))

	sub, err := f.searcher.Subgraph(ctx, "how do we serialize events", 1)
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, n := range sub.Nodes {
		ids[n.ID] = true
	}
	assert.True(t, ids[answer.ID])
	assert.True(t, ids[dep.ID], "1-hop neighbor must be included")
	assert.False(t, ids[unrelated.ID])
	require.Len(t, sub.Edges, 1)
	assert.Equal(t, types.RequiresEdge, sub.Edges[0].Type)
}
