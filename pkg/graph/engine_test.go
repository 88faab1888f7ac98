package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemos-ai/mnemos/pkg/consistency"
	"github.com/mnemos-ai/mnemos/pkg/embedder"
	"github.com/mnemos-ai/mnemos/pkg/store"
	"github.com/mnemos-ai/mnemos/pkg/types"
	"github.com/mnemos-ai/mnemos/pkg/vector"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	s, err := store.OpenBadger(store.InMemoryBadgerConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	coord := consistency.New(s, vector.NewMemoryIndex(16), embedder.NewHashProvider(16),
		consistency.RetryConfig{Attempts: 1, Backoff: time.Millisecond}, nil)
	return NewEngine(coord, nil)
}

func addFact(t *testing.T, e *Engine, content string) *types.Node {
	t.Helper()
	node, err := e.AddNode(context.Background(), AddNodeRequest{
		Type:    types.FactNodeType,
		Content: content,
	})
	require.NoError(t, err)
	return node
}

func TestAddNodeDefaultsConfidenceByType(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	fact, err := e.AddNode(ctx, AddNodeRequest{Type: types.FactNodeType, Content: "timestamps are UTC"})
	require.NoError(t, err)
	assert.Equal(t, types.ConfidenceDefault, fact.Confidence)

	assumption, err := e.AddNode(ctx, AddNodeRequest{Type: types.AssumptionNodeType, Content: "the cache is warm"})
	require.NoError(t, err)
	assert.Equal(t, types.ConfidenceAssumptionDefault, assumption.Confidence)
	assert.NotEmpty(t, assumption.Embedding)
	assert.NotEqual(t, fact.ID, assumption.ID)
}

func TestAddNodeValidation(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	_, err := e.AddNode(ctx, AddNodeRequest{Type: types.FactNodeType, Content: ""})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = e.AddNode(ctx, AddNodeRequest{Type: "opinion", Content: "something"})
	assert.ErrorIs(t, err, types.ErrValidation)

	full := 1.0
	_, err = e.AddNode(ctx, AddNodeRequest{Type: types.FactNodeType, Content: "x", Confidence: &full})
	assert.ErrorIs(t, err, types.ErrValidation, "1.0 is reserved for approval")

	strong := 0.9
	node, err := e.AddNode(ctx, AddNodeRequest{Type: types.FactNodeType, Content: "x", Confidence: &strong})
	require.NoError(t, err)
	assert.Equal(t, 0.9, node.Confidence)
}

func TestApproveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	node := addFact(t, e, "the service listens on 8080")

	require.NoError(t, e.Approve(ctx, node.ID))
	require.NoError(t, e.Approve(ctx, node.ID))

	got, err := e.GetNode(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, types.ConfidenceApproved, got.Confidence)
	assert.True(t, got.Approved())

	assert.ErrorIs(t, e.Approve(ctx, "missing"), types.ErrNodeNotFound)
}

func TestClarifyMarksNodeAndApproveClears(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	node := addFact(t, e, "deploys happen on Fridays")

	req, err := e.Clarify(ctx, node.ID, "is this still true after the freeze policy?")
	require.NoError(t, err)
	assert.Equal(t, node.ID, req.NodeID)
	assert.Equal(t, node.Content, req.Content)

	got, err := e.GetNode(ctx, node.ID)
	require.NoError(t, err)
	assert.True(t, got.NeedsClarification())
	assert.Equal(t, node.Confidence, got.Confidence, "clarify must not change confidence")

	require.NoError(t, e.Approve(ctx, node.ID))
	got, err = e.GetNode(ctx, node.ID)
	require.NoError(t, err)
	assert.False(t, got.NeedsClarification())
}

func TestUpdateContentReembeds(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	node := addFact(t, e, "the bucket is in us-east-1")

	require.NoError(t, e.UpdateContent(ctx, node.ID, "the bucket is in eu-west-1"))

	got, err := e.GetNode(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, "the bucket is in eu-west-1", got.Content)
	assert.NotEqual(t, node.Embedding, got.Embedding)
	assert.True(t, got.UpdatedAt.After(node.UpdatedAt) || got.UpdatedAt.Equal(node.UpdatedAt))

	assert.ErrorIs(t, e.UpdateContent(ctx, node.ID, ""), types.ErrValidation)
	assert.ErrorIs(t, e.UpdateContent(ctx, "missing", "anything"), types.ErrNodeNotFound)
}

func TestDeleteCascadesEdges(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	a := addFact(t, e, "a")
	b := addFact(t, e, "b")
	require.NoError(t, e.Link(ctx, a.ID, b.ID, types.RequiresEdge))

	require.NoError(t, e.Delete(ctx, a.ID))

	_, err := e.GetNode(ctx, a.ID)
	assert.ErrorIs(t, err, types.ErrNodeNotFound)
	_, err = e.GetEdge(ctx, a.ID, b.ID, types.RequiresEdge)
	assert.ErrorIs(t, err, types.ErrEdgeNotFound)

	assert.ErrorIs(t, e.Delete(ctx, a.ID), types.ErrNodeNotFound)
}

func TestLinkRejectsInvalidEdges(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	a := addFact(t, e, "a")
	b := addFact(t, e, "b")

	assert.ErrorIs(t, e.Link(ctx, a.ID, a.ID, types.RelatedToEdge), types.ErrSelfLoop)
	assert.ErrorIs(t, e.Link(ctx, a.ID, "missing", types.RelatedToEdge), types.ErrNodeNotFound)
	assert.ErrorIs(t, e.Link(ctx, a.ID, b.ID, "owns"), types.ErrValidation)

	require.NoError(t, e.Link(ctx, a.ID, b.ID, types.RelatedToEdge))
	assert.ErrorIs(t, e.Link(ctx, a.ID, b.ID, types.RelatedToEdge), types.ErrDuplicateEdge)

	// The reverse direction and other types are distinct edges.
	require.NoError(t, e.Link(ctx, b.ID, a.ID, types.RelatedToEdge))
	require.NoError(t, e.Link(ctx, a.ID, b.ID, types.RequiresEdge))
}

func TestSupersedesSetsAndClearsFlag(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	old := addFact(t, e, "use library X for parsing")
	replacement := addFact(t, e, "use library Y for parsing")
	second := addFact(t, e, "use library Z for parsing")

	require.NoError(t, e.Link(ctx, replacement.ID, old.ID, types.SupersedesEdge))
	got, err := e.GetNode(ctx, old.ID)
	require.NoError(t, err)
	assert.True(t, got.Superseded)

	// A second superseding edge keeps the flag after the first is removed.
	require.NoError(t, e.Link(ctx, second.ID, old.ID, types.SupersedesEdge))
	require.NoError(t, e.Unlink(ctx, replacement.ID, old.ID, types.SupersedesEdge))
	got, err = e.GetNode(ctx, old.ID)
	require.NoError(t, err)
	assert.True(t, got.Superseded)

	require.NoError(t, e.Unlink(ctx, second.ID, old.ID, types.SupersedesEdge))
	got, err = e.GetNode(ctx, old.ID)
	require.NoError(t, err)
	assert.False(t, got.Superseded)
}

func TestDeleteOfSupersederClearsTargetFlag(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	old := addFact(t, e, "use the staging bucket")
	replacement := addFact(t, e, "use the production bucket")
	require.NoError(t, e.Link(ctx, replacement.ID, old.ID, types.SupersedesEdge))

	require.NoError(t, e.Delete(ctx, replacement.ID))

	got, err := e.GetNode(ctx, old.ID)
	require.NoError(t, err)
	assert.False(t, got.Superseded, "flag must be re-derived after the superseder is deleted")
}

func TestConflictLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	strong := 0.9
	utc, err := e.AddNode(ctx, AddNodeRequest{Type: types.FactNodeType, Content: "origin=UTC", Confidence: &strong})
	require.NoError(t, err)
	local, err := e.AddNode(ctx, AddNodeRequest{Type: types.AssumptionNodeType, Content: "origin=local"})
	require.NoError(t, err)

	require.NoError(t, e.Link(ctx, utc.ID, local.ID, types.ContradictsEdge))

	conflicts, err := e.Conflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, utc.ID, conflicts[0].FromID)
	assert.Equal(t, local.ID, conflicts[0].ToID)

	// Superseding one side resolves the conflict without removing the edge.
	corrected := addFact(t, e, "origin=UTC, confirmed in runbook")
	require.NoError(t, e.Link(ctx, corrected.ID, local.ID, types.SupersedesEdge))
	conflicts, err = e.Conflicts(ctx)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	// Clearing the supersession reopens it; unlinking contradicts closes it.
	require.NoError(t, e.Unlink(ctx, corrected.ID, local.ID, types.SupersedesEdge))
	conflicts, err = e.Conflicts(ctx)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)

	require.NoError(t, e.Unlink(ctx, utc.ID, local.ID, types.ContradictsEdge))
	conflicts, err = e.Conflicts(ctx)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	assert.ErrorIs(t, e.Unlink(ctx, utc.ID, local.ID, types.ContradictsEdge), types.ErrEdgeNotFound)
}

func TestOrphansTrackIncidentEdges(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	lone := addFact(t, e, "standalone note")

	orphans, err := e.Orphans(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, lone.ID, orphans[0].ID)

	other := addFact(t, e, "another note")
	require.NoError(t, e.Link(ctx, lone.ID, other.ID, types.RelatedToEdge))

	orphans, err = e.Orphans(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestNeighborsFilters(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	center := addFact(t, e, "center")
	dep := addFact(t, e, "dependency")
	rel := addFact(t, e, "related")
	up := addFact(t, e, "upstream")

	require.NoError(t, e.Link(ctx, center.ID, dep.ID, types.RequiresEdge))
	require.NoError(t, e.Link(ctx, center.ID, rel.ID, types.RelatedToEdge))
	require.NoError(t, e.Link(ctx, up.ID, center.ID, types.DerivedFromEdge))

	all, err := e.Neighbors(ctx, center.ID, nil, types.DirectionBoth)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	outgoing, err := e.Neighbors(ctx, center.ID, nil, types.DirectionOutgoing)
	require.NoError(t, err)
	assert.Len(t, outgoing, 2)

	required, err := e.Neighbors(ctx, center.ID, []types.EdgeType{types.RequiresEdge}, types.DirectionBoth)
	require.NoError(t, err)
	require.Len(t, required, 1)
	assert.Equal(t, dep.ID, required[0].ID)

	_, err = e.Neighbors(ctx, "missing", nil, types.DirectionBoth)
	assert.ErrorIs(t, err, types.ErrNodeNotFound)
}

func TestStatsCounts(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	a := addFact(t, e, "a")
	b := addFact(t, e, "b")
	require.NoError(t, e.Link(ctx, a.ID, b.ID, types.ContradictsEdge))

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.NodeCount)
	assert.EqualValues(t, 1, stats.EdgeCount)
	assert.EqualValues(t, 2, stats.NodesByType[types.FactNodeType])
	assert.EqualValues(t, 1, stats.EdgesByType[types.ContradictsEdge])
	assert.EqualValues(t, 1, stats.ConflictCount)
	assert.EqualValues(t, 0, stats.OrphanCount)
}
