package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/mnemos-ai/mnemos/pkg/embedder"
	"github.com/mnemos-ai/mnemos/pkg/store"
	"github.com/mnemos-ai/mnemos/pkg/types"
	"github.com/mnemos-ai/mnemos/pkg/vector"
)

// minOverfetch is the floor on the candidate pool pulled from the vector
// index before re-ranking.
const minOverfetch = 20

// Config tunes the hybrid query engine.
type Config struct {
	// ConfidenceWeight is w in the composite score
	// similarity * (1-w + w*confidence). Zero means similarity only.
	ConfidenceWeight float64
	// OverfetchFactor multiplies the requested limit to size the candidate
	// pool; the pool never drops below minOverfetch.
	OverfetchFactor int
	// MinScore drops candidates whose composite score falls below it.
	MinScore float64
	// IncludeSuperseded returns superseded nodes alongside live ones
	// instead of holding them back for the fallback path.
	IncludeSuperseded bool
	// IncludeNeedsClarification keeps nodes with a pending clarification
	// request in results. Default policy is to keep them.
	IncludeNeedsClarification bool
}

// DefaultConfig returns the weights used when the config file does not
// override them.
func DefaultConfig() Config {
	return Config{
		ConfidenceWeight:          0.5,
		OverfetchFactor:           4,
		MinScore:                  0,
		IncludeSuperseded:         false,
		IncludeNeedsClarification: true,
	}
}

// Searcher answers "what do we know relevant to X" queries.
type Searcher struct {
	store    store.GraphStore
	index    vector.Index
	provider embedder.Provider
	cfg      Config
	logger   *slog.Logger
}

// NewSearcher creates a Searcher. A zero OverfetchFactor falls back to the
// default config's factor; a nil logger falls back to slog.Default().
func NewSearcher(graphStore store.GraphStore, index vector.Index, provider embedder.Provider, cfg Config, logger *slog.Logger) *Searcher {
	if cfg.OverfetchFactor <= 0 {
		cfg.OverfetchFactor = DefaultConfig().OverfetchFactor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{
		store:    graphStore,
		index:    index,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
}

// Query returns the top limit nodes relevant to the question, ranked by
// composite score. An empty question skips the embedding step and ranks
// purely by confidence and recency, which keeps the call deterministic
// when there is nothing to embed.
func (s *Searcher) Query(ctx context.Context, question string, limit int) ([]types.ScoredNode, error) {
	if limit <= 0 {
		return nil, &types.ValidationError{Field: "limit", Reason: "must be positive"}
	}
	if strings.TrimSpace(question) == "" {
		return s.queryByConfidence(ctx, limit)
	}

	queryVec, err := s.provider.EmbedSingle(ctx, question)
	if err != nil {
		return nil, err
	}

	k := limit * s.cfg.OverfetchFactor
	if k < minOverfetch {
		k = minOverfetch
	}
	hits, err := s.index.Search(ctx, queryVec, k)
	if err != nil {
		return nil, err
	}

	candidates := make(map[string]float64, len(hits))
	for _, hit := range hits {
		candidates[hit.ID] = hit.Similarity
	}

	// Index-pending nodes are committed in the graph store but may be
	// missing from the index; score them by exact scan over their stored
	// embedding so they are never silently omitted.
	pending, err := s.store.Pending(ctx)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		if err := s.scorePending(ctx, pending, queryVec, candidates); err != nil {
			return nil, err
		}
	}

	scored, superseded, err := s.rank(ctx, candidates)
	if err != nil {
		return nil, err
	}

	// Superseded knowledge is excluded by default, but when nothing live
	// matched it is still the best answer available.
	if len(scored) == 0 && !s.cfg.IncludeSuperseded {
		scored = superseded
	}

	sortScored(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// Subgraph runs Query and expands each result with its 1-hop neighbors and
// the connecting edges, de-duplicated.
func (s *Searcher) Subgraph(ctx context.Context, question string, limit int) (*types.Subgraph, error) {
	scored, err := s.Query(ctx, question, limit)
	if err != nil {
		return nil, err
	}

	sub := &types.Subgraph{}
	seenNodes := make(map[string]bool)
	seenEdges := make(map[string]bool)

	err = s.store.View(ctx, func(tx store.Tx) error {
		for _, sn := range scored {
			if !seenNodes[sn.Node.ID] {
				seenNodes[sn.Node.ID] = true
				sub.Nodes = append(sub.Nodes, sn.Node)
			}
			edges, err := tx.EdgesOf(sn.Node.ID, types.DirectionBoth, nil)
			if err != nil {
				return err
			}
			for _, edge := range edges {
				key := edge.FromID + ":" + string(edge.Type) + ":" + edge.ToID
				if !seenEdges[key] {
					seenEdges[key] = true
					sub.Edges = append(sub.Edges, edge)
				}
				for _, id := range []string{edge.FromID, edge.ToID} {
					if seenNodes[id] {
						continue
					}
					node, err := tx.GetNode(id)
					if err != nil {
						return err
					}
					seenNodes[id] = true
					sub.Nodes = append(sub.Nodes, node)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// scorePending adds exact-scan similarities for index-pending nodes that
// the index search missed.
func (s *Searcher) scorePending(ctx context.Context, pending []string, queryVec []float32, candidates map[string]float64) error {
	return s.store.View(ctx, func(tx store.Tx) error {
		for _, id := range pending {
			if _, ok := candidates[id]; ok {
				continue
			}
			node, err := tx.GetNode(id)
			if err != nil {
				// A pending marker may outlive its node until the
				// reconciler sweeps; nothing to score.
				if isNotFound(err) {
					continue
				}
				return err
			}
			candidates[id] = vector.Cosine(queryVec, node.Embedding)
		}
		return nil
	})
}

// rank loads each candidate node and computes composite scores, splitting
// superseded nodes into the fallback pool unless configured otherwise.
func (s *Searcher) rank(ctx context.Context, candidates map[string]float64) (scored, superseded []types.ScoredNode, err error) {
	w := s.cfg.ConfidenceWeight
	err = s.store.View(ctx, func(tx store.Tx) error {
		for id, similarity := range candidates {
			node, err := tx.GetNode(id)
			if err != nil {
				// The index may briefly hold entries for deleted nodes.
				if isNotFound(err) {
					continue
				}
				return err
			}
			if !s.cfg.IncludeNeedsClarification && node.NeedsClarification() {
				continue
			}
			score := similarity * (1 - w + w*node.Confidence)
			if score < s.cfg.MinScore {
				continue
			}
			sn := types.ScoredNode{Node: node, Score: score, Similarity: similarity}
			if node.Superseded && !s.cfg.IncludeSuperseded {
				superseded = append(superseded, sn)
				continue
			}
			scored = append(scored, sn)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return scored, superseded, nil
}

// queryByConfidence is the empty-question path: every live node ranked by
// confidence, then recency.
func (s *Searcher) queryByConfidence(ctx context.Context, limit int) ([]types.ScoredNode, error) {
	var scored []types.ScoredNode
	err := s.store.Nodes(ctx, func(n *types.Node) error {
		if n.Superseded && !s.cfg.IncludeSuperseded {
			return nil
		}
		if !s.cfg.IncludeNeedsClarification && n.NeedsClarification() {
			return nil
		}
		scored = append(scored, types.ScoredNode{Node: n, Score: n.Confidence})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortScored(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// sortScored orders by composite score descending, breaking ties by most
// recently updated, then by id for determinism.
func sortScored(scored []types.ScoredNode) {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if !scored[i].Node.UpdatedAt.Equal(scored[j].Node.UpdatedAt) {
			return scored[i].Node.UpdatedAt.After(scored[j].Node.UpdatedAt)
		}
		return scored[i].Node.ID < scored[j].Node.ID
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNodeNotFound)
}
