package mnemos

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mnemos-ai/mnemos/pkg/config"
	"github.com/mnemos-ai/mnemos/pkg/consistency"
	"github.com/mnemos-ai/mnemos/pkg/embedder"
	"github.com/mnemos-ai/mnemos/pkg/graph"
	"github.com/mnemos-ai/mnemos/pkg/search"
	"github.com/mnemos-ai/mnemos/pkg/store"
	"github.com/mnemos-ai/mnemos/pkg/types"
	"github.com/mnemos-ai/mnemos/pkg/vector"
)

// Re-exported sentinels so callers can match errors without importing
// pkg/types.
var (
	ErrNodeNotFound  = types.ErrNodeNotFound
	ErrEdgeNotFound  = types.ErrEdgeNotFound
	ErrDuplicateEdge = types.ErrDuplicateEdge
	ErrSelfLoop      = types.ErrSelfLoop
	ErrValidation    = types.ErrValidation
)

// AddNodeRequest mirrors graph.AddNodeRequest at the facade boundary.
type AddNodeRequest = graph.AddNodeRequest

// Mnemos is the main interface for interacting with the knowledge store.
type Mnemos interface {
	KnowledgeWriter
	GraphLinker
	KnowledgeQuerier
	GraphAuditor
	Admin
}

// Config wires the collaborators of a Client. Store, Index, and Provider
// are required; everything else has working defaults.
type Config struct {
	// Store is the transactional graph store (source of truth).
	Store store.GraphStore
	// Index is the vector index (derived projection).
	Index vector.Index
	// Provider is the embedding provider.
	Provider embedder.Provider

	// Search tunes the hybrid query engine. Fields are taken as given; a
	// zero OverfetchFactor falls back to the package default.
	Search search.Config
	// Retry bounds the post-commit index replay.
	Retry consistency.RetryConfig
	// ReconcileInterval is the index-pending sweep interval. Zero uses the
	// package default.
	ReconcileInterval time.Duration

	Logger *slog.Logger
}

// Client is the main implementation of the Mnemos interface.
type Client struct {
	store      store.GraphStore
	index      vector.Index
	provider   embedder.Provider
	coord      *consistency.Coordinator
	engine     *graph.Engine
	searcher   *search.Searcher
	reconciler *consistency.Reconciler
	logger     *slog.Logger
}

var _ Mnemos = (*Client)(nil)

// NewClient assembles a Client from the given collaborators and starts the
// background reconciler.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Store == nil {
		return nil, errors.New("mnemos: Config.Store is required")
	}
	if cfg.Index == nil {
		return nil, errors.New("mnemos: Config.Index is required")
	}
	if cfg.Provider == nil {
		return nil, errors.New("mnemos: Config.Provider is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	coord := consistency.New(cfg.Store, cfg.Index, cfg.Provider, cfg.Retry, logger)
	c := &Client{
		store:      cfg.Store,
		index:      cfg.Index,
		provider:   cfg.Provider,
		coord:      coord,
		engine:     graph.NewEngine(coord, logger),
		searcher:   search.NewSearcher(cfg.Store, cfg.Index, cfg.Provider, cfg.Search, logger),
		reconciler: consistency.NewReconciler(cfg.Store, cfg.Index, cfg.ReconcileInterval, logger),
		logger:     logger,
	}
	c.reconciler.Start(context.Background())
	return c, nil
}

// Open builds a Client from file configuration: it selects and opens the
// graph store, vector index, and embedding provider the config names.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	graphStore, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	index, err := openIndex(ctx, cfg)
	if err != nil {
		_ = graphStore.Close()
		return nil, err
	}
	provider := openProvider(cfg, logger)

	return NewClient(Config{
		Store:    graphStore,
		Index:    index,
		Provider: provider,
		Search: search.Config{
			ConfidenceWeight:          cfg.Query.ConfidenceWeight,
			OverfetchFactor:           cfg.Query.OverfetchFactor,
			MinScore:                  cfg.Query.MinScore,
			IncludeSuperseded:         cfg.Query.IncludeSuperseded,
			IncludeNeedsClarification: cfg.Query.IncludeNeedsClarification,
		},
		Retry: consistency.RetryConfig{
			Attempts: cfg.Reconciler.RetryAttempts,
			Backoff:  time.Duration(cfg.Reconciler.RetryBackoff) * time.Millisecond,
		},
		ReconcileInterval: time.Duration(cfg.Reconciler.Interval) * time.Second,
		Logger:            logger,
	})
}

func openStore(cfg *config.Config, logger *slog.Logger) (store.GraphStore, error) {
	switch cfg.Store.Driver {
	case "neo4j":
		return store.OpenNeo4j(cfg.Store.URI, cfg.Store.Username, cfg.Store.Password, cfg.Store.Database)
	case "badger", "":
		badgerCfg := store.DefaultBadgerConfig(cfg.Store.Path)
		badgerCfg.InMemory = cfg.Store.InMemory
		badgerCfg.Logger = logger
		return store.OpenBadger(badgerCfg)
	default:
		return nil, errors.New("mnemos: unknown store driver " + cfg.Store.Driver)
	}
}

func openIndex(ctx context.Context, cfg *config.Config) (vector.Index, error) {
	switch cfg.Vector.Driver {
	case "weaviate":
		return vector.NewWeaviateIndex(ctx, vector.WeaviateConfig{
			Host:   cfg.Vector.Host,
			Scheme: cfg.Vector.Scheme,
			Class:  cfg.Vector.Class,
		})
	case "memory", "":
		return vector.NewMemoryIndex(cfg.Vector.Dimensions), nil
	default:
		return nil, errors.New("mnemos: unknown vector driver " + cfg.Vector.Driver)
	}
}

func openProvider(cfg *config.Config, logger *slog.Logger) embedder.Provider {
	var provider embedder.Provider
	switch cfg.Embedding.Provider {
	case "hash":
		provider = embedder.NewHashProvider(cfg.Vector.Dimensions)
	default:
		provider = embedder.NewOpenAIProvider(cfg.Embedding.APIKey, embedder.Config{
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Vector.Dimensions,
			BaseURL:    cfg.Embedding.BaseURL,
			Timeout:    time.Duration(cfg.Embedding.Timeout) * time.Second,
		})
	}
	if cfg.CircuitBreaker.Enabled {
		provider = embedder.NewBreakerProvider(provider, embedder.BreakerConfig{
			MaxRequests:      cfg.CircuitBreaker.MaxRequests,
			Interval:         time.Duration(cfg.CircuitBreaker.Interval) * time.Second,
			Timeout:          time.Duration(cfg.CircuitBreaker.Timeout) * time.Second,
			ReadyToTripRatio: cfg.CircuitBreaker.ReadyToTripRatio,
		}, logger)
	}
	return provider
}

// Close implements Admin. It stops the reconciler and closes every
// collaborator; the first error wins but all are attempted.
func (c *Client) Close() error {
	c.reconciler.Stop()
	var firstErr error
	for _, closer := range []func() error{
		c.provider.Close,
		c.index.Close,
		c.store.Close,
	} {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
