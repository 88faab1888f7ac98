package vector

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// WeaviateIndex implements Index on a Weaviate class. Each knowledge node
// maps to one object whose Weaviate id equals the node id, so upserts and
// deletes are naturally idempotent and replayable.
type WeaviateIndex struct {
	client *weaviate.Client
	class  string
}

var _ Index = (*WeaviateIndex)(nil)

// WeaviateConfig configures the connection and the class used for
// knowledge vectors.
type WeaviateConfig struct {
	// Host is the server address, e.g. "localhost:8080".
	Host string
	// Scheme is "http" or "https".
	Scheme string
	// Class is the Weaviate class name. Defaults to "KnowledgeVector".
	Class string
}

// NewWeaviateIndex connects to Weaviate and ensures the class exists with
// vectorizer disabled (vectors are supplied by the embedding provider, not
// by Weaviate modules).
func NewWeaviateIndex(ctx context.Context, cfg WeaviateConfig) (*WeaviateIndex, error) {
	if cfg.Class == "" {
		cfg.Class = "KnowledgeVector"
	}
	client, err := weaviate.NewClient(weaviate.Config{Host: cfg.Host, Scheme: cfg.Scheme})
	if err != nil {
		return nil, fmt.Errorf("vector: create weaviate client: %w", err)
	}

	idx := &WeaviateIndex{client: client, class: cfg.Class}
	if err := idx.ensureClass(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (w *WeaviateIndex) ensureClass(ctx context.Context) error {
	exists, err := w.client.Schema().ClassExistenceChecker().WithClassName(w.class).Do(ctx)
	if err != nil {
		return fmt.Errorf("vector: check weaviate class: %w", err)
	}
	if exists {
		return nil
	}
	class := &models.Class{
		Class:      w.class,
		Vectorizer: "none",
		Properties: []*models.Property{
			{Name: "node_id", DataType: []string{"text"}},
		},
	}
	if err := w.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("vector: create weaviate class: %w", err)
	}
	return nil
}

// Upsert replaces the object for id. Delete-then-create keeps the
// operation idempotent for the coordinator's replay path.
func (w *WeaviateIndex) Upsert(ctx context.Context, id string, vec []float32) error {
	// Ignore delete errors for objects that do not exist yet.
	_ = w.client.Data().Deleter().
		WithClassName(w.class).
		WithID(id).
		Do(ctx)

	_, err := w.client.Data().Creator().
		WithClassName(w.class).
		WithID(id).
		WithProperties(map[string]interface{}{"node_id": id}).
		WithVector(vec).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("vector: weaviate upsert %s: %w", id, err)
	}
	return nil
}

func (w *WeaviateIndex) Delete(ctx context.Context, id string) error {
	err := w.client.Data().Deleter().
		WithClassName(w.class).
		WithID(id).
		Do(ctx)
	if err != nil {
		// Absent objects are fine: delete must be replayable.
		exists, checkErr := w.client.Data().ObjectsGetter().
			WithClassName(w.class).
			WithID(id).
			Do(ctx)
		if checkErr == nil && len(exists) == 0 {
			return nil
		}
		return fmt.Errorf("vector: weaviate delete %s: %w", id, err)
	}
	return nil
}

func (w *WeaviateIndex) Search(ctx context.Context, vec []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	// Certainty is always in [0,1] regardless of the distance metric;
	// cosine similarity is recovered as 2*certainty - 1.
	fields := []graphql.Field{
		{Name: "node_id"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	result, err := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(fields...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector: weaviate search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("vector: weaviate search: %s", result.Errors[0].Message)
	}

	getData, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	objects, ok := getData[w.class].([]interface{})
	if !ok {
		return nil, nil
	}

	hits := make([]Hit, 0, len(objects))
	for _, raw := range objects {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		id, _ := obj["node_id"].(string)
		if id == "" {
			continue
		}
		similarity := 0.0
		if additional, ok := obj["_additional"].(map[string]interface{}); ok {
			if certainty, ok := additional["certainty"].(float64); ok {
				similarity = 2*certainty - 1
			}
		}
		hits = append(hits, Hit{ID: id, Similarity: similarity})
	}
	return hits, nil
}

func (w *WeaviateIndex) Len(ctx context.Context) (int, error) {
	result, err := w.client.GraphQL().Aggregate().
		WithClassName(w.class).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("vector: weaviate aggregate: %w", err)
	}
	aggregate, ok := result.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	objects, ok := aggregate[w.class].([]interface{})
	if !ok || len(objects) == 0 {
		return 0, nil
	}
	obj, ok := objects[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := obj["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	count, _ := meta["count"].(float64)
	return int(count), nil
}

// Close is a no-op; the weaviate client has no persistent connection to
// release.
func (w *WeaviateIndex) Close() error {
	return nil
}
