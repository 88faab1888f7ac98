package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/mnemos-ai/mnemos/pkg/types"
)

// Neo4jStore implements GraphStore on a Neo4j (or bolt-compatible) server.
// Nodes carry the label Knowledge; every relationship uses the REL type
// with the logical edge type stored as a property, so the fixed edge-type
// vocabulary never requires dynamic Cypher.
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
}

var _ GraphStore = (*Neo4jStore)(nil)

// OpenNeo4j connects to a Neo4j server with basic auth.
func OpenNeo4j(uri, username, password, database string) (*Neo4jStore, error) {
	client, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("store: create neo4j driver: %w", err)
	}
	if database == "" {
		database = "neo4j"
	}
	return &Neo4jStore{client: client, database: database}, nil
}

// Close releases the driver's connection pool.
func (s *Neo4jStore) Close() error {
	return s.client.Close(context.Background())
}

// neo4jTx implements Tx over a managed bolt transaction.
type neo4jTx struct {
	ctx      context.Context
	tx       neo4j.ManagedTransaction
	writable bool
}

var _ Tx = (*neo4jTx)(nil)

func (s *Neo4jStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&neo4jTx{ctx: ctx, tx: tx, writable: true})
	})
	return err
}

func (s *Neo4jStore) View(ctx context.Context, fn func(tx Tx) error) error {
	session := s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&neo4jTx{ctx: ctx, tx: tx})
	})
	return err
}

func nodeToProps(n *types.Node) (map[string]any, error) {
	props := map[string]any{
		"id":         n.ID,
		"type":       string(n.Type),
		"content":    n.Content,
		"user_said":  n.UserSaid,
		"confidence": n.Confidence,
		"superseded": n.Superseded,
		"created_at": n.CreatedAt.UTC(),
		"updated_at": n.UpdatedAt.UTC(),
	}
	embedding := make([]float64, len(n.Embedding))
	for i, v := range n.Embedding {
		embedding[i] = float64(v)
	}
	props["embedding"] = embedding
	// Neo4j properties cannot hold nested maps; metadata travels as JSON.
	if len(n.Metadata) > 0 {
		raw, err := json.Marshal(n.Metadata)
		if err != nil {
			return nil, err
		}
		props["metadata_json"] = string(raw)
	} else {
		props["metadata_json"] = ""
	}
	return props, nil
}

func nodeFromDBNode(dbNode dbtype.Node) (*types.Node, error) {
	props := dbNode.Props
	node := &types.Node{}
	if v, ok := props["id"].(string); ok {
		node.ID = v
	}
	if v, ok := props["type"].(string); ok {
		node.Type = types.NodeType(v)
	}
	if v, ok := props["content"].(string); ok {
		node.Content = v
	}
	if v, ok := props["user_said"].(string); ok {
		node.UserSaid = v
	}
	if v, ok := props["confidence"].(float64); ok {
		node.Confidence = v
	}
	if v, ok := props["superseded"].(bool); ok {
		node.Superseded = v
	}
	if v, ok := props["created_at"].(time.Time); ok {
		node.CreatedAt = v
	}
	if v, ok := props["updated_at"].(time.Time); ok {
		node.UpdatedAt = v
	}
	if v, ok := props["embedding"].([]any); ok {
		node.Embedding = make([]float32, 0, len(v))
		for _, raw := range v {
			if f, ok := raw.(float64); ok {
				node.Embedding = append(node.Embedding, float32(f))
			}
		}
	}
	if v, ok := props["metadata_json"].(string); ok && v != "" {
		if err := json.Unmarshal([]byte(v), &node.Metadata); err != nil {
			return nil, &types.StorageError{Op: "decode node metadata", Err: err}
		}
	}
	return node, nil
}

func edgeFromValues(from, to, edgeType any, createdAt any) *types.Edge {
	edge := &types.Edge{}
	if v, ok := from.(string); ok {
		edge.FromID = v
	}
	if v, ok := to.(string); ok {
		edge.ToID = v
	}
	if v, ok := edgeType.(string); ok {
		edge.Type = types.EdgeType(v)
	}
	if v, ok := createdAt.(time.Time); ok {
		edge.CreatedAt = v
	}
	return edge
}

func (t *neo4jTx) GetNode(id string) (*types.Node, error) {
	res, err := t.tx.Run(t.ctx, `MATCH (n:Knowledge {id: $id}) RETURN n`, map[string]any{"id": id})
	if err != nil {
		return nil, &types.StorageError{Op: "get node", Err: err}
	}
	record, err := res.Single(t.ctx)
	if err != nil {
		return nil, types.ErrNodeNotFound
	}
	value, found := record.Get("n")
	if !found {
		return nil, types.ErrNodeNotFound
	}
	dbNode, ok := value.(dbtype.Node)
	if !ok {
		return nil, &types.StorageError{Op: "get node", Err: fmt.Errorf("unexpected record type %T", value)}
	}
	return nodeFromDBNode(dbNode)
}

func (t *neo4jTx) PutNode(n *types.Node) error {
	props, err := nodeToProps(n)
	if err != nil {
		return &types.StorageError{Op: "encode node", Err: err}
	}
	_, err = t.tx.Run(t.ctx, `
		MERGE (n:Knowledge {id: $id})
		SET n = $props
	`, map[string]any{"id": n.ID, "props": props})
	if err != nil {
		return &types.StorageError{Op: "put node", Err: err}
	}
	return nil
}

func (t *neo4jTx) DeleteNode(id string) error {
	if _, err := t.GetNode(id); err != nil {
		return err
	}
	_, err := t.tx.Run(t.ctx, `
		MATCH (n:Knowledge {id: $id})
		DETACH DELETE n
	`, map[string]any{"id": id})
	if err != nil {
		return &types.StorageError{Op: "delete node", Err: err}
	}
	_, err = t.tx.Run(t.ctx, `
		MATCH (p:IndexPending {id: $id}) DELETE p
	`, map[string]any{"id": id})
	if err != nil {
		return &types.StorageError{Op: "delete node pending marker", Err: err}
	}
	return nil
}

func (t *neo4jTx) GetEdge(from, to string, edgeType types.EdgeType) (*types.Edge, error) {
	res, err := t.tx.Run(t.ctx, `
		MATCH (a:Knowledge {id: $from})-[r:REL {type: $type}]->(b:Knowledge {id: $to})
		RETURN a.id AS from, b.id AS to, r.type AS type, r.created_at AS created_at
	`, map[string]any{"from": from, "to": to, "type": string(edgeType)})
	if err != nil {
		return nil, &types.StorageError{Op: "get edge", Err: err}
	}
	record, err := res.Single(t.ctx)
	if err != nil {
		return nil, types.ErrEdgeNotFound
	}
	fromV, _ := record.Get("from")
	toV, _ := record.Get("to")
	typeV, _ := record.Get("type")
	createdV, _ := record.Get("created_at")
	return edgeFromValues(fromV, toV, typeV, createdV), nil
}

func (t *neo4jTx) PutEdge(e *types.Edge) error {
	_, err := t.tx.Run(t.ctx, `
		MATCH (a:Knowledge {id: $from}), (b:Knowledge {id: $to})
		MERGE (a)-[r:REL {type: $type}]->(b)
		SET r.created_at = $created_at
	`, map[string]any{
		"from":       e.FromID,
		"to":         e.ToID,
		"type":       string(e.Type),
		"created_at": e.CreatedAt.UTC(),
	})
	if err != nil {
		return &types.StorageError{Op: "put edge", Err: err}
	}
	return nil
}

func (t *neo4jTx) DeleteEdge(from, to string, edgeType types.EdgeType) error {
	if _, err := t.GetEdge(from, to, edgeType); err != nil {
		return err
	}
	_, err := t.tx.Run(t.ctx, `
		MATCH (a:Knowledge {id: $from})-[r:REL {type: $type}]->(b:Knowledge {id: $to})
		DELETE r
	`, map[string]any{"from": from, "to": to, "type": string(edgeType)})
	if err != nil {
		return &types.StorageError{Op: "delete edge", Err: err}
	}
	return nil
}

func (t *neo4jTx) EdgesOf(id string, dir types.Direction, edgeTypes []types.EdgeType) ([]*types.Edge, error) {
	typeStrings := make([]string, len(edgeTypes))
	for i, et := range edgeTypes {
		typeStrings[i] = string(et)
	}
	params := map[string]any{"id": id, "types": typeStrings, "filter": len(edgeTypes) > 0}

	var edges []*types.Edge
	collect := func(query string) error {
		res, err := t.tx.Run(t.ctx, query, params)
		if err != nil {
			return &types.StorageError{Op: "scan edges", Err: err}
		}
		records, err := res.Collect(t.ctx)
		if err != nil {
			return &types.StorageError{Op: "collect edges", Err: err}
		}
		for _, record := range records {
			fromV, _ := record.Get("from")
			toV, _ := record.Get("to")
			typeV, _ := record.Get("type")
			createdV, _ := record.Get("created_at")
			edges = append(edges, edgeFromValues(fromV, toV, typeV, createdV))
		}
		return nil
	}

	if dir == types.DirectionOutgoing || dir == types.DirectionBoth {
		if err := collect(`
			MATCH (a:Knowledge {id: $id})-[r:REL]->(b:Knowledge)
			WHERE NOT $filter OR r.type IN $types
			RETURN a.id AS from, b.id AS to, r.type AS type, r.created_at AS created_at
		`); err != nil {
			return nil, err
		}
	}
	if dir == types.DirectionIncoming || dir == types.DirectionBoth {
		if err := collect(`
			MATCH (a:Knowledge)-[r:REL]->(b:Knowledge {id: $id})
			WHERE NOT $filter OR r.type IN $types
			RETURN a.id AS from, b.id AS to, r.type AS type, r.created_at AS created_at
		`); err != nil {
			return nil, err
		}
	}
	return edges, nil
}

func (t *neo4jTx) MarkPending(id string) error {
	_, err := t.tx.Run(t.ctx, `
		MERGE (p:IndexPending {id: $id})
		SET p.marked_at = $at
	`, map[string]any{"id": id, "at": time.Now().UTC()})
	if err != nil {
		return &types.StorageError{Op: "mark pending", Err: err}
	}
	return nil
}

func (t *neo4jTx) ClearPending(id string) error {
	_, err := t.tx.Run(t.ctx, `
		MATCH (p:IndexPending {id: $id}) DELETE p
	`, map[string]any{"id": id})
	if err != nil {
		return &types.StorageError{Op: "clear pending", Err: err}
	}
	return nil
}

func (s *Neo4jStore) Conflicts(ctx context.Context) ([]types.Conflict, error) {
	var conflicts []types.Conflict
	err := s.View(ctx, func(tx Tx) error {
		nt := tx.(*neo4jTx)
		res, err := nt.tx.Run(nt.ctx, `
			MATCH (a:Knowledge)-[r:REL {type: $type}]->(b:Knowledge)
			WHERE NOT a.superseded AND NOT b.superseded
			RETURN a.id AS from, b.id AS to, r.created_at AS created_at
			ORDER BY r.created_at ASC
		`, map[string]any{"type": string(types.ContradictsEdge)})
		if err != nil {
			return &types.StorageError{Op: "scan conflicts", Err: err}
		}
		records, err := res.Collect(nt.ctx)
		if err != nil {
			return &types.StorageError{Op: "collect conflicts", Err: err}
		}
		for _, record := range records {
			fromV, _ := record.Get("from")
			toV, _ := record.Get("to")
			createdV, _ := record.Get("created_at")
			edge := edgeFromValues(fromV, toV, string(types.ContradictsEdge), createdV)
			conflicts = append(conflicts, types.Conflict{
				FromID:    edge.FromID,
				ToID:      edge.ToID,
				CreatedAt: edge.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conflicts, nil
}

func (s *Neo4jStore) Orphans(ctx context.Context) ([]*types.Node, error) {
	var orphans []*types.Node
	err := s.View(ctx, func(tx Tx) error {
		nt := tx.(*neo4jTx)
		res, err := nt.tx.Run(nt.ctx, `
			MATCH (n:Knowledge)
			WHERE NOT (n)-[:REL]-()
			RETURN n
			ORDER BY n.created_at ASC
		`, nil)
		if err != nil {
			return &types.StorageError{Op: "scan orphans", Err: err}
		}
		records, err := res.Collect(nt.ctx)
		if err != nil {
			return &types.StorageError{Op: "collect orphans", Err: err}
		}
		for _, record := range records {
			value, found := record.Get("n")
			if !found {
				continue
			}
			dbNode, ok := value.(dbtype.Node)
			if !ok {
				continue
			}
			node, err := nodeFromDBNode(dbNode)
			if err != nil {
				return err
			}
			orphans = append(orphans, node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orphans, nil
}

func (s *Neo4jStore) Nodes(ctx context.Context, fn func(n *types.Node) error) error {
	return s.View(ctx, func(tx Tx) error {
		nt := tx.(*neo4jTx)
		res, err := nt.tx.Run(nt.ctx, `MATCH (n:Knowledge) RETURN n`, nil)
		if err != nil {
			return &types.StorageError{Op: "scan nodes", Err: err}
		}
		records, err := res.Collect(nt.ctx)
		if err != nil {
			return &types.StorageError{Op: "collect nodes", Err: err}
		}
		for _, record := range records {
			value, found := record.Get("n")
			if !found {
				continue
			}
			dbNode, ok := value.(dbtype.Node)
			if !ok {
				continue
			}
			node, err := nodeFromDBNode(dbNode)
			if err != nil {
				return err
			}
			if err := fn(node); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Neo4jStore) Pending(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.View(ctx, func(tx Tx) error {
		nt := tx.(*neo4jTx)
		res, err := nt.tx.Run(nt.ctx, `MATCH (p:IndexPending) RETURN p.id AS id`, nil)
		if err != nil {
			return &types.StorageError{Op: "scan pending", Err: err}
		}
		records, err := res.Collect(nt.ctx)
		if err != nil {
			return &types.StorageError{Op: "collect pending", Err: err}
		}
		for _, record := range records {
			if v, found := record.Get("id"); found {
				if id, ok := v.(string); ok {
					ids = append(ids, id)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Neo4jStore) Stats(ctx context.Context) (*types.GraphStats, error) {
	stats := &types.GraphStats{
		NodesByType: make(map[types.NodeType]int64),
		EdgesByType: make(map[types.EdgeType]int64),
		LastUpdated: time.Now().UTC(),
	}
	if err := s.Nodes(ctx, func(n *types.Node) error {
		stats.NodeCount++
		stats.NodesByType[n.Type]++
		return nil
	}); err != nil {
		return nil, err
	}
	err := s.View(ctx, func(tx Tx) error {
		nt := tx.(*neo4jTx)
		res, err := nt.tx.Run(nt.ctx, `
			MATCH (:Knowledge)-[r:REL]->(:Knowledge)
			RETURN r.type AS type, count(r) AS count
		`, nil)
		if err != nil {
			return &types.StorageError{Op: "scan edge stats", Err: err}
		}
		records, err := res.Collect(nt.ctx)
		if err != nil {
			return &types.StorageError{Op: "collect edge stats", Err: err}
		}
		for _, record := range records {
			typeV, _ := record.Get("type")
			countV, _ := record.Get("count")
			et, _ := typeV.(string)
			count, _ := countV.(int64)
			stats.EdgeCount += count
			stats.EdgesByType[types.EdgeType(et)] += count
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	orphans, err := s.Orphans(ctx)
	if err != nil {
		return nil, err
	}
	stats.OrphanCount = int64(len(orphans))
	conflicts, err := s.Conflicts(ctx)
	if err != nil {
		return nil, err
	}
	stats.ConflictCount = int64(len(conflicts))
	pending, err := s.Pending(ctx)
	if err != nil {
		return nil, err
	}
	stats.PendingCount = int64(len(pending))
	return stats, nil
}
