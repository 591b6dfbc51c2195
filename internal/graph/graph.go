// Package graph implements the domain graph / entity index (C10): a
// directed graph of entities and relations persisted in badgerhold, with
// BFS neighborhood/shortest-path/clustering operations and per-user
// visibility filtering (§4.10).
package graph

import (
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/sentrywatch/threatwatch/internal/models"
	"github.com/sentrywatch/threatwatch/internal/storage"
)

// entityRecord is the badgerhold-persisted row for one GraphEntity.
type entityRecord struct {
	ID           string `badgerhold:"key"`
	OwnerUserID  string `badgerholdIndex:"OwnerUserID"`
	Type         string `badgerholdIndex:"Type"`
	Value        string
	NaturalKey   string `badgerholdIndex:"NaturalKey"`
	Severity     models.Severity
	Metadata     map[string]interface{}
	DiscoveredAt time.Time
}

// edgeRecord is the badgerhold-persisted row for one GraphEdge.
type edgeRecord struct {
	Key            string `badgerhold:"key"`
	SourceEntityID string `badgerholdIndex:"SourceEntityID"`
	TargetEntityID string `badgerholdIndex:"TargetEntityID"`
	Relation       string
	Weight         float64
	Metadata       map[string]interface{}
	OwnerUserID    string `badgerholdIndex:"OwnerUserID"`
}

// Graph is the durable entity/edge index, generalized from badgerhold's
// indexed-query model the way internal/darkweb.URLDatabase generalizes
// it for discovery URLs.
type Graph struct {
	db *storage.DB
}

// New wraps db for graph operations.
func New(db *storage.DB) *Graph {
	return &Graph{db: db}
}

// SaveEntity upserts entity by id, coalescing on (type, value, user) so a
// second save of the same natural key updates rather than duplicates it
// (§4.10 "Duplicate entities ... are coalesced on write").
func (g *Graph) SaveEntity(entity *models.GraphEntity) error {
	key := entity.NaturalKey()
	var existing []entityRecord
	if err := g.db.Store().Find(&existing, badgerhold.Where("NaturalKey").Eq(key)); err != nil {
		return err
	}
	if len(existing) > 0 {
		entity.ID = existing[0].ID
	}
	if entity.ID == "" {
		entity.ID = key
	}
	if entity.DiscoveredAt.IsZero() {
		entity.DiscoveredAt = time.Now()
	}
	rec := entityRecord{
		ID:           entity.ID,
		OwnerUserID:  entity.OwnerUserID,
		Type:         entity.Type,
		Value:        entity.Value,
		NaturalKey:   key,
		Severity:     entity.Severity,
		Metadata:     entity.Metadata,
		DiscoveredAt: entity.DiscoveredAt,
	}
	return g.db.Store().Upsert(rec.ID, rec)
}

// GetEntity returns the entity with id, filtered to ownerUserID unless
// admin is true.
func (g *Graph) GetEntity(id, ownerUserID string, admin bool) (*models.GraphEntity, bool) {
	var rec entityRecord
	if err := g.db.Store().Get(id, &rec); err != nil {
		return nil, false
	}
	if !admin && rec.OwnerUserID != ownerUserID {
		return nil, false
	}
	return toEntity(rec), true
}

// GetByType returns every entity of typ visible to ownerUserID.
func (g *Graph) GetByType(typ, ownerUserID string, admin bool) ([]*models.GraphEntity, error) {
	var rows []entityRecord
	query := badgerhold.Where("Type").Eq(typ)
	if !admin {
		query = query.And("OwnerUserID").Eq(ownerUserID)
	}
	if err := g.db.Store().Find(&rows, query); err != nil {
		return nil, err
	}
	out := make([]*models.GraphEntity, len(rows))
	for i, r := range rows {
		out[i] = toEntity(r)
	}
	return out, nil
}

// GetEntityByValue returns the entity matching (type, value) for
// ownerUserID, or (nil, false) if none.
func (g *Graph) GetEntityByValue(typ, value, ownerUserID string, admin bool) (*models.GraphEntity, bool) {
	var rows []entityRecord
	query := badgerhold.Where("Type").Eq(typ).And("Value").Eq(value)
	if !admin {
		query = query.And("OwnerUserID").Eq(ownerUserID)
	}
	if err := g.db.Store().Find(&rows, query); err != nil || len(rows) == 0 {
		return nil, false
	}
	return toEntity(rows[0]), true
}

// AddRelationship upserts a directed edge, idempotent on
// (src, tgt, relation) (§4.10).
func (g *Graph) AddRelationship(src, tgt, relation string, weight float64, metadata map[string]interface{}, ownerUserID string) error {
	if weight == 0 {
		weight = 1.0
	}
	edge := models.GraphEdge{SourceEntityID: src, TargetEntityID: tgt, Relation: relation}
	rec := edgeRecord{
		Key:            edge.Key(),
		SourceEntityID: src,
		TargetEntityID: tgt,
		Relation:       relation,
		Weight:         weight,
		Metadata:       metadata,
		OwnerUserID:    ownerUserID,
	}
	return g.db.Store().Upsert(rec.Key, rec)
}

// GetNeighbors returns ids reachable from id within depth hops, in BFS
// order, following outbound edges only (§4.10).
func (g *Graph) GetNeighbors(id string, depth int, ownerUserID string, admin bool) ([]string, error) {
	if depth < 1 {
		depth = 1
	}
	visited := map[string]bool{id: true}
	queue := []string{id}
	var order []string

	for d := 0; d < depth && len(queue) > 0; d++ {
		var next []string
		for _, cur := range queue {
			outbound, err := g.outboundTargets(cur, ownerUserID, admin)
			if err != nil {
				return nil, err
			}
			for _, n := range outbound {
				if visited[n] {
					continue
				}
				visited[n] = true
				order = append(order, n)
				next = append(next, n)
			}
		}
		queue = next
	}
	return order, nil
}

// FindPath returns the unweighted shortest path from src to tgt (BFS),
// or an empty slice if none exists (§4.10).
func (g *Graph) FindPath(src, tgt, ownerUserID string, admin bool) ([]string, error) {
	if src == tgt {
		return []string{src}, nil
	}
	visited := map[string]bool{src: true}
	parent := map[string]string{}
	queue := []string{src}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		outbound, err := g.outboundTargets(cur, ownerUserID, admin)
		if err != nil {
			return nil, err
		}
		for _, n := range outbound {
			if visited[n] {
				continue
			}
			visited[n] = true
			parent[n] = cur
			if n == tgt {
				return reconstructPath(parent, src, tgt), nil
			}
			queue = append(queue, n)
		}
	}
	return nil, nil
}

// FindClusters returns connected components of size >= minSize on the
// undirected projection of the graph (both src->tgt and tgt->src edges
// count as adjacency), via repeated BFS (§4.10).
func (g *Graph) FindClusters(minSize int, ownerUserID string, admin bool) ([][]string, error) {
	if minSize < 2 {
		minSize = 2
	}
	adjacency, err := g.undirectedAdjacency(ownerUserID, admin)
	if err != nil {
		return nil, err
	}

	visited := map[string]bool{}
	var clusters [][]string
	for node := range adjacency {
		if visited[node] {
			continue
		}
		component := bfsComponent(node, adjacency, visited)
		if len(component) >= minSize {
			clusters = append(clusters, component)
		}
	}
	return clusters, nil
}

func bfsComponent(start string, adjacency map[string]map[string]bool, visited map[string]bool) []string {
	visited[start] = true
	queue := []string{start}
	component := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for n := range adjacency[cur] {
			if visited[n] {
				continue
			}
			visited[n] = true
			component = append(component, n)
			queue = append(queue, n)
		}
	}
	return component
}

func (g *Graph) outboundTargets(id, ownerUserID string, admin bool) ([]string, error) {
	var rows []edgeRecord
	query := badgerhold.Where("SourceEntityID").Eq(id)
	if !admin {
		query = query.And("OwnerUserID").Eq(ownerUserID)
	}
	if err := g.db.Store().Find(&rows, query); err != nil {
		return nil, err
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.TargetEntityID
	}
	return out, nil
}

func (g *Graph) undirectedAdjacency(ownerUserID string, admin bool) (map[string]map[string]bool, error) {
	var rows []edgeRecord
	query := badgerhold.Where("SourceEntityID").Ne("")
	if !admin {
		query = query.And("OwnerUserID").Eq(ownerUserID)
	}
	if err := g.db.Store().Find(&rows, query); err != nil {
		return nil, err
	}
	adjacency := map[string]map[string]bool{}
	link := func(a, b string) {
		if adjacency[a] == nil {
			adjacency[a] = map[string]bool{}
		}
		adjacency[a][b] = true
	}
	for _, r := range rows {
		link(r.SourceEntityID, r.TargetEntityID)
		link(r.TargetEntityID, r.SourceEntityID)
	}
	return adjacency, nil
}

func reconstructPath(parent map[string]string, src, tgt string) []string {
	path := []string{tgt}
	for path[len(path)-1] != src {
		path = append(path, parent[path[len(path)-1]])
	}
	// reverse
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func toEntity(r entityRecord) *models.GraphEntity {
	return &models.GraphEntity{
		ID:           r.ID,
		OwnerUserID:  r.OwnerUserID,
		Type:         r.Type,
		Value:        r.Value,
		Severity:     r.Severity,
		Metadata:     r.Metadata,
		DiscoveredAt: r.DiscoveredAt,
	}
}
