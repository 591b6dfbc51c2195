package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrywatch/threatwatch/internal/common"
	"github.com/sentrywatch/threatwatch/internal/models"
	"github.com/sentrywatch/threatwatch/internal/storage"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(common.StorageConfig{BadgerPath: dir}, common.GetLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestSaveEntityCoalescesOnNaturalKey(t *testing.T) {
	g := newTestGraph(t)
	e := &models.GraphEntity{OwnerUserID: "u1", Type: "domain", Value: "example.com"}
	require.NoError(t, g.SaveEntity(e))
	firstID := e.ID

	e2 := &models.GraphEntity{OwnerUserID: "u1", Type: "domain", Value: "example.com", Severity: models.SeverityHigh}
	require.NoError(t, g.SaveEntity(e2))
	assert.Equal(t, firstID, e2.ID)

	got, ok := g.GetEntity(firstID, "u1", false)
	require.True(t, ok)
	assert.Equal(t, models.SeverityHigh, got.Severity)
}

func TestGetNeighborsBFS(t *testing.T) {
	g := newTestGraph(t)
	a := &models.GraphEntity{OwnerUserID: "u1", Type: "domain", Value: "a"}
	b := &models.GraphEntity{OwnerUserID: "u1", Type: "domain", Value: "b"}
	c := &models.GraphEntity{OwnerUserID: "u1", Type: "domain", Value: "c"}
	require.NoError(t, g.SaveEntity(a))
	require.NoError(t, g.SaveEntity(b))
	require.NoError(t, g.SaveEntity(c))

	require.NoError(t, g.AddRelationship(a.ID, b.ID, models.RelationResolvesTo, 0, nil, "u1"))
	require.NoError(t, g.AddRelationship(b.ID, c.ID, models.RelationResolvesTo, 0, nil, "u1"))

	neighbors, err := g.GetNeighbors(a.ID, 1, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, neighbors)

	neighbors, err = g.GetNeighbors(a.ID, 2, "u1", false)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b.ID, c.ID}, neighbors)
}

func TestFindPath(t *testing.T) {
	g := newTestGraph(t)
	a := &models.GraphEntity{OwnerUserID: "u1", Type: "domain", Value: "a"}
	b := &models.GraphEntity{OwnerUserID: "u1", Type: "domain", Value: "b"}
	c := &models.GraphEntity{OwnerUserID: "u1", Type: "domain", Value: "c"}
	require.NoError(t, g.SaveEntity(a))
	require.NoError(t, g.SaveEntity(b))
	require.NoError(t, g.SaveEntity(c))
	require.NoError(t, g.AddRelationship(a.ID, b.ID, models.RelationResolvesTo, 0, nil, "u1"))
	require.NoError(t, g.AddRelationship(b.ID, c.ID, models.RelationResolvesTo, 0, nil, "u1"))

	path, err := g.FindPath(a.ID, c.ID, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, path)

	path, err = g.FindPath(c.ID, a.ID, "u1", false)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestFindClusters(t *testing.T) {
	g := newTestGraph(t)
	a := &models.GraphEntity{OwnerUserID: "u1", Type: "domain", Value: "a"}
	b := &models.GraphEntity{OwnerUserID: "u1", Type: "domain", Value: "b"}
	x := &models.GraphEntity{OwnerUserID: "u1", Type: "domain", Value: "x"}
	require.NoError(t, g.SaveEntity(a))
	require.NoError(t, g.SaveEntity(b))
	require.NoError(t, g.SaveEntity(x))
	require.NoError(t, g.AddRelationship(a.ID, b.ID, models.RelationResolvesTo, 0, nil, "u1"))

	clusters, err := g.FindClusters(2, "u1", false)
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, clusters[0])
}

func TestVisibilityFiltersByOwner(t *testing.T) {
	g := newTestGraph(t)
	e := &models.GraphEntity{OwnerUserID: "u1", Type: "domain", Value: "private.com"}
	require.NoError(t, g.SaveEntity(e))

	_, ok := g.GetEntity(e.ID, "u2", false)
	assert.False(t, ok)

	_, ok = g.GetEntity(e.ID, "u2", true)
	assert.True(t, ok)
}
