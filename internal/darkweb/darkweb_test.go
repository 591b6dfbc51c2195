package darkweb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrywatch/threatwatch/internal/common"
	"github.com/sentrywatch/threatwatch/internal/models"
	"github.com/sentrywatch/threatwatch/internal/storage"
)

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(common.StorageConfig{BadgerPath: dir}, common.GetLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestURLFilterAddContains(t *testing.T) {
	f := newURLFilter(1000, 0.01)
	assert.False(t, f.Contains("http://a.onion"))
	f.Add("http://a.onion")
	assert.True(t, f.Contains("http://a.onion"))
	assert.False(t, f.Contains("http://b.onion"))
}

func TestURLDatabaseSaveAndBatchSaveDedup(t *testing.T) {
	db := newTestDB(t)
	urldb, err := NewURLDatabase(db)
	require.NoError(t, err)

	require.NoError(t, urldb.Save("http://Example.onion", "ahmia", "discovery", "http://example.onion"))
	rec, ok := urldb.SelectURL("http://example.onion")
	require.True(t, ok)
	assert.Equal(t, "ahmia", rec.Source)

	inserted, err := urldb.BatchSave([]string{"http://example.onion", "http://new.onion"}, "tor66", "discovery", "")
	require.NoError(t, err)
	assert.Equal(t, 1, inserted) // example.onion already present, only new.onion inserted

	second, err := urldb.BatchSave([]string{"http://example.onion", "http://new.onion"}, "tor66", "discovery", "")
	require.NoError(t, err)
	assert.Equal(t, 0, second)
}

func TestURLDatabaseUpdateStatusOfflineAfterThreshold(t *testing.T) {
	db := newTestDB(t)
	urldb, err := NewURLDatabase(db)
	require.NoError(t, err)
	require.NoError(t, urldb.Save("http://flaky.onion", "ahmia", "discovery", ""))
	rec, ok := urldb.SelectURL("http://flaky.onion")
	require.True(t, ok)

	for i := 0; i < 5; i++ {
		require.NoError(t, urldb.UpdateStatus(rec.ID, 500, 3))
	}
	rows, err := urldb.Select(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rows) // offline rows are excluded by Select
}

func TestSiteGraphAddSiteAndEdges(t *testing.T) {
	g := NewSiteGraph()
	site := &models.OnionSite{SiteID: "s1", URL: "http://a.onion", ThreatLevel: models.ThreatLow}
	g.AddSite(site)

	got, ok := g.SiteByURL("http://a.onion")
	require.True(t, ok)
	assert.Equal(t, "s1", got.SiteID)

	g.AddEdge("s1", "s2", "links_to")
	g.AddEdge("s1", "s2", "links_to") // idempotent
	assert.Equal(t, []string{"s2"}, g.LinkedSites("s1"))

	g.AddMention(models.BrandMention{MentionID: "m1", Keyword: "brand", SiteID: "s1"})
	assert.Len(t, g.Mentions(), 1)
	assert.Equal(t, []string{"s1"}, g.History())
}
