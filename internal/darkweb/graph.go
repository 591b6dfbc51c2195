package darkweb

import (
	"sync"

	"github.com/sentrywatch/threatwatch/internal/models"
)

// SiteGraph holds the in-memory directed graph of crawled sites plus
// their append-only crawl history and brand mentions, mirroring the
// HashMap/Graph/DoublyLinkedList trio the dark-web collector builds up
// during a run (§4.9.4 steps 10-12). It is held in memory only: nothing
// in it is written to the durable domain graph (internal/graph, C10), and
// it does not survive a restart.
type SiteGraph struct {
	mu sync.RWMutex

	sitesByID  map[string]*models.OnionSite
	sitesByURL map[string]*models.OnionSite
	edges      map[string][]string // site_id -> linked site_ids, directed
	mentions   []models.BrandMention
	history    []string // site_ids, append-only chronological order
}

// NewSiteGraph creates an empty graph.
func NewSiteGraph() *SiteGraph {
	return &SiteGraph{
		sitesByID:  map[string]*models.OnionSite{},
		sitesByURL: map[string]*models.OnionSite{},
		edges:      map[string][]string{},
	}
}

// AddSite upserts site by its SiteID and URL, and appends it to the
// chronological crawl history (§4.9.4 steps 10, 12).
func (g *SiteGraph) AddSite(site *models.OnionSite) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sitesByID[site.SiteID] = site
	g.sitesByURL[site.URL] = site
	g.history = append(g.history, site.SiteID)
}

// AddEdge records a directed edge from srcSiteID to dstSiteID; the
// relation label is informational only (the graph is single-typed per
// §4.9, unlike the richer typed graph in C10).
func (g *SiteGraph) AddEdge(srcSiteID, dstSiteID, _relation string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, existing := range g.edges[srcSiteID] {
		if existing == dstSiteID {
			return
		}
	}
	g.edges[srcSiteID] = append(g.edges[srcSiteID], dstSiteID)
}

// AddMention appends a brand mention.
func (g *SiteGraph) AddMention(m models.BrandMention) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mentions = append(g.mentions, m)
}

// SiteByURL returns the cached site for url, if crawled this run.
func (g *SiteGraph) SiteByURL(url string) (*models.OnionSite, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.sitesByURL[url]
	return s, ok
}

// SiteByID returns the cached site for siteID.
func (g *SiteGraph) SiteByID(siteID string) (*models.OnionSite, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.sitesByID[siteID]
	return s, ok
}

// Mentions returns every brand mention recorded so far.
func (g *SiteGraph) Mentions() []models.BrandMention {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]models.BrandMention, len(g.mentions))
	copy(out, g.mentions)
	return out
}

// LinkedSites returns the directed outbound neighbors of siteID.
func (g *SiteGraph) LinkedSites(siteID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.edges[siteID]))
	copy(out, g.edges[siteID])
	return out
}

// History returns the full chronological crawl order.
func (g *SiteGraph) History() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.history))
	copy(out, g.history)
	return out
}
