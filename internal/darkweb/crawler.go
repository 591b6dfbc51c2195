// Package darkweb implements the dark-web intelligence pipeline (C9):
// keyword discovery across Ahmia/Tor66/OnionLand, a bounded-parallel Tor
// crawl with Bloom-filtered dedup, entity extraction, categorization,
// risk scoring, and a directed site graph — all backed by a durable URL
// database.
package darkweb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/sentrywatch/threatwatch/internal/collector"
	"github.com/sentrywatch/threatwatch/internal/common"
	"github.com/sentrywatch/threatwatch/internal/models"
	"github.com/sentrywatch/threatwatch/internal/ratelimit"
	"github.com/sentrywatch/threatwatch/internal/torproxy"
)

// Pipeline implements collector.Collector for CapabilityDarkWebIntel,
// driving the Init → Discover → (DBFallback) → Plan → Crawl → Finalize
// state machine (§4.9).
type Pipeline struct {
	cfg    common.DarkWebConfig
	tor    common.TorConfig
	urldb  *URLDatabase
	graph  *SiteGraph
	limits *ratelimit.Limiter
	logger arbor.ILogger

	filterMu sync.Mutex
	filter   *urlFilter
}

// NewPipeline builds the dark-web collector. urldb is backed by the
// shared store, so URL crawl state survives restarts; graph is held in
// memory for the life of the process.
func NewPipeline(cfg common.DarkWebConfig, tor common.TorConfig, urldb *URLDatabase, graph *SiteGraph, logger arbor.ILogger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		tor:    tor,
		urldb:  urldb,
		graph:  graph,
		limits: ratelimit.New(500*time.Millisecond, 1),
		logger: logger,
		filter: newDefaultURLFilter(),
	}
}

// Run implements collector.Collector (§4.9).
func (p *Pipeline) Run(ctx context.Context, job *models.Job, publish collector.Publisher) ([]*models.Finding, error) {
	client, err := torproxy.NewClient(p.tor)
	if err != nil {
		return nil, fmt.Errorf("build tor client: %w", err)
	}

	keywords := splitKeywords(job.Target)
	monitored := job.GetConfigStringSlice("monitored_keywords")

	maxURLs := job.GetConfigInt("max_urls", p.cfg.DefaultCrawlLimit)
	workerThreads := job.GetConfigInt("worker_threads", p.cfg.MaxWorkers)
	crawlTimeout := p.cfg.CrawlTimeoutDuration()
	if s, ok := job.GetConfigString("crawl_timeout"); ok {
		if d, err := time.ParseDuration(s); err == nil {
			crawlTimeout = d
		}
	}

	publish.Progress(5, "starting dark-web discovery")

	discovered, err := p.discover(ctx, client, keywords, publish)
	if err != nil {
		publish.Log("warn", "discovery failed", map[string]interface{}{"error": err.Error()})
	}

	if len(discovered) == 0 {
		discovered = p.dbFallback()
	}
	if len(discovered) == 0 {
		f := models.NewFinding(models.CapabilityDarkWebIntel, models.SeverityInfo, 10.0, "Dark Web Intelligence: No URLs Discovered", "No onion URLs were discovered or available from prior crawls for this target.")
		f.Evidence["job_id"] = job.ID
		publish.Finding(f)
		publish.Progress(100, "no URLs discovered")
		return nil, nil
	}

	job.SetMetadata("discovered_urls", discovered)
	job.SetMetadata("crawled_urls", []string{})
	job.SetMetadata("uncrawled_urls", discovered)
	publish.Progress(25, fmt.Sprintf("discovered %d URLs", len(discovered)))

	urlsToCrawl := discovered
	if len(urlsToCrawl) > maxURLs {
		urlsToCrawl = urlsToCrawl[:maxURLs]
	}

	crawlCtx, cancel := context.WithTimeout(ctx, crawlTimeout)
	defer cancel()

	findings := p.crawl(crawlCtx, urlsToCrawl, workerThreads, monitored, job, publish)

	if len(findings) == 0 && len(urlsToCrawl) > 0 {
		f := models.NewFinding(models.CapabilityDarkWebIntel, models.SeverityInfo, 5, fmt.Sprintf("No matches for %s", job.Target), "Crawled URLs produced no keyword matches or high-risk entities.")
		f.Evidence["job_id"] = job.ID
		publish.Finding(f)
		findings = append(findings, f)
	}

	publish.Progress(100, "dark-web pipeline complete")
	return findings, nil
}

// splitKeywords parses job.target as a comma-separated keyword list
// (§4.9.1).
func splitKeywords(target string) []string {
	parts := strings.Split(target, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// discover runs §4.9.1: one worker per engine per keyword, publishing an
// interim informational finding as each engine completes with one or
// more URLs (an engine with no results gets a progress message only), then unions,
// lowercases, dedups, and .onion-filters the combined result before
// persisting it to the URL database.
func (p *Pipeline) discover(ctx context.Context, client *torproxy.Client, keywords []string, publish collector.Publisher) ([]string, error) {
	engines := engineRegistry(p.cfg.Engines)
	seen := map[string]bool{}
	var all []string

	for _, kw := range keywords {
		resultCh := make(chan discoveryResult, len(engines))
		discoverAll(ctx, client, kw, p.cfg.MaxPages, engines, resultCh)

		for r := range resultCh {
			if r.Err != nil {
				publish.Log("warn", "discovery engine failed", map[string]interface{}{"engine": r.Engine, "error": r.Err.Error()})
				continue
			}
			publish.Progress(10, fmt.Sprintf("%s found %d URLs", r.Engine, len(r.URLs)))
			if len(r.URLs) > 0 {
				publish.Finding(models.NewFinding(models.CapabilityDarkWebIntel, models.SeverityInfo, 5,
					fmt.Sprintf("Dark Web Discovery: %s", r.Engine),
					fmt.Sprintf("%s returned %d URLs for keyword %q", r.Engine, len(r.URLs), kw)))
			}
			for _, u := range r.URLs {
				host := onionHost(u)
				if host == "" || seen[host] {
					continue
				}
				seen[host] = true
				all = append(all, host)
			}
		}
	}

	if len(all) > 0 {
		if _, err := p.urldb.BatchSave(all, "discovery", "URI", ""); err != nil {
			return all, err
		}
	}
	return all, nil
}

// onionHost normalizes u to a bare lowercased .onion host, or "" if it
// isn't one.
func onionHost(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "https://")
	if idx := strings.IndexAny(u, "/?#"); idx >= 0 {
		u = u[:idx]
	}
	if !strings.HasSuffix(u, ".onion") {
		return ""
	}
	return u
}

// dbFallback implements §4.9.2: up to 10 prior non-Offline URLs from the
// database.
func (p *Pipeline) dbFallback() []string {
	rows, err := p.urldb.Select(nil, nil)
	if err != nil {
		return nil
	}
	if len(rows) > 10 {
		rows = rows[:10]
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.URL)
	}
	return out
}

// crawlResult carries one URL's outcome back from a worker for ordered
// finding production as each completes (§4.9.4).
type crawlResult struct {
	url      string
	site     *models.OnionSite
	entities []models.ExtractedEntity
	err      error
}

// crawl runs §4.9.4's bounded-parallel worker pool, returning every
// finding produced as each URL completes.
func (p *Pipeline) crawl(ctx context.Context, urls []string, workers int, monitored []string, job *models.Job, publish collector.Publisher) []*models.Finding {
	if workers < 1 {
		workers = 1
	}

	jobsCh := make(chan string, len(urls))
	for _, u := range urls {
		jobsCh <- u
	}
	close(jobsCh)

	resultsCh := make(chan crawlResult, len(urls))
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobsCh {
				select {
				case <-ctx.Done():
					resultsCh <- crawlResult{url: u, err: ctx.Err()}
					continue
				case <-publish.Done():
					resultsCh <- crawlResult{url: u, err: ctx.Err()}
					continue
				default:
				}
				resultsCh <- p.crawlOne(ctx, u, monitored)
			}
		}()
	}
	go func() { wg.Wait(); close(resultsCh) }()

	var findings []*models.Finding
	var crawled []string
	done := 0
	total := len(urls)

	for r := range resultsCh {
		done++
		publish.Progress(30+int(float64(done)/float64(total)*60), fmt.Sprintf("crawled %d/%d", done, total))

		if r.err != nil {
			publish.Log("warn", "crawl failed", map[string]interface{}{"url": r.url, "error": r.err.Error()})
			continue
		}
		crawled = append(crawled, r.url)

		if len(r.site.KeywordsMatched) > 0 {
			riskPct := r.site.RiskScore * 100
			f := models.NewFinding(models.CapabilityDarkWebIntel, findingSeverityForRiskScore(riskPct), riskPct, fmt.Sprintf("Keyword match on %s", r.site.URL), fmt.Sprintf("Matched keywords: %s", strings.Join(r.site.KeywordsMatched, ", ")))
			f.Evidence["job_id"] = job.ID
			f.Evidence["site_id"] = r.site.SiteID
			f.Evidence["category"] = string(r.site.Category)
			publish.Finding(f)
			findings = append(findings, f)
		}

		for _, e := range r.entities {
			switch e.EntityType {
			case models.EntityEmail:
				f := models.NewFinding(models.CapabilityDarkWebIntel, models.SeverityMedium, 65, "Email address found on dark web", fmt.Sprintf("Found %s at %s", e.Value, e.SourceURL))
				f.Evidence["job_id"] = job.ID
				f.Evidence["value"] = e.Value
				publish.Finding(f)
				findings = append(findings, f)
			case models.EntityCreditCard:
				f := models.NewFinding(models.CapabilityDarkWebIntel, models.SeverityHigh, 85, "Credit card pattern found on dark web", fmt.Sprintf("Found a candidate card number at %s", e.SourceURL))
				f.Evidence["job_id"] = job.ID
				publish.Finding(f)
				findings = append(findings, f)
			}
		}
	}

	job.SetMetadata("crawled_urls", crawled)
	job.SetMetadata("uncrawled_urls", subtract(urls, crawled))
	return findings
}

func subtract(all, crawled []string) []string {
	done := map[string]bool{}
	for _, u := range crawled {
		done[u] = true
	}
	var out []string
	for _, u := range all {
		if !done[u] {
			out = append(out, u)
		}
	}
	return out
}

// findingSeverityForRiskScore picks the Finding severity whose band
// contains riskScorePct (0-100), keeping Finding.Validate's
// AgreesWithScore invariant satisfied regardless of the site's coarser
// ThreatLevel.
func findingSeverityForRiskScore(riskScorePct float64) models.Severity {
	switch {
	case riskScorePct >= 85:
		return models.SeverityCritical
	case riskScorePct >= 65:
		return models.SeverityHigh
	case riskScorePct >= 35:
		return models.SeverityMedium
	case riskScorePct >= 15:
		return models.SeverityLow
	default:
		return models.SeverityInfo
	}
}

// crawlOne implements one pass through §4.9.4 steps 1-12 for a single URL.
func (p *Pipeline) crawlOne(ctx context.Context, rawURL string, monitored []string) crawlResult {
	onionURL := "http://" + rawURL

	p.filterMu.Lock()
	alreadySeen := p.filter.Contains(onionURL)
	if !alreadySeen {
		p.filter.Add(onionURL)
	}
	p.filterMu.Unlock()

	if cached, ok := p.graph.SiteByURL(onionURL); ok && alreadySeen {
		return crawlResult{url: rawURL, site: cached}
	}

	if err := p.limits.Wait(ctx, onionURL); err != nil {
		return crawlResult{url: rawURL, err: err}
	}

	client, err := torproxy.NewClient(p.tor)
	if err != nil {
		return crawlResult{url: rawURL, err: err}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	doc, err := fetchWithRetry(fetchCtx, client, onionURL)

	rec, hadRecord := p.urldb.SelectURL(onionURL)
	if !hadRecord {
		_ = p.urldb.Save(onionURL, "crawl", "URI", onionURL)
		rec, _ = p.urldb.SelectURL(onionURL)
	}

	if err != nil {
		if rec != nil {
			_ = p.urldb.UpdateStatus(rec.ID, 0, 3)
		}
		return crawlResult{url: rawURL, err: err}
	}
	if rec != nil {
		_ = p.urldb.UpdateStatus(rec.ID, 200, 3)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	bodyText := extractBodyText(doc)

	var category models.SiteCategory
	var keywordsMatched []string
	if len(monitored) > 0 {
		keywordsMatched = checkKeywordMatches(bodyText, monitored)
		category = categorizeSite(bodyText, title)
	} else {
		category = categorizeSite(bodyText, title)
	}

	entities := extractEntities(bodyText, onionURL)
	language := detectLanguage(bodyText)
	riskScore, threatLevel := calculateRiskScore(category, entities, keywordsMatched)

	siteID := common.SiteID(onionURL)
	site := &models.OnionSite{
		SiteID:            siteID,
		URL:               onionURL,
		Title:             title,
		Category:          category,
		ThreatLevel:       threatLevel,
		Language:          language,
		ContentHash:       common.ContentHash(bodyText),
		ExtractedEntities: entities,
		KeywordsMatched:   keywordsMatched,
		RiskScore:         riskScore,
		FirstSeen:         time.Now(),
		LastSeen:          time.Now(),
		IsOnline:          true,
		PageCount:         1,
	}

	p.graph.AddSite(site)

	for _, link := range extractOnionLinks(bodyText) {
		p.graph.AddEdge(site.SiteID, common.SiteID(link), "links_to")
	}

	if rec != nil {
		categoryStr := string(category)
		_ = p.urldb.UpdateCategorie(rec.ID, categoryStr, title, categoryStr, int(riskScore*100), strings.Join(keywordsMatched, ","), len(keywordsMatched))
	}

	for _, kw := range keywordsMatched {
		mention := models.BrandMention{
			MentionID: common.ShortHash(kw, onionURL, time.Now().String()),
			Keyword:   kw,
			URL:       onionURL,
			SiteID:    site.SiteID,
			FoundAt:   time.Now(),
		}
		p.graph.AddMention(mention)
	}

	return crawlResult{url: rawURL, site: site, entities: entities}
}

// extractBodyText strips script/style and converts the remaining body to
// markdown-flattened text, mirroring the BeautifulSoup stripped_strings
// join used by the original connector's text() method.
func extractBodyText(doc *goquery.Document) string {
	doc.Find("script, style").Remove()
	html, err := doc.Find("body").Html()
	if err != nil || html == "" {
		return strings.TrimSpace(doc.Text())
	}
	converter := md.NewConverter("", true, nil)
	text, err := converter.ConvertString(html)
	if err != nil {
		return strings.TrimSpace(doc.Text())
	}
	return strings.TrimSpace(text)
}
