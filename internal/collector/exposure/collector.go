// Package exposure implements the externally-visible attack-surface
// collector (C5): dork generation, subdomain enumeration, endpoint
// probing, sensitive-file and source-control exposure, admin-panel
// discovery, config-file detection, and an optional GitHub code-search
// supplement (§4.5).
package exposure

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/gocolly/colly/v2"
	"github.com/google/go-github/v57/github"
	"github.com/ternarybob/arbor"
	"golang.org/x/oauth2"

	"github.com/sentrywatch/threatwatch/internal/collector"
	"github.com/sentrywatch/threatwatch/internal/common"
	"github.com/sentrywatch/threatwatch/internal/models"
)

// Pipeline implements collector.Collector for CapabilityExposureDiscovery,
// running the seven weighted phases of §4.5 in sequence.
type Pipeline struct {
	cfg    common.CrawlerConfig
	github common.GitHubConfig
	logger arbor.ILogger
}

// NewPipeline builds the exposure collector.
func NewPipeline(cfg common.CrawlerConfig, gh common.GitHubConfig, logger arbor.ILogger) *Pipeline {
	return &Pipeline{cfg: cfg, github: gh, logger: logger}
}

// Run implements collector.Collector (§4.5).
func (p *Pipeline) Run(ctx context.Context, job *models.Job, publish collector.Publisher) ([]*models.Finding, error) {
	target := strings.TrimSpace(job.Target)
	target = strings.TrimPrefix(target, "https://")
	target = strings.TrimPrefix(target, "http://")
	target = strings.TrimSuffix(target, "/")

	prober := newProber(p.cfg.HTTPTimeoutDuration())
	var findingsMu sync.Mutex
	var findings []*models.Finding
	add := func(f *models.Finding) {
		f.Evidence["job_id"] = job.ID
		publish.Finding(f)
		findingsMu.Lock()
		findings = append(findings, f)
		findingsMu.Unlock()
	}

	// 1. Dork generation (5%).
	dorks := make([]string, 0, len(dorkTemplates))
	for _, tmpl := range dorkTemplates {
		dorks = append(dorks, fmt.Sprintf(tmpl, target))
	}
	dorkFinding := models.NewFinding(models.CapabilityExposureDiscovery, models.SeverityInfo, 5, "Generated search dorks", fmt.Sprintf("%d dork queries generated for %s", len(dorks), target))
	dorkFinding.Evidence["dorks"] = dorks
	dorkFinding.Evidence["category"] = "dork"
	add(dorkFinding)
	job.SetMetadata("dork_queries", dorks)
	publish.Progress(10, "dork generation complete")

	select {
	case <-publish.Done():
		return findings, nil
	default:
	}

	// 2. Subdomain enumeration (10% -> 30%).
	liveSubdomains := p.enumerateSubdomains(ctx, target, prober, add)
	job.SetMetadata("live_subdomains", liveSubdomains)
	publish.Progress(30, fmt.Sprintf("%d live subdomains", len(liveSubdomains)))

	// 3. Endpoint probing (30% -> 50%).
	p.probePaths(ctx, target, endpointPaths, prober, func(res probeResult, path string) {
		if !res.OK {
			return
		}
		sev := endpointSeverity(path)
		if path == "/robots.txt" || path == "/" {
			sev = models.SeverityInfo
		}
		f := models.NewFinding(models.CapabilityExposureDiscovery, sev, severityScore(sev), fmt.Sprintf("Endpoint reachable: %s", path), fmt.Sprintf("%s returned HTTP %d", res.URL, res.StatusCode))
		f.Evidence["category"] = "endpoint"
		add(f)
	})
	publish.Progress(50, "endpoint probing complete")

	// 4. Sensitive file detection (50% -> 65%).
	p.probePaths(ctx, target, sensitiveFilePaths, prober, func(res probeResult, path string) {
		if !res.OK || res.StatusCode != 200 {
			return
		}
		sev := extensionSeverity(path)
		f := models.NewFinding(models.CapabilityExposureDiscovery, sev, severityScore(sev), fmt.Sprintf("Sensitive file exposed: %s", path), fmt.Sprintf("%s is publicly readable", res.URL))
		f.Evidence["category"] = "sensitive_file"
		add(f)
	})
	publish.Progress(65, "sensitive file sweep complete")

	// 5. Source-code/VCS exposure (65% -> 75%).
	p.probePaths(ctx, target, vcsMarkers, prober, func(res probeResult, path string) {
		if !res.OK || res.StatusCode != 200 {
			return
		}
		f := models.NewFinding(models.CapabilityExposureDiscovery, models.SeverityCritical, 90, fmt.Sprintf("Version-control metadata exposed: %s", path), fmt.Sprintf("%s exposes the working tree's version-control history", res.URL))
		f.Evidence["category"] = "vcs"
		add(f)
	})
	publish.Progress(75, "VCS exposure sweep complete")

	// 6. Admin-panel discovery (75% -> 85%).
	p.probePaths(ctx, target, adminPanelPaths, prober, func(res probeResult, path string) {
		if !res.OK {
			return
		}
		isPanel := res.StatusCode == 200 && bodyContainsAny(res.Body, loginIndicators)
		isGated := res.StatusCode == 401 || res.StatusCode == 403 || (res.StatusCode >= 300 && res.StatusCode < 400)
		if !isPanel && !isGated {
			return
		}
		f := models.NewFinding(models.CapabilityExposureDiscovery, models.SeverityHigh, 70, fmt.Sprintf("Admin panel discovered: %s", path), fmt.Sprintf("%s returned HTTP %d", res.URL, res.StatusCode))
		f.Evidence["category"] = "admin_panel"
		add(f)
	})
	publish.Progress(85, "admin panel sweep complete")

	// 7. Config-file detection (85% -> 95%).
	p.probePaths(ctx, target, configFilePaths, prober, func(res probeResult, path string) {
		if !res.OK || res.StatusCode != 200 || !bodyContainsAny(res.Body, configMarkers) {
			return
		}
		f := models.NewFinding(models.CapabilityExposureDiscovery, models.SeverityCritical, 92, fmt.Sprintf("Config file exposed: %s", path), fmt.Sprintf("%s leaks configuration markers", res.URL))
		f.Evidence["category"] = "config"
		add(f)
	})
	publish.Progress(95, "config file sweep complete")

	if p.github.Enabled && p.github.Token != "" {
		p.githubCodeSearch(ctx, target, add)
	}

	publish.Progress(100, "exposure scan complete")
	return findings, nil
}

// enumerateSubdomains implements §4.5 step 2: parallel DNS resolution
// over the fixed prefix wordlist, then an HTTPS-preferred GET probe of
// every resolving name under both schemes.
func (p *Pipeline) enumerateSubdomains(ctx context.Context, target string, prober *prober, add func(*models.Finding)) []string {
	resolver := net.DefaultResolver
	dnsTimeout := p.cfg.DNSTimeoutDuration()

	type hit struct {
		host      string
		httpsOK   bool
		httpOK    bool
	}
	hitsCh := make(chan hit, len(subdomainPrefixes))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.concurrency())
	for _, prefix := range subdomainPrefixes {
		prefix := prefix
		host := prefix + "." + target
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if !resolves(ctx, resolver, host, dnsTimeout) {
				return
			}

			httpsRes := prober.get(ctx, "https://"+host+"/")
			httpRes := prober.get(ctx, "http://"+host+"/")
			hitsCh <- hit{host: host, httpsOK: httpsRes.OK, httpOK: httpRes.OK}
		}()
	}
	go func() { wg.Wait(); close(hitsCh) }()

	var live []string
	for h := range hitsCh {
		if !h.httpsOK && !h.httpOK {
			continue
		}
		live = append(live, h.host)
		sev := models.SeverityInfo
		riskScore := severityScore(models.SeverityInfo)
		if h.httpOK && !h.httpsOK {
			sev = models.SeverityMedium
			riskScore = severityScore(models.SeverityMedium)
		}
		scheme := "https"
		if !h.httpsOK {
			scheme = "http"
		}
		desc := fmt.Sprintf("%s://%s responds", scheme, h.host)
		if h.httpsOK != h.httpOK {
			desc += fmt.Sprintf(" (%s only)", scheme)
		}
		f := models.NewFinding(models.CapabilityExposureDiscovery, sev, riskScore, fmt.Sprintf("Live subdomain: %s", h.host), desc)
		f.Evidence["category"] = "subdomain"
		add(f)
	}
	return live
}

// probePaths fetches every path under both schemes via a fresh colly
// collector, deduping via prober.seen and invoking onResult for each
// live response (§4.5 steps 3-7).
func (p *Pipeline) probePaths(ctx context.Context, target string, paths []string, prober *prober, onResult func(probeResult, string)) {
	col := newPageCollector("Mozilla/5.0 (compatible; ThreatWatch/1.0)", p.concurrency(), p.cfg.HTTPTimeoutDuration())
	col.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	targets := make(map[string]string)
	for _, path := range paths {
		for _, scheme := range []string{"https", "http"} {
			url := scheme + "://" + target + path
			if prober.seen(url) {
				continue
			}
			targets[url] = path
		}
	}
	sweep(col, targets, onResult)
}

func (p *Pipeline) concurrency() int {
	if p.cfg.Concurrency > 0 {
		return p.cfg.Concurrency
	}
	return 20
}

// extensionSeverity maps a sensitive file path to the severity its known
// extension implies, defaulting to high for anything unlisted (§4.5
// step 4).
func extensionSeverity(path string) models.Severity {
	for ext, sev := range sensitiveExtensions {
		if strings.HasSuffix(path, ext) {
			return sev
		}
	}
	return models.SeverityHigh
}

// severityScore picks a representative risk_score within sev's band so
// Finding.Validate's AgreesWithScore invariant always holds.
func severityScore(sev models.Severity) float64 {
	switch sev {
	case models.SeverityCritical:
		return 90
	case models.SeverityHigh:
		return 70
	case models.SeverityMedium:
		return 50
	case models.SeverityLow:
		return 20
	default:
		return 5
	}
}

// githubCodeSearch supplements the dork-based discovery with a real
// GitHub code search for the target domain, surfacing any public
// repository that references it (credentials, internal hostnames, etc).
func (p *Pipeline) githubCodeSearch(ctx context.Context, target string, add func(*models.Finding)) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: p.github.Token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	query := fmt.Sprintf("%q in:file", target)
	result, _, err := client.Search.Code(ctx, query, &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 20}})
	if err != nil || result == nil {
		return
	}
	for _, item := range result.CodeResults {
		if item.Repository == nil || item.Repository.FullName == nil {
			continue
		}
		f := models.NewFinding(models.CapabilityExposureDiscovery, models.SeverityMedium, 45, fmt.Sprintf("Target referenced in public repository %s", item.Repository.GetFullName()), fmt.Sprintf("%s mentions %s", item.GetHTMLURL(), target))
		add(f)
	}
}
