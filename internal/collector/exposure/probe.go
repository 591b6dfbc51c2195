package exposure

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// prober issues GET requests with the configured HTTP timeout and no
// retries, and keeps the per-run set of probed URLs that seen() uses to
// dedup the path sweeps (§4.5: "Total HTTP timeout per request: 5s; no
// retries"). Only the subdomain scheme check fetches through this plain
// *http.Client; the endpoint/sensitive-file/VCS/admin-panel/config-file
// sweeps fetch through colly (see newPageCollector and sweep).
type prober struct {
	client *http.Client

	mu     sync.Mutex
	probed map[string]bool
}

func newProber(timeout time.Duration) *prober {
	return &prober{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		probed: map[string]bool{},
	}
}

// seen marks rawURL as probed, returning true if it was already probed
// this run (the Bloom-filter-style dedup set from §4.5).
func (p *prober) seen(rawURL string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.probed[rawURL] {
		return true
	}
	p.probed[rawURL] = true
	return false
}

// probeResult is the outcome of one GET, with connection/DNS errors
// folded into ok=false rather than surfaced (§4.5: "treated as not
// found").
type probeResult struct {
	URL        string
	StatusCode int
	Body       string
	OK         bool
}

func (p *prober) get(ctx context.Context, rawURL string) probeResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return probeResult{URL: rawURL}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ThreatWatch/1.0)")

	resp, err := p.client.Do(req)
	if err != nil {
		return probeResult{URL: rawURL}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	return probeResult{URL: rawURL, StatusCode: resp.StatusCode, Body: string(body), OK: true}
}

// resolves checks whether host has any DNS record, bounded by
// dnsTimeout (§4.5 step 2).
func resolves(ctx context.Context, resolver *net.Resolver, host string, dnsTimeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()
	addrs, err := resolver.LookupHost(ctx, host)
	return err == nil && len(addrs) > 0
}

// bodyContainsAny reports whether body contains any of needles,
// case-insensitively.
func bodyContainsAny(body string, needles []string) bool {
	lower := strings.ToLower(body)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// newPageCollector builds a colly collector configured for the bulk
// page-body sweeps (endpoint/sensitive-file/VCS/admin-panel/config-file
// probing), mirroring the teacher's async + bounded-parallelism Colly
// setup (internal/services/crawler/html_scraper.go) in place of a
// hand-rolled goroutine pool.
func newPageCollector(userAgent string, concurrency int, timeout time.Duration) *colly.Collector {
	c := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(userAgent),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(timeout)
	_ = c.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: concurrency})
	return c
}

// sweep visits every key of urls (url -> originating path) through col,
// invoking onResult for each successful response; transport-level
// failures (DNS, connection refused, timeout) are silently dropped,
// matching §4.5's "treated as not found" rule.
func sweep(col *colly.Collector, urls map[string]string, onResult func(probeResult, string)) {
	var mu sync.Mutex
	col.OnResponse(func(r *colly.Response) {
		path := urls[r.Request.URL.String()]
		mu.Lock()
		onResult(probeResult{URL: r.Request.URL.String(), StatusCode: r.StatusCode, Body: string(r.Body), OK: true}, path)
		mu.Unlock()
	})
	for u := range urls {
		_ = col.Visit(u)
	}
	col.Wait()
}
