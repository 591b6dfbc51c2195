package darkweb

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sentrywatch/threatwatch/internal/torproxy"
)

// desktopUserAgents is the fixed rotation pool every discovery/crawl
// request picks from (§4.9.1).
var desktopUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.13; rv:60.0) Gecko/20100101 Firefox/60.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0",
}

func randomUserAgent() string {
	return desktopUserAgents[rand.Intn(len(desktopUserAgents))]
}

// discoveryEngine is one of {Ahmia, Tor66, OnionLand}, each implementing
// its own pagination and result-extraction quirks (§4.9.1).
type discoveryEngine interface {
	Name() string
	Search(ctx context.Context, client *torproxy.Client, keyword string, maxPages int) ([]string, error)
}

// fetchWithRetry performs an exponential-backoff retry (up to 2 retries)
// on any fetch error: a failed connection and a non-200 status are both
// retried.
func fetchWithRetry(ctx context.Context, client *torproxy.Client, rawURL string) (*goquery.Document, error) {
	const maxRetries = 2
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		doc, err := fetchOnce(ctx, client, rawURL)
		if err == nil {
			return doc, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("fetch %s after %d retries: %w", rawURL, maxRetries, lastErr)
}

func fetchOnce(ctx context.Context, client *torproxy.Client, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", randomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")

	resp, err := client.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// ahmiaEngine implements the Ahmia search flow: fetch the home page for a
// CSRF token, then issue the real query carrying it (§4.9.1).
type ahmiaEngine struct{ baseURL string }

func newAhmiaEngine() *ahmiaEngine { return &ahmiaEngine{baseURL: "http://juhanurmihxlp77nkq76byazjcsjieazxn4...onion"} }

func (e *ahmiaEngine) Name() string { return "ahmia" }

func (e *ahmiaEngine) Search(ctx context.Context, client *torproxy.Client, keyword string, maxPages int) ([]string, error) {
	homeDoc, err := fetchWithRetry(ctx, client, e.baseURL+"/")
	if err != nil {
		return nil, err
	}

	csrfFields := url.Values{}
	homeDoc.Find("input[type=hidden]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		value, _ := s.Attr("value")
		if name != "" {
			csrfFields.Set(name, value)
		}
	})

	query := url.Values{}
	query.Set("q", keyword)
	for k, vs := range csrfFields {
		for _, v := range vs {
			query.Set(k, v)
		}
	}

	searchURL := e.baseURL + "/search/?" + query.Encode()
	doc, err := fetchWithRetry(ctx, client, searchURL)
	if err != nil {
		return nil, err
	}

	var urls []string
	sel := doc.Find("li.result h4 a")
	if sel.Length() == 0 {
		sel = doc.Find(".result a, .searchResult a")
	}
	sel.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		if real := redirectTarget(href); real != "" {
			urls = append(urls, real)
		}
	})
	return urls, nil
}

// redirectTarget extracts and decodes the "redirect_url" query parameter
// Ahmia wraps result links in.
func redirectTarget(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("redirect_url")
}

// tor66Engine implements the Tor66 search-result-count pagination flow
// (§4.9.1).
type tor66Engine struct{ baseURL string }

func newTor66Engine() *tor66Engine { return &tor66Engine{baseURL: "http://tor66sezptuu2nta.onion"} }

func (e *tor66Engine) Name() string { return "tor66" }

var tor66CountPattern = `Onion sites found : `

func (e *tor66Engine) Search(ctx context.Context, client *torproxy.Client, keyword string, maxPages int) ([]string, error) {
	firstURL := fmt.Sprintf("%s/search?q=%s&sorttype=rel&page=1", e.baseURL, url.QueryEscape(keyword))
	doc, err := fetchWithRetry(ctx, client, firstURL)
	if err != nil {
		return nil, err
	}

	pages := 1
	bodyText := doc.Text()
	if idx := strings.Index(bodyText, tor66CountPattern); idx >= 0 {
		rest := bodyText[idx+len(tor66CountPattern):]
		var n int
		if _, err := fmt.Sscanf(rest, "%d", &n); err == nil {
			pages = (n + 9) / 10
		}
	}
	if pages > 30 {
		pages = 30
	}
	if pages < 1 {
		pages = 1
	}

	var urls []string
	urls = append(urls, extractTor66Results(doc)...)

	for page := 2; page <= pages; page++ {
		pageURL := fmt.Sprintf("%s/search?q=%s&sorttype=rel&page=%d", e.baseURL, url.QueryEscape(keyword), page)
		pdoc, err := fetchWithRetry(ctx, client, pageURL)
		if err != nil {
			continue
		}
		urls = append(urls, extractTor66Results(pdoc)...)
	}
	return urls, nil
}

// extractTor66Results finds every <b><a href> appearing after the first
// <hr>, skipping /serviceinfo/ links (§4.9.1).
func extractTor66Results(doc *goquery.Document) []string {
	var urls []string
	seenHR := false
	doc.Find("hr, b a").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "hr" {
			seenHR = true
			return
		}
		if !seenHR {
			return
		}
		href, ok := s.Attr("href")
		if !ok || strings.Contains(href, "/serviceinfo/") {
			return
		}
		urls = append(urls, href)
	})
	return urls
}

// onionLandEngine implements the OnionLand "About N result" pagination
// flow, with the real URL carried double-URL-encoded in the `l` query
// parameter (§4.9.1).
type onionLandEngine struct{ baseURL string }

func newOnionLandEngine() *onionLandEngine {
	return &onionLandEngine{baseURL: "http://3bbad7fauom4d6sgppalyqddsqbf5km5oc4...onion"}
}

func (e *onionLandEngine) Name() string { return "onionland" }

func (e *onionLandEngine) Search(ctx context.Context, client *torproxy.Client, keyword string, maxPages int) ([]string, error) {
	firstURL := fmt.Sprintf("%s/search?q=%s&page=1", e.baseURL, url.QueryEscape(keyword))
	doc, err := fetchWithRetry(ctx, client, firstURL)
	if err != nil {
		return nil, err
	}

	pages := parseAboutNResults(doc.Text())
	if pages > 100 {
		pages = 100
	}
	if pages < 1 {
		pages = 1
	}

	var urls []string
	urls = append(urls, extractOnionLandResults(doc)...)

	for page := 2; page <= pages; page++ {
		pageURL := fmt.Sprintf("%s/search?q=%s&page=%d", e.baseURL, url.QueryEscape(keyword), page)
		pdoc, err := fetchWithRetry(ctx, client, pageURL)
		if err != nil {
			continue
		}
		urls = append(urls, extractOnionLandResults(pdoc)...)
	}
	return urls, nil
}

func parseAboutNResults(text string) int {
	const marker = "About "
	idx := strings.Index(text, marker)
	if idx < 0 {
		return 1
	}
	rest := text[idx+len(marker):]
	var n int
	if _, err := fmt.Sscanf(rest, "%d", &n); err != nil {
		return 1
	}
	return (n + 9) / 10
}

func extractOnionLandResults(doc *goquery.Document) []string {
	var urls []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		encoded := u.Query().Get("l")
		if encoded == "" {
			return
		}
		once, err := url.QueryUnescape(encoded)
		if err != nil {
			return
		}
		twice, err := url.QueryUnescape(once)
		if err != nil {
			twice = once
		}
		urls = append(urls, twice)
	})
	return urls
}

// discoveryResult is the outcome of one engine's Search call, fed back to
// the orchestrator so it can publish an interim informational finding
// naming the engine and its URL count (§4.9.1).
type discoveryResult struct {
	Engine string
	URLs   []string
	Err    error
}

// discoverAll queries every configured engine concurrently (one worker
// per engine) and sends each engine's result to resultCh as it completes;
// it closes resultCh once all engines have reported (§4.9.1).
func discoverAll(ctx context.Context, client *torproxy.Client, keyword string, maxPages int, engines []discoveryEngine, resultCh chan<- discoveryResult) {
	go func() {
		defer close(resultCh)
		pending := make(chan discoveryResult, len(engines))
		for _, eng := range engines {
			go func(eng discoveryEngine) {
				urls, err := eng.Search(ctx, client, keyword, maxPages)
				pending <- discoveryResult{Engine: eng.Name(), URLs: urls, Err: err}
			}(eng)
		}
		for range engines {
			select {
			case r := <-pending:
				resultCh <- r
			case <-ctx.Done():
				return
			}
		}
	}()
}

// engineRegistry returns the three discovery engines named in config,
// filtering unknown names out rather than failing (§6 darkweb.engines).
func engineRegistry(names []string) []discoveryEngine {
	all := map[string]discoveryEngine{
		"ahmia":     newAhmiaEngine(),
		"tor66":     newTor66Engine(),
		"onionland": newOnionLandEngine(),
	}
	var out []discoveryEngine
	for _, n := range names {
		if e, ok := all[strings.ToLower(n)]; ok {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		out = []discoveryEngine{newAhmiaEngine(), newTor66Engine(), newOnionLandEngine()}
	}
	return out
}
