package networksec

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"strings"
	"time"
)

// newProbeClient builds the HTTP client every network-security probe
// shares, following the same follow-redirects/skip-verify/timeout shape
// as the infra-config collector's probe client but on the configured
// per-job probe timeout rather than a fixed 30s.
func newProbeClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

// probeOutcome is one request/response round trip against the target,
// timed for the long-polling and beaconing checks.
type probeOutcome struct {
	StatusCode   int
	ContentType  string
	Headers      http.Header
	Body         []byte
	ResponseTime time.Duration
	OK           bool
}

func probe(ctx context.Context, client *http.Client, method, rawURL string, body []byte, extraHeaders map[string]string) probeOutcome {
	var reader io.Reader
	if len(body) > 0 {
		reader = strings.NewReader(string(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return probeOutcome{}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ThreatWatch/1.0)")
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return probeOutcome{ResponseTime: elapsed}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	return probeOutcome{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		Headers:      resp.Header,
		Body:         respBody,
		ResponseTime: elapsed,
		OK:           true,
	}
}
