package infraconfig

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"strings"
	"time"
)

// newProbeClient builds the HTTP client every infra-config probe shares:
// redirects followed, TLS verification disabled, and a fixed 30s timeout,
// matching §4.7's `follow_redirects=true, verify=false, timeout=30s`.
func newProbeClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
}

// response is the subset of an HTTP response a probe needs to compare
// against a baseline or scan for markers.
type response struct {
	StatusCode int
	Headers    http.Header
	Body       string
}

// fetch issues method against rawURL with extraHeaders applied, reading
// up to 1MiB of the body.
func fetch(ctx context.Context, client *http.Client, method, rawURL string, extraHeaders map[string]string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	return &response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: string(body)}, nil
}

// joinPath concatenates base and a path/query suffix without double
// slashes, used by the probes that address commonPaths or a fixed path
// under base.
func joinPath(base, suffix string) string {
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(suffix, "/") {
		suffix = "/" + suffix
	}
	return base + suffix
}

// containsAny reports whether body contains any of markers, case-sensitively
// (filesystem markers like "root:" are case-sensitive by convention).
func containsAny(body string, markers []string) (string, bool) {
	for _, m := range markers {
		if strings.Contains(body, m) {
			return m, true
		}
	}
	return "", false
}
