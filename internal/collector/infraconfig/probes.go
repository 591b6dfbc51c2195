package infraconfig

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sentrywatch/threatwatch/internal/models"
)

// crlfInjectionProbe tries each of crlfPayloads against the root and
// every path in commonPaths; success is either the injected header name
// reflected verbatim in the response or a Set-Cookie echoing the
// injected cookie (§4.7).
func crlfInjectionProbe(ctx context.Context, client *http.Client, base string, add func(*models.Finding)) {
	paths := append([]string{"/"}, commonPaths...)
	for _, path := range paths {
		for _, payload := range crlfPayloads {
			resp, err := fetch(ctx, client, http.MethodGet, joinPath(base, path)+payload, nil)
			if err != nil {
				continue
			}
			if resp.Headers.Get("X-Injected") == "crlf-test" || strings.Contains(resp.Headers.Get("Set-Cookie"), "test=injected") {
				add(models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityHigh, severityScore(models.SeverityHigh),
					"CRLF header injection",
					fmt.Sprintf("Injected header/cookie reflected at %s with payload %q", path, payload)))
				return
			}
		}
	}
}

// purgeMethodProbe sends PURGE against /*; a 204 response is a medium
// finding (an unauthenticated cache-purge endpoint) (§4.7).
func purgeMethodProbe(ctx context.Context, client *http.Client, base string, add func(*models.Finding)) {
	resp, err := fetch(ctx, client, "PURGE", joinPath(base, "/*"), nil)
	if err != nil {
		return
	}
	if resp.StatusCode == http.StatusNoContent {
		add(models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityMedium, 45,
			"Unauthenticated PURGE method accepted",
			"PURGE /* returned 204, suggesting an unauthenticated cache-purge endpoint."))
	}
}

// variableLeakageProbe requests /foo$http_referer with Referer: bar; a
// body containing "foobar" confirms the nginx variable was interpolated
// into the response (§4.7).
func variableLeakageProbe(ctx context.Context, client *http.Client, base string, add func(*models.Finding)) {
	resp, err := fetch(ctx, client, http.MethodGet, joinPath(base, "/foo$http_referer"), map[string]string{"Referer": "bar"})
	if err != nil {
		return
	}
	if strings.Contains(resp.Body, "foobar") {
		add(models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityMedium, 45,
			"nginx variable interpolation leak",
			"/foo$http_referer echoed the Referer header value into the response body."))
	}
}

// pathTraversalProbe tries each of traversalPayloads; a filesystem-content
// marker in the body is a critical finding (merge_slashes off). Body
// equality to the root baseline (rather than a 404) is the weaker
// merge_slashes-off signal and is reported as a lower-severity finding.
// Returns whether a critical (marker) hit was confirmed.
func pathTraversalProbe(ctx context.Context, client *http.Client, base string, baseline *response, add func(*models.Finding)) bool {
	hit := false
	for _, payload := range traversalPayloads {
		resp, err := fetch(ctx, client, http.MethodGet, base+payload, nil)
		if err != nil {
			continue
		}
		if marker, ok := containsAny(resp.Body, traversalMarkers); ok {
			add(models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityCritical, 90,
				"Path traversal via merge-slashes bypass",
				fmt.Sprintf("Payload %q returned filesystem content (marker %q)", payload, marker)))
			hit = true
			continue
		}
		if resp.StatusCode == baseline.StatusCode && resp.Body == baseline.Body && resp.StatusCode != http.StatusNotFound {
			add(models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityMedium, 45,
				"Possible merge_slashes misconfiguration",
				fmt.Sprintf("Payload %q returned the same response as the baseline root page instead of a 404", payload)))
		}
	}
	return hit
}

// hopByHopProbe fuzzes each of hopByHopHeaders with each of spoofedIPs
// against the root page, flagging any response whose status or body
// length diverges significantly from the unauthenticated baseline
// (§4.7).
func hopByHopProbe(ctx context.Context, client *http.Client, base string, add func(*models.Finding)) {
	baseline, err := fetch(ctx, client, http.MethodGet, base, nil)
	if err != nil {
		return
	}
	seen := map[string]bool{}
	for _, header := range hopByHopHeaders {
		for _, ip := range spoofedIPs {
			resp, err := fetch(ctx, client, http.MethodGet, base, map[string]string{header: ip})
			if err != nil {
				continue
			}
			lengthDelta := abs(len(resp.Body) - len(baseline.Body))
			significant := resp.StatusCode != baseline.StatusCode || lengthDelta > baseline.lengthThreshold()
			if significant && !seen[header] {
				seen[header] = true
				add(models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityMedium, 45,
					fmt.Sprintf("Hop-by-hop header %s affects response", header),
					fmt.Sprintf("Spoofing %s: %s changed status %d->%d or body length by %d bytes", header, ip, baseline.StatusCode, resp.StatusCode, lengthDelta)))
			}
		}
	}
}

func (r *response) lengthThreshold() int {
	t := len(r.Body) / 10
	if t < 64 {
		return 64
	}
	return t
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// xAccelRedirectProbe locates any path in commonPaths returning 401/403,
// then retries an unauthenticated URL with X-Accel-Redirect pointing at
// that path; a status change confirms the internal-redirect header isn't
// stripped from client input (§4.7).
func xAccelRedirectProbe(ctx context.Context, client *http.Client, base string, add func(*models.Finding)) {
	var protectedPath string
	for _, path := range commonPaths {
		resp, err := fetch(ctx, client, http.MethodGet, joinPath(base, path), nil)
		if err != nil {
			continue
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			protectedPath = path
			break
		}
	}
	if protectedPath == "" {
		return
	}

	before, err := fetch(ctx, client, http.MethodGet, joinPath(base, "/"), nil)
	if err != nil {
		return
	}
	after, err := fetch(ctx, client, http.MethodGet, joinPath(base, "/"), map[string]string{"X-Accel-Redirect": protectedPath})
	if err != nil {
		return
	}
	if after.StatusCode != before.StatusCode {
		add(models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityHigh, 75,
			"X-Accel-Redirect client bypass",
			fmt.Sprintf("Setting X-Accel-Redirect: %s on an unauthenticated request changed status %d->%d", protectedPath, before.StatusCode, after.StatusCode)))
	}
}

// phpDetectionProbe is informational: it flags any phpMarkers fingerprint
// in the root page's headers or body (§4.7).
func phpDetectionProbe(root *response, add func(*models.Finding)) {
	if marker, ok := containsAny(root.Headers.Get("X-Powered-By")+"\n"+root.Body, phpMarkers); ok {
		add(models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityInfo, 5,
			"PHP backend detected",
			fmt.Sprintf("Fingerprint %q found in response", marker)))
	}
}

// rangeOverflowProbe sends a crafted Range header known to trigger an
// integer overflow in the DAV module (CVE-2017-7529); a 500, or a 416
// that carries a Content-Length header, is a finding.
func rangeOverflowProbe(ctx context.Context, client *http.Client, base string, add func(*models.Finding)) {
	resp, err := fetch(ctx, client, http.MethodGet, base, map[string]string{
		"Range": "bytes=-9223372036854775808",
	})
	if err != nil {
		return
	}
	if resp.StatusCode == http.StatusInternalServerError || resp.StatusCode == http.StatusRequestedRangeNotSatisfiable && resp.Headers.Get("Content-Length") != "" {
		add(models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityHigh, 75,
			"Possible CVE-2017-7529 range-overflow",
			fmt.Sprintf("Crafted negative Range header produced status %d", resp.StatusCode)))
	}
}
