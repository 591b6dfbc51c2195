package infraconfig

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrywatch/threatwatch/internal/models"
)

func TestWordlistShapes(t *testing.T) {
	assert.Len(t, crlfPayloads, 5)
	assert.Len(t, hopByHopHeaders, 10)
	assert.Len(t, spoofedIPs, 4)
	assert.Len(t, securityHeaders, 7)
	assert.GreaterOrEqual(t, len(commonPaths), 10)
}

func TestNginxServerIdentity(t *testing.T) {
	h := http.Header{}
	h.Set("Server", "nginx/1.18.0 (Ubuntu)")
	version, ok := nginxServerIdentity(h)
	require.True(t, ok)
	assert.Equal(t, "1.18.0", version)

	h2 := http.Header{}
	h2.Set("Server", "Apache/2.4.41")
	_, ok = nginxServerIdentity(h2)
	assert.False(t, ok)
}

func TestVersionOlder(t *testing.T) {
	assert.True(t, versionOlder("1.16.0", "1.18.0"))
	assert.False(t, versionOlder("1.20.0", "1.18.0"))
	assert.False(t, versionOlder("1.18.0", "1.18.0"))
}

func TestComputeScoreAllHeadersPresentIs100(t *testing.T) {
	headers := http.Header{}
	for _, h := range securityHeaders {
		headers.Set(h.Name, "present")
	}
	assert.Equal(t, 100.0, computeScore(headers, nil))
}

func TestComputeScoreMissingHeadersAndFindingsReduceScore(t *testing.T) {
	empty := http.Header{}
	findings := []*models.Finding{
		models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityCritical, 90, "t", "d"),
		models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityCritical, 90, "t", "d"),
	}
	score := computeScore(empty, findings)
	assert.Less(t, score, 100.0)
	assert.GreaterOrEqual(t, score, 0.0)
}

func TestComputeScoreFloorsAtZero(t *testing.T) {
	empty := http.Header{}
	var findings []*models.Finding
	for i := 0; i < 10; i++ {
		findings = append(findings, models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityCritical, 90, "t", "d"))
	}
	score := computeScore(empty, findings)
	assert.Equal(t, 0.0, score)
}

func TestPurgeMethodProbeFlagsNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "PURGE" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newProbeClient()
	var got []*models.Finding
	purgeMethodProbe(context.Background(), client, srv.URL, func(f *models.Finding) { got = append(got, f) })
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Title, "PURGE")
}

func TestVariableLeakageProbeDetectsEcho(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("foo" + r.Header.Get("Referer")))
	}))
	defer srv.Close()

	client := newProbeClient()
	var got []*models.Finding
	variableLeakageProbe(context.Background(), client, srv.URL, func(f *models.Finding) { got = append(got, f) })
	require.Len(t, got, 1)
}

func TestPathTraversalProbeDetectsFilesystemMarker(t *testing.T) {
	// every traversal payload is routed to the marker response here, since
	// the test only needs to confirm pathTraversalProbe recognizes a
	// filesystem-content marker when one comes back.
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" || r.URL.Path != "/" {
			w.Write([]byte("root:x:0:0:root:/root:/bin/bash"))
			return
		}
		w.Write([]byte("baseline page"))
	})
	srv2 := httptest.NewServer(mux)
	defer srv2.Close()

	client := newProbeClient()
	baseline, err := fetch(context.Background(), client, http.MethodGet, srv2.URL, nil)
	require.NoError(t, err)

	var got []*models.Finding
	hit := pathTraversalProbe(context.Background(), client, srv2.URL, baseline, func(f *models.Finding) { got = append(got, f) })
	assert.True(t, hit)
	require.NotEmpty(t, got)
	assert.Equal(t, models.SeverityCritical, got[0].Severity)
}
