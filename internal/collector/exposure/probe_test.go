package exposure

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProberSeenDedupes(t *testing.T) {
	p := newProber(time.Second)
	assert.False(t, p.seen("https://example.com/a"))
	assert.True(t, p.seen("https://example.com/a"))
	assert.False(t, p.seen("https://example.com/b"))
}

func TestProberGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	p := newProber(2 * time.Second)
	res := p.get(context.Background(), srv.URL)
	require.True(t, res.OK)
	assert.Equal(t, http.StatusTeapot, res.StatusCode)
	assert.Equal(t, "hello", res.Body)
}

func TestProberGetFoldsTransportErrors(t *testing.T) {
	p := newProber(100 * time.Millisecond)
	res := p.get(context.Background(), "http://127.0.0.1:1")
	assert.False(t, res.OK)
}

func TestBodyContainsAny(t *testing.T) {
	assert.True(t, bodyContainsAny("<title>Admin Login</title>", []string{"login"}))
	assert.False(t, bodyContainsAny("<title>Home</title>", []string{"login", "sign in"}))
}

func TestExtensionSeverity(t *testing.T) {
	for ext, want := range sensitiveExtensions {
		assert.Equal(t, want, extensionSeverity("/backup"+ext))
	}
	assert.Equal(t, "high", string(extensionSeverity("/unknown.xyz")))
}

func TestSweepVisitsEveryURLAndDedupesViaSeen(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newProber(time.Second)
	col := newPageCollector("test-agent", 4, time.Second)

	targets := map[string]string{}
	for _, path := range []string{"/one", "/two", "/three"} {
		u := srv.URL + path
		if !p.seen(u) {
			targets[u] = path
		}
	}

	var results []string
	sweep(col, targets, func(res probeResult, path string) {
		results = append(results, path)
	})

	require.Len(t, results, 3)
	assert.ElementsMatch(t, []string{"/one", "/two", "/three"}, results)
}
