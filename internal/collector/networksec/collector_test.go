package networksec

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrywatch/threatwatch/internal/common"
	"github.com/sentrywatch/threatwatch/internal/models"
)

// fakePublisher is a minimal collector.Publisher for exercising Run
// without wiring the real finding bus/observer registry.
type fakePublisher struct {
	findings []*models.Finding
	done     chan struct{}
}

func newFakePublisher() *fakePublisher { return &fakePublisher{done: make(chan struct{})} }

func (f *fakePublisher) Progress(pct int, message string)              {}
func (f *fakePublisher) Finding(finding *models.Finding)                { f.findings = append(f.findings, finding) }
func (f *fakePublisher) Log(level, msg string, data map[string]interface{}) {}
func (f *fakePublisher) Done() <-chan struct{}                          { return f.done }

func TestRunFlagsTunnelLikeResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Tunnel") != "" {
			w.Header().Set("Content-Type", "application/octet-stream")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := common.NetworkSecurityConfig{ProbeTimeout: "2s", BeaconMinSamples: 10}
	p := NewPipeline(cfg, nil)
	job := models.NewJob("job-1", models.CapabilityNetworkSecurity, srv.URL, models.PriorityNormal, nil, nil)
	pub := newFakePublisher()

	findings, err := p.Run(context.Background(), job, pub)
	require.NoError(t, err)
	assert.NotEmpty(t, findings)
	for _, f := range findings {
		assert.Equal(t, models.CapabilityNetworkSecurity, f.Capability)
		assert.NoError(t, f.Validate())
	}
}

func TestCandidatePathsCoverIndicatorTables(t *testing.T) {
	paths := candidatePaths()
	assert.Len(t, paths, len(suspiciousPaths)+len(webshellPatterns))
}

func TestNormalizeBaseDefaultsToHTTPS(t *testing.T) {
	assert.Equal(t, "https://example.com", normalizeBase("example.com"))
	assert.Equal(t, "http://example.com", normalizeBase("http://example.com/"))
}

func TestSeverityForBands(t *testing.T) {
	sev, score := severityFor(90)
	assert.Equal(t, models.SeverityCritical, sev)
	assert.True(t, sev.AgreesWithScore(score))

	sev, score = severityFor(40)
	assert.Equal(t, models.SeverityMedium, sev)
	assert.True(t, sev.AgreesWithScore(score))
}
