package networksec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShannonEntropyUniformBytesIsHigh(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	e := shannonEntropy(data)
	assert.Greater(t, e, 0.99)
}

func TestShannonEntropyRepeatedByteIsZero(t *testing.T) {
	data := make([]byte, 200)
	for i := range data {
		data[i] = 'a'
	}
	assert.Equal(t, 0.0, shannonEntropy(data))
}

func TestAnalyzeRequiresTwoIndicators(t *testing.T) {
	d := NewDetector(10)
	// a single hit (suspicious path) alone shouldn't cross the threshold.
	got := d.Analyze(Request{ConnectionKey: "c1", Method: "GET", URI: "/proxy?conn=deadbeef01", At: time.Now()})
	assert.Nil(t, got)
}

func TestAnalyzeFlagsCombinedIndicators(t *testing.T) {
	d := NewDetector(10)
	got := d.Analyze(Request{
		ConnectionKey: "c1",
		Method:        "GET",
		URI:           "/proxy?conn=deadbeef01",
		Headers:       map[string]string{"X-Tunnel": "1"},
		At:            time.Now(),
	})
	require.NotNil(t, got)
	assert.GreaterOrEqual(t, len(got.Indicators), 2)
	assert.Greater(t, got.RiskScore, 0.0)
	assert.LessOrEqual(t, got.RiskScore, 100.0)
}

func TestAnalyzeHighEntropyBodyIsIndicator(t *testing.T) {
	d := NewDetector(10)
	body := make([]byte, 500)
	for i := range body {
		body[i] = byte(i % 256)
	}
	got := d.Analyze(Request{
		ConnectionKey: "c2",
		Method:        "POST",
		URI:           "/upload",
		ContentType:   "application/octet-stream",
		Body:          body,
		At:            time.Now(),
	})
	require.NotNil(t, got)
}

func TestCreateDetectionRiskScoreFormula(t *testing.T) {
	d := createDetection("c1", []string{"a", "b"}, TunnelTypeUnknown)
	// 2 indicators: 0.3 + 2*0.2 = 0.7 -> *100 = 70
	assert.InDelta(t, 70.0, d.RiskScore, 0.001)

	d2 := createDetection("c1", []string{"a", "b"}, TunnelTypeHTTPTunnel)
	// same base plus the +0.2 http-tunnel bump, capped at 1.0
	assert.InDelta(t, 90.0, d2.RiskScore, 0.001)

	d3 := createDetection("c1", []string{"a", "b", "c", "d", "e"}, TunnelTypeHTTPTunnel)
	// 0.3 + 5*0.2 = 1.3 capped to 1.0, plus bump capped to 1.0 -> 100
	assert.InDelta(t, 100.0, d3.RiskScore, 0.001)
}

func TestCheckBeaconingRequiresMinimumSamples(t *testing.T) {
	d := NewDetector(10)
	for i := 0; i < 5; i++ {
		d.track(Request{ConnectionKey: "c1", At: time.Now().Add(time.Duration(i) * time.Second)})
	}
	assert.Nil(t, d.CheckBeaconing("c1"))
}

func TestCheckBeaconingDetectsLowJitterInterval(t *testing.T) {
	d := NewDetector(10)
	base := time.Now()
	for i := 0; i < 12; i++ {
		d.track(Request{ConnectionKey: "c1", At: base.Add(time.Duration(i) * 10 * time.Second)})
	}
	bp := d.CheckBeaconing("c1")
	require.NotNil(t, bp)
	assert.InDelta(t, 10.0, bp.IntervalSecs, 0.01)
	assert.Greater(t, bp.Confidence, 0.9)
}

func TestCheckBeaconingRejectsHighJitter(t *testing.T) {
	d := NewDetector(10)
	base := time.Now()
	intervals := []int{1, 40, 2, 55, 3, 60, 1, 45, 5, 30, 2, 50}
	cursor := 0
	for i := 0; i < len(intervals); i++ {
		cursor += intervals[i]
		d.track(Request{ConnectionKey: "c1", At: base.Add(time.Duration(cursor) * time.Second)})
	}
	assert.Nil(t, d.CheckBeaconing("c1"))
}
