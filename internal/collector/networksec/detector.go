// Package networksec implements the network-tunnel and C2-beaconing
// detector collector (C-network-security): it probes a target with
// requests shaped like known HTTP-tunnel/webshell traffic and flags
// responses whose combination of headers, content type, body entropy,
// and timing matches two or more tunnel indicators, plus a separate
// beaconing check over repeated low-jitter probe timing.
//
// Grounded on the original implementation's tunnel_detector.py, adapted
// from a live packet-tap analyzer into a point-in-time HTTP probe: where
// the original inspects requests/responses it observes passing through a
// proxy, this collector crafts the requests itself (the same suspicious
// paths, webshell query strings, and tunnel headers the original
// recognizes) and analyzes what the target sends back.
package networksec

import (
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sentrywatch/threatwatch/internal/models"
)

// TunnelType classifies the kind of covert channel a detection looks like.
type TunnelType string

const (
	TunnelTypeHTTPTunnel      TunnelType = "http_tunnel"
	TunnelTypeDNSTunnel       TunnelType = "dns_tunnel"
	TunnelTypeICMPTunnel      TunnelType = "icmp_tunnel"
	TunnelTypeWebSocketCovert TunnelType = "websocket_covert"
	TunnelTypeChunkedEncoding TunnelType = "chunked_encoding"
	TunnelTypeLongPolling     TunnelType = "long_polling"
	TunnelTypeUnknown         TunnelType = "unknown"
)

// unusualContentTypes are response content-types rarely seen on ordinary
// web traffic but common in raw tunnel payloads.
var unusualContentTypes = []string{"application/octet-stream", "binary/octet-stream"}

// tunnelHeaderNames are header names specific to known HTTP-tunnel tools.
var tunnelHeaderNames = []string{"X-Tunnel", "X-Forwarded-TCP", "X-Socket-ID"}

// suspiciousPaths are URI path fragments favored by tunnel/proxy tools.
var suspiciousPaths = []string{"/proxy", "/tunnel", "/conn", "/socket", "/relay"}

// webshellPatterns are query-string shapes common to webshell command
// execution endpoints.
var webshellPatterns = []string{".php?cmd=", ".asp?exec=", ".jsp?c="}

// tunnaPatterns are regexes matching the Tunna tunneling tool's wire format.
var tunnaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`conn\?[a-f0-9]+`),
	regexp.MustCompile(`cmd=\w+&data=`),
	regexp.MustCompile(`action=(read|write|open|close)`),
	regexp.MustCompile(`X-CMD:\s*(read|write)`),
}

const (
	entropyThreshold      = 0.9
	minBodyLenForEntropy  = 100
	largePostBodyBytes    = 10000
	minimalRespBodyBytes  = 100
	rapidRequestThreshold = 50
	rapidRequestBodyBytes = 50
	longPollingThreshold  = 30 * time.Second
	minIndicatorsForHit   = 2
)

// shannonEntropy computes the normalized (0..1) Shannon entropy of data
// over byte-value frequencies.
func shannonEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	n := float64(len(data))
	var entropy float64
	for _, c := range freq {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		entropy -= p * math.Log2(p)
	}
	return entropy / 8.0
}

// Request is the synthetic HTTP exchange analyzed for tunnel indicators,
// standing in for the original's live-captured HTTPRequest record.
type Request struct {
	ConnectionKey string
	Method        string
	URI           string
	Headers       map[string]string
	ContentType   string
	Body          []byte
	StatusCode    int
	RespBody      []byte
	ResponseTime  time.Duration
	At            time.Time
}

// connState tracks per-connection request count and timing samples for
// the beaconing check, bounded the way the original caps its circular
// buffer at 100 samples.
type connState struct {
	requestCount int
	timestamps   []time.Time
}

const maxTrackedSamples = 100

// Detector holds per-connection tracking state across a scan run.
type Detector struct {
	minBeaconSamples int

	mu    sync.Mutex
	conns map[string]*connState
}

// NewDetector builds a Detector requiring at least minBeaconSamples
// timing samples before a beaconing pattern is considered.
func NewDetector(minBeaconSamples int) *Detector {
	if minBeaconSamples <= 0 {
		minBeaconSamples = 10
	}
	return &Detector{minBeaconSamples: minBeaconSamples, conns: map[string]*connState{}}
}

func (d *Detector) track(req Request) *connState {
	d.mu.Lock()
	defer d.mu.Unlock()
	cs, ok := d.conns[req.ConnectionKey]
	if !ok {
		cs = &connState{}
		d.conns[req.ConnectionKey] = cs
	}
	cs.requestCount++
	cs.timestamps = append(cs.timestamps, req.At)
	if len(cs.timestamps) > maxTrackedSamples {
		cs.timestamps = cs.timestamps[len(cs.timestamps)-maxTrackedSamples:]
	}
	return cs
}

// Analyze inspects one request/response pair for tunnel indicators,
// returning a TunnelDetection when two or more indicators fire (mirrors
// tunnel_detector.py's analyze_request threshold).
func (d *Detector) Analyze(req Request) *models.TunnelDetection {
	cs := d.track(req)

	var indicators []string
	tunnelType := TunnelTypeUnknown

	if containsFold(unusualContentTypes, req.ContentType) {
		indicators = append(indicators, "unusual_content_type:"+req.ContentType)
	}
	for _, h := range tunnelHeaderNames {
		if _, ok := req.Headers[h]; ok {
			indicators = append(indicators, "tunnel_header:"+h)
		}
	}

	for _, p := range suspiciousPaths {
		if strings.Contains(req.URI, p) {
			indicators = append(indicators, "suspicious_path:"+p)
			if tunnelType == TunnelTypeUnknown {
				tunnelType = TunnelTypeHTTPTunnel
			}
		}
	}
	for _, p := range webshellPatterns {
		if strings.Contains(req.URI, p) {
			indicators = append(indicators, "webshell_pattern:"+p)
		}
	}
	for _, re := range tunnaPatterns {
		if re.MatchString(req.URI) || re.MatchString(string(req.Body)) {
			indicators = append(indicators, "tunna_pattern:"+re.String())
		}
	}

	if len(req.Body) > minBodyLenForEntropy {
		if e := shannonEntropy(req.Body); e > entropyThreshold {
			indicators = append(indicators, "high_entropy_body")
			if tunnelType == TunnelTypeUnknown {
				tunnelType = TunnelTypeHTTPTunnel
			}
		}
	}

	if strings.EqualFold(req.Method, "POST") && len(req.Body) > largePostBodyBytes && len(req.RespBody) < minimalRespBodyBytes {
		indicators = append(indicators, "large_post_minimal_response")
	}
	if cs.requestCount > rapidRequestThreshold && len(req.Body) < rapidRequestBodyBytes {
		indicators = append(indicators, "rapid_small_request_pattern")
	}

	if req.ResponseTime > longPollingThreshold {
		indicators = append(indicators, "long_response_time")
		if tunnelType == TunnelTypeUnknown {
			tunnelType = TunnelTypeLongPolling
		}
	}

	if len(indicators) < minIndicatorsForHit {
		return nil
	}
	return createDetection(req.ConnectionKey, indicators, tunnelType)
}

// createDetection mirrors _create_detection's risk-score formula:
// 0.2 per indicator plus a 0.3 base, capped at 1.0, with a further +0.2
// (capped) when the tunnel type is one of the two highest-confidence
// kinds.
func createDetection(connKey string, indicators []string, tunnelType TunnelType) *models.TunnelDetection {
	risk := math.Min(1.0, float64(len(indicators))*0.2+0.3)
	if tunnelType == TunnelTypeHTTPTunnel || tunnelType == TunnelTypeChunkedEncoding {
		risk = math.Min(1.0, risk+0.2)
	}
	return &models.TunnelDetection{
		ConnectionKey: connKey,
		Indicators:    indicators,
		RiskScore:     risk * 100,
		Confidence:    confidenceFor(risk),
	}
}

// confidenceFor buckets a 0..1 risk score into the original's
// confirmed/high/medium/low confidence scale, expressed numerically
// since this model's Confidence field is a float rather than an enum.
func confidenceFor(risk float64) float64 {
	switch {
	case risk >= 0.8:
		return 0.9
	case risk >= 0.6:
		return 0.6
	default:
		return 0.3
	}
}

// CheckBeaconing inspects connKey's tracked timing samples for
// low-jitter periodicity, mirroring _check_beaconing: at least 10
// samples, at least 5 positive inter-arrival intervals, and a
// coefficient of variation under 0.3 with a mean interval under 300s.
func (d *Detector) CheckBeaconing(connKey string) *models.BeaconingPattern {
	d.mu.Lock()
	cs, ok := d.conns[connKey]
	var timestamps []time.Time
	if ok {
		timestamps = append(timestamps, cs.timestamps...)
	}
	d.mu.Unlock()
	if !ok || len(timestamps) < d.minBeaconSamples {
		return nil
	}

	var intervals []float64
	for i := 1; i < len(timestamps); i++ {
		delta := timestamps[i].Sub(timestamps[i-1]).Seconds()
		if delta > 0 {
			intervals = append(intervals, delta)
		}
	}
	if len(intervals) < 5 {
		return nil
	}

	mean := 0.0
	for _, v := range intervals {
		mean += v
	}
	mean /= float64(len(intervals))

	variance := 0.0
	for _, v := range intervals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(intervals))
	stddev := math.Sqrt(variance)

	if mean == 0 {
		return nil
	}
	cv := stddev / mean
	if !(cv < 0.3 && mean < 300) {
		return nil
	}

	confidence := 1.0 - cv
	return &models.BeaconingPattern{
		ConnectionKey: connKey,
		Indicators:    []string{"low_jitter_interval"},
		RiskScore:     confidence * 100,
		Confidence:    confidence,
		IntervalSecs:  mean,
	}
}

func containsFold(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
