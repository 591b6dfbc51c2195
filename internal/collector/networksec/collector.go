package networksec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/sentrywatch/threatwatch/internal/collector"
	"github.com/sentrywatch/threatwatch/internal/common"
	"github.com/sentrywatch/threatwatch/internal/models"
)

// Pipeline implements collector.Collector for CapabilityNetworkSecurity:
// it crafts requests shaped like known tunnel/webshell traffic against
// the target, analyzes each response for tunnel indicators, then probes
// a fixed low-jitter cadence against the root page to check for
// C2-style beaconing.
type Pipeline struct {
	cfg    common.NetworkSecurityConfig
	logger arbor.ILogger
}

// NewPipeline builds the network-security collector.
func NewPipeline(cfg common.NetworkSecurityConfig, logger arbor.ILogger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger}
}

// candidatePaths are the suspicious/webshell-shaped request paths probed
// against the target, drawn directly from the detector's own indicator
// tables so a hit on the URI check always has a live round trip to pair
// it with.
func candidatePaths() []string {
	paths := make([]string, 0, len(suspiciousPaths)+len(webshellPatterns))
	for _, p := range suspiciousPaths {
		paths = append(paths, p+"?conn=deadbeef01")
	}
	for _, p := range webshellPatterns {
		paths = append(paths, "/index"+p+"id")
	}
	return paths
}

// Run implements collector.Collector.
func (p *Pipeline) Run(ctx context.Context, job *models.Job, publish collector.Publisher) ([]*models.Finding, error) {
	base := normalizeBase(job.Target)
	client := newProbeClient(p.cfg.ProbeTimeoutDuration())
	detector := NewDetector(p.cfg.BeaconMinSamples)
	connKey := job.Target

	var findings []*models.Finding
	add := func(f *models.Finding) {
		f.Evidence["job_id"] = job.ID
		publish.Finding(f)
		findings = append(findings, f)
	}

	publish.Progress(5, "probing for tunnel indicators")

	paths := candidatePaths()
	detections := map[string]*models.TunnelDetection{}
	for i, path := range paths {
		url := base + path
		res := probe(ctx, client, "GET", url, nil, map[string]string{"X-Tunnel": "1"})
		if !res.OK {
			continue
		}
		req := Request{
			ConnectionKey: connKey,
			Method:        "GET",
			URI:           path,
			Headers:       map[string]string{"X-Tunnel": "1"},
			ContentType:   res.ContentType,
			Body:          nil,
			StatusCode:    res.StatusCode,
			RespBody:      res.Body,
			ResponseTime:  res.ResponseTime,
			At:            time.Now(),
		}
		if d := detector.Analyze(req); d != nil {
			if existing, ok := detections[path]; !ok || d.RiskScore > existing.RiskScore {
				detections[path] = d
			}
		}
		publish.Progress(5+int(40*float64(i+1)/float64(len(paths))), fmt.Sprintf("probed %s", path))
	}

	for path, d := range detections {
		add(tunnelFinding(base+path, d))
	}
	publish.Progress(50, fmt.Sprintf("%d tunnel indicator hits", len(detections)))

	select {
	case <-publish.Done():
		return findings, nil
	default:
	}

	// Beaconing check: sample the root page at a fixed short cadence and
	// look for unnaturally low timing jitter (§ beaconing detector).
	samples := p.cfg.BeaconMinSamples
	if samples < 10 {
		samples = 10
	}
	for i := 0; i < samples; i++ {
		res := probe(ctx, client, "GET", base+"/", nil, nil)
		detector.Analyze(Request{
			ConnectionKey: connKey,
			Method:        "GET",
			URI:           "/",
			ContentType:   res.ContentType,
			StatusCode:    res.StatusCode,
			RespBody:      res.Body,
			ResponseTime:  res.ResponseTime,
			At:            time.Now(),
		})
		publish.Progress(50+int(45*float64(i+1)/float64(samples)), "sampling beacon cadence")
		select {
		case <-ctx.Done():
			return findings, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	if bp := detector.CheckBeaconing(connKey); bp != nil {
		add(beaconingFinding(job.Target, bp))
	}

	publish.Progress(100, "network security scan complete")
	return findings, nil
}

func normalizeBase(target string) string {
	target = strings.TrimSpace(target)
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return strings.TrimSuffix(target, "/")
	}
	return "https://" + strings.TrimSuffix(target, "/")
}

// tunnelFinding maps a TunnelDetection's 0-100 risk score onto a finding
// severity/score pair using the same bands every other collector uses.
func tunnelFinding(url string, d *models.TunnelDetection) *models.Finding {
	sev, score := severityFor(d.RiskScore)
	f := models.NewFinding(models.CapabilityNetworkSecurity, sev, score,
		fmt.Sprintf("Possible network tunnel indicator at %s", url),
		fmt.Sprintf("%d indicator(s) matched: %s", len(d.Indicators), strings.Join(d.Indicators, ", ")))
	f.Evidence["category"] = "tunnel"
	f.Evidence["connection_key"] = d.ConnectionKey
	f.Evidence["indicators"] = d.Indicators
	f.Evidence["confidence"] = d.Confidence
	f.AffectedAssets = []string{url}
	return f
}

// beaconingFinding surfaces a detected low-jitter request cadence as a
// medium-severity finding; a confirmed C2 channel needs a human to
// correlate with traffic the collector can't see (process, destination
// reputation), so this is raised, not auto-escalated to critical.
func beaconingFinding(target string, bp *models.BeaconingPattern) *models.Finding {
	f := models.NewFinding(models.CapabilityNetworkSecurity, models.SeverityMedium, 50,
		"Periodic beaconing pattern detected",
		fmt.Sprintf("Requests to %s show low-jitter ~%.1fs interval (confidence %.2f), consistent with C2-style beaconing", target, bp.IntervalSecs, bp.Confidence))
	f.Evidence["category"] = "beaconing"
	f.Evidence["connection_key"] = bp.ConnectionKey
	f.Evidence["interval_seconds"] = bp.IntervalSecs
	f.Evidence["confidence"] = bp.Confidence
	return f
}

// severityFor picks a severity band for a detection's 0-100 risk score,
// choosing a representative score within that band so Finding.Validate's
// AgreesWithScore invariant holds regardless of the detector's exact value.
func severityFor(riskScore float64) (models.Severity, float64) {
	switch {
	case riskScore >= 85:
		return models.SeverityCritical, 90
	case riskScore >= 65:
		return models.SeverityHigh, 70
	case riskScore >= 35:
		return models.SeverityMedium, 50
	default:
		return models.SeverityLow, 20
	}
}
