// Package infraconfig implements the infra-config audit collector (C7):
// a root-page fetch followed by version/CVE comparison and, under config
// switches, CRLF injection, PURGE-method, variable-leakage, path-
// traversal, hop-by-hop header fuzzing, X-Accel-Redirect bypass, PHP
// detection and CVE-2017-7529 probes, then a security-header-weighted
// score (§4.7).
package infraconfig

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/sentrywatch/threatwatch/internal/collector"
	"github.com/sentrywatch/threatwatch/internal/common"
	"github.com/sentrywatch/threatwatch/internal/models"
)

// Pipeline implements collector.Collector for CapabilityInfrastructureTest.
type Pipeline struct {
	cfg    common.InfraConfigConfig
	logger arbor.ILogger
}

// NewPipeline builds the infra-config collector.
func NewPipeline(cfg common.InfraConfigConfig, logger arbor.ILogger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger}
}

// Run implements collector.Collector (§4.7).
func (p *Pipeline) Run(ctx context.Context, job *models.Job, publish collector.Publisher) ([]*models.Finding, error) {
	base := normalizeBase(job.Target)
	client := newProbeClient()

	var findings []*models.Finding
	add := func(f *models.Finding) {
		f.Evidence["job_id"] = job.ID
		publish.Finding(f)
		findings = append(findings, f)
	}

	publish.Progress(5, "fetching root page")
	root, err := fetch(ctx, client, http.MethodGet, base, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch root page: %w", err)
	}

	p.checkServerVersion(ctx, client, root, base, add)
	publish.Progress(15, "server identity check complete")

	select {
	case <-publish.Done():
		return findings, nil
	default:
	}

	if job.GetConfigBool("check_crlf", true) {
		crlfInjectionProbe(ctx, client, base, add)
	}
	publish.Progress(30, "CRLF injection sweep complete")

	if job.GetConfigBool("check_purge", true) {
		purgeMethodProbe(ctx, client, base, add)
	}
	publish.Progress(40, "PURGE method probe complete")

	if job.GetConfigBool("check_variable_leakage", true) {
		variableLeakageProbe(ctx, client, base, add)
	}
	publish.Progress(50, "variable leakage probe complete")

	var traversalHit bool
	if job.GetConfigBool("check_traversal", true) {
		traversalHit = pathTraversalProbe(ctx, client, base, root, add)
	}
	publish.Progress(62, "path traversal probe complete")

	if job.GetConfigBool("check_hop_by_hop", true) {
		hopByHopProbe(ctx, client, base, add)
	}
	publish.Progress(74, "hop-by-hop header fuzz complete")

	if job.GetConfigBool("check_xaccel", true) {
		xAccelRedirectProbe(ctx, client, base, add)
	}
	publish.Progress(84, "X-Accel-Redirect bypass probe complete")

	phpDetectionProbe(root, add)

	if job.GetConfigBool("check_range_overflow", true) {
		rangeOverflowProbe(ctx, client, base, add)
	}
	publish.Progress(94, "CVE-2017-7529 probe complete")

	score := computeScore(root.Headers, findings)
	job.SetMetadata("infra_config_score", score)
	sev, riskScore := scoreSeverity(score)
	add(models.NewFinding(models.CapabilityInfrastructureTest, sev, riskScore,
		fmt.Sprintf("Infra-config security score: %.0f/100", score),
		fmt.Sprintf("%d findings and missing security headers reduced the baseline score for %s", len(findings), base)))

	if traversalHit {
		p.logger.Warn().Str("target", base).Msg("confirmed filesystem path traversal")
	}

	publish.Progress(100, "infra-config audit complete")
	return findings, nil
}

// normalizeBase ensures target has a scheme, defaulting to https.
func normalizeBase(target string) string {
	target = strings.TrimSpace(target)
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return strings.TrimSuffix(target, "/")
	}
	return "https://" + strings.TrimSuffix(target, "/")
}

func severityScore(sev models.Severity) float64 {
	switch sev {
	case models.SeverityCritical:
		return 90
	case models.SeverityHigh:
		return 70
	case models.SeverityMedium:
		return 50
	case models.SeverityLow:
		return 20
	default:
		return 5
	}
}

// checkServerVersion extracts the nginx version from the Server header,
// compares it to the cached latest-known version, and optionally queries
// NVD for known CVEs against it (§4.7).
func (p *Pipeline) checkServerVersion(ctx context.Context, client *http.Client, root *response, target string, add func(*models.Finding)) {
	version, ok := nginxServerIdentity(root.Headers)
	if !ok {
		add(models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityInfo, 5, "Server identity not disclosed", "No nginx version string found in the Server header."))
		return
	}

	add(models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityInfo, 5, "Server identity disclosed", fmt.Sprintf("Server header advertises nginx %s", version)))

	latest, err := fetchLatestNginxVersion(ctx, client)
	if err == nil && latest != "" && versionOlder(version, latest) {
		add(models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityMedium, 45,
			"Outdated nginx version",
			fmt.Sprintf("Detected nginx %s; latest known mainline is %s", version, latest)))
	}

	if !p.cfg.NVDEnabled {
		return
	}
	count, err := nvdCVECount(ctx, client, p.cfg.NVDAPIKey, version)
	if err != nil {
		p.logger.Warn().Err(err).Msg("NVD lookup failed")
		return
	}
	if count > 0 {
		add(models.NewFinding(models.CapabilityInfrastructureTest, models.SeverityHigh, 75,
			"Known CVEs for detected nginx version",
			fmt.Sprintf("NVD lists %d CVE(s) affecting nginx %s", count, version)))
	}
}

// computeScore starts at 100, subtracts each missing security header's
// weight, then subtracts per-finding-severity weights (critical=30,
// high=20, medium=10, low=5), floored at 0 (§4.7).
func computeScore(headers http.Header, findings []*models.Finding) float64 {
	score := 100.0
	for _, h := range securityHeaders {
		if headers.Get(h.Name) == "" {
			score -= h.Weight
		}
	}
	for _, f := range findings {
		switch f.Severity {
		case models.SeverityCritical:
			score -= 30
		case models.SeverityHigh:
			score -= 20
		case models.SeverityMedium:
			score -= 10
		case models.SeverityLow:
			score -= 5
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

func scoreSeverity(score float64) (models.Severity, float64) {
	switch {
	case score < 35:
		return models.SeverityCritical, 90
	case score < 55:
		return models.SeverityHigh, 70
	case score < 75:
		return models.SeverityMedium, 50
	default:
		return models.SeverityInfo, 5
	}
}
