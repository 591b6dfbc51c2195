// Package investigation implements the headless-capture investigation
// collector (C8): page capture → domain tree → classification → risk
// scoring, with optional perceptual-hash, dark-web cross-reference, and
// reputation checks (§4.8).
package investigation

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/sentrywatch/threatwatch/internal/collector"
	"github.com/sentrywatch/threatwatch/internal/common"
	"github.com/sentrywatch/threatwatch/internal/models"
)

// Pipeline implements collector.Collector for CapabilityInvestigation.
type Pipeline struct {
	cfg          common.InvestigationConfig
	logger       arbor.ILogger
	crossRef     DarkWebCrossReferencer
	referenceSet []uint64
}

// NewPipeline builds the investigation collector. crossRef may be nil, in
// which case the dark-web cross-reference step always reports no match.
// referenceHashes is an optional set of known-good perceptual hashes to
// compare a fresh capture's screenshot against.
func NewPipeline(cfg common.InvestigationConfig, logger arbor.ILogger, crossRef DarkWebCrossReferencer, referenceHashes []uint64) *Pipeline {
	if crossRef == nil {
		crossRef = noopCrossReferencer{}
	}
	return &Pipeline{cfg: cfg, logger: logger, crossRef: crossRef, referenceSet: referenceHashes}
}

// Run implements collector.Collector (§4.8).
func (p *Pipeline) Run(ctx context.Context, job *models.Job, publish collector.Publisher) ([]*models.Finding, error) {
	target := normalizeTarget(job.Target)

	var findings []*models.Finding
	add := func(f *models.Finding) {
		f.Evidence["job_id"] = job.ID
		publish.Finding(f)
		findings = append(findings, f)
	}

	publish.Progress(5, "launching headless capture")
	wantScreenshot := p.cfg.PerceptualHash && len(p.referenceSet) > 0
	page, err := capturePage(ctx, target, p.cfg.NavigationTimeoutDuration(), wantScreenshot)
	if err != nil {
		add(models.NewFinding(models.CapabilityInvestigation, models.SeverityInfo, 5, "Headless capture failed", err.Error()))
		publish.Progress(100, "capture failed")
		return findings, nil
	}
	publish.Progress(35, fmt.Sprintf("captured %d network requests", len(page.Entries)))

	rootHost := hostOf(page.FinalURL)
	if rootHost == "" {
		rootHost = hostOf(target)
	}
	job.SetMetadata("final_url", page.FinalURL)
	job.SetMetadata("request_count", len(page.Entries))

	nodes := buildDomainTree(rootHost, page.Entries)
	summary := summarize(nodes)
	job.SetMetadata("total_domains", summary.TotalDomains)
	job.SetMetadata("tracker_count", summary.TrackerCount)
	job.SetMetadata("third_party_count", summary.ThirdPartyCount)
	publish.Progress(55, fmt.Sprintf("%d domains, %d trackers", summary.TotalDomains, summary.TrackerCount))

	for host, node := range nodes {
		if host == rootHost || (!node.IsTracker && !node.IsCDN) {
			continue
		}
		sev := models.SeverityLow
		if node.IsTracker {
			sev = models.SeverityMedium
		}
		kind := "third-party"
		if node.IsTracker {
			kind = "tracker"
		} else if node.IsCDN {
			kind = "CDN"
		}
		add(models.NewFinding(models.CapabilityInvestigation, sev, severityScore(sev),
			fmt.Sprintf("%s resource host: %s", kind, host),
			fmt.Sprintf("%s issued %d byte(s) of requests, parent %s", host, node.RequestSize, orDashInvestigation(node.Parent))))
	}

	score := riskScore(summary)
	riskSev := scoreSeverity(score)
	add(models.NewFinding(models.CapabilityInvestigation, riskSev, severityScore(riskSev),
		fmt.Sprintf("Page privacy risk score: %.0f/100", score),
		fmt.Sprintf("%d trackers, %d third-party domains, %d redirects across %d domains", summary.TrackerCount, summary.ThirdPartyCount, summary.RedirectCount, summary.TotalDomains)))
	publish.Progress(70, "domain tree scored")

	if wantScreenshot && len(page.Screenshot) > 0 {
		if hash, err := averageHash(page.Screenshot); err == nil {
			if best, matched := bestMatch(hash, p.referenceSet); matched {
				add(models.NewFinding(models.CapabilityInvestigation, models.SeverityMedium, severityScore(models.SeverityMedium),
					"Visual match against reference screenshot set",
					fmt.Sprintf("%.0f%% perceptual-hash similarity to a known reference capture", best*100)))
			}
		}
	}
	publish.Progress(82, "visual comparison complete")

	if p.cfg.DarkWebCrossRef {
		if mentioned, err := p.crossRef.HasMention(rootHost); err == nil && mentioned {
			add(models.NewFinding(models.CapabilityInvestigation, models.SeverityCritical, severityScore(models.SeverityCritical),
				"Target domain referenced in dark-web intelligence",
				fmt.Sprintf("%s appears in a prior dark-web crawl finding", rootHost)))
		}
	}
	publish.Progress(90, "dark-web cross-reference complete")

	if p.cfg.ReputationCheck {
		flags := checkReputation(rootHost)
		if flags.SuspiciousTLD {
			add(models.NewFinding(models.CapabilityInvestigation, models.SeverityLow, severityScore(models.SeverityLow),
				"Domain uses a suspicious top-level domain",
				fmt.Sprintf("%s's TLD is disproportionately associated with abuse", rootHost)))
		}
		if flags.TypoSquat {
			add(models.NewFinding(models.CapabilityInvestigation, models.SeverityHigh, severityScore(models.SeverityHigh),
				"Possible brand typosquat",
				fmt.Sprintf("%s is edit-distance %d from brand %q", rootHost, flags.Distance, flags.TypoSquatBrand)))
		}
	}

	publish.Progress(100, "investigation complete")
	return findings, nil
}

func normalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = "https://" + target
	}
	return target
}

func orDashInvestigation(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// severityScore picks a representative risk_score within sev's band so
// Finding.Validate's AgreesWithScore invariant always holds.
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

// scoreSeverity maps the 0-100 risk score (higher = safer) onto a
// severity band, inverted since a low privacy score is the bad outcome.
func scoreSeverity(score float64) models.Severity {
	switch {
	case score < 35:
		return models.SeverityHigh
	case score < 65:
		return models.SeverityMedium
	default:
		return models.SeverityInfo
	}
}
