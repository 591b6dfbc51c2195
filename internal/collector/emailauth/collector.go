// Package emailauth implements the email-authentication audit
// collector (C6): concurrent SPF/DMARC/MX/DKIM lookups, optional
// BIMI/MTA-STS/DANE/PTR/DNSSEC/mail-subdomain checks, compliance
// scoring, and a DMARC bypass-scenario analyzer (§4.6).
package emailauth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/sentrywatch/threatwatch/internal/collector"
	"github.com/sentrywatch/threatwatch/internal/common"
	"github.com/sentrywatch/threatwatch/internal/models"
)

// Pipeline implements collector.Collector for CapabilityEmailSecurity.
type Pipeline struct {
	cfg    common.EmailAuthConfig
	logger arbor.ILogger
}

// NewPipeline builds the email-auth collector.
func NewPipeline(cfg common.EmailAuthConfig, logger arbor.ILogger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger}
}

// Run implements collector.Collector (§4.6).
func (p *Pipeline) Run(ctx context.Context, job *models.Job, publish collector.Publisher) ([]*models.Finding, error) {
	target := strings.TrimSuffix(strings.TrimSpace(job.Target), ".")
	resolver := net.DefaultResolver

	var findings []*models.Finding
	var mu sync.Mutex
	add := func(f *models.Finding) {
		f.Evidence["job_id"] = job.ID
		publish.Finding(f)
		mu.Lock()
		findings = append(findings, f)
		mu.Unlock()
	}

	publish.Progress(5, "starting email-auth audit")

	var spfRaw, dmarcRaw string
	var mxHosts []*net.MX
	var dkimSel map[string]string
	var spfTXTCount int

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		records, _ := resolver.LookupTXT(ctx, target)
		spfTXTCount = countPrefixed(records, "v=spf1")
		spfRaw, _ = lookupSPF(ctx, resolver, target)
	}()
	go func() {
		defer wg.Done()
		dmarcRaw, _ = lookupDMARC(ctx, resolver, target)
	}()
	go func() {
		defer wg.Done()
		mxHosts, _ = lookupMX(ctx, resolver, target)
	}()
	go func() {
		defer wg.Done()
		dkimSel = lookupDKIM(ctx, resolver, target)
	}()
	wg.Wait()
	publish.Progress(35, "core DNS queries complete")

	spf := classifySPF(spfRaw, spfTXTCount)
	dmarc := classifyDMARC(dmarcRaw)
	dkim := classifyDKIM(dkimSel)
	mx := classifyMX(len(mxHosts))

	for _, r := range []record{spf, dmarc, dkim, mx} {
		emitRecordFindings(r, add)
	}

	// Optional checks, gated by per-job config (§4.6).
	if job.GetConfigBool("check_bimi", false) {
		bimiRaw, _ := lookupBIMI(ctx, resolver, target)
		if bimiRaw == "" {
			add(models.NewFinding(models.CapabilityEmailSecurity, models.SeverityLow, 20, "No BIMI record", "No BIMI TXT record found; brand logo won't render in supporting mail clients."))
		} else {
			add(models.NewFinding(models.CapabilityEmailSecurity, models.SeverityInfo, 5, "BIMI record present", bimiRaw))
		}
	}
	if job.GetConfigBool("check_mta_sts", false) {
		p.checkMTASTS(ctx, target, resolver, add)
	}
	if job.GetConfigBool("check_dane", false) {
		p.checkDANE(ctx, mxHosts, add)
	}
	if job.GetConfigBool("check_ptr", false) {
		p.checkPTR(ctx, mxHosts, resolver, add)
	}
	if job.GetConfigBool("check_dnssec", false) {
		p.checkDNSSEC(ctx, target, add)
	}
	if job.GetConfigBool("check_mail_subdomains", false) {
		p.checkMailSubdomains(ctx, target, resolver, add)
	}
	publish.Progress(70, "optional checks complete")

	scores := computeComplianceScores(spf, dkim, dmarc)
	job.SetMetadata("compliance_scores", map[string]float64{
		"spf_rfc7208":   scores.SPF,
		"dkim_rfc6376":  scores.DKIM,
		"dmarc_rfc7489": scores.DMARC,
		"m3aawg":        scores.M3AAWG,
	})

	problems := len(spf.Issues) + len(dmarc.Issues) + len(dkim.Issues) + len(mx.Issues)
	level := riskLevel(problems)
	sev, riskScore := riskLevelToSeverity(level)
	add(models.NewFinding(models.CapabilityEmailSecurity, sev, riskScore, fmt.Sprintf("Email spoofing risk: %s", level), fmt.Sprintf("%d problematic factors across SPF/DKIM/DMARC/MX for %s; security score %.0f/100", problems, target, securityScore(scores))))

	if job.GetConfigBool("bypass_analyzer", false) {
		for _, scenario := range runBypassAnalyzer(spf, dmarc, len(dkimSel)) {
			desc := scenario.Description
			if ok, err := verifyMailboxDelivery(ctx, p.cfg, scenario.Name); err == nil && ok {
				desc += " (confirmed: a probe message using this scenario reached the monitored mailbox)"
			}
			add(models.NewFinding(models.CapabilityEmailSecurity, scenario.Severity, severityScore(scenario.Severity), fmt.Sprintf("DMARC bypass scenario: %s", scenario.Name), desc))
		}
	}

	publish.Progress(100, "email-auth audit complete")
	return findings, nil
}

func countPrefixed(records []string, prefix string) int {
	n := 0
	for _, r := range records {
		if strings.HasPrefix(strings.ToLower(r), prefix) {
			n++
		}
	}
	return n
}

// emitRecordFindings turns one mechanism's classified issues into
// findings, plus a positive info finding when the mechanism is
// correctly configured with no issues (§4.6). A missing SPF record gets
// its own pinned title/severity/score (§8 scenario 2: "No SPF Record
// Found", high, 75.0) rather than the generic "<mechanism> issue: ..."
// phrasing used for every other issue.
func emitRecordFindings(r record, add func(*models.Finding)) {
	if len(r.Issues) == 0 {
		if r.Exists {
			add(models.NewFinding(models.CapabilityEmailSecurity, models.SeverityInfo, 5, fmt.Sprintf("%s correctly configured", r.Name), fmt.Sprintf("%s policy: %s", r.Name, orDash(r.Policy))))
		}
		return
	}
	for _, issue := range r.Issues {
		if r.Name == "SPF" && !r.Exists {
			add(models.NewFinding(models.CapabilityEmailSecurity, models.SeverityHigh, 75.0, "No SPF Record Found", issue))
			continue
		}
		sev, score := issueToSeverity(r.Name, issue)
		add(models.NewFinding(models.CapabilityEmailSecurity, sev, score, fmt.Sprintf("%s issue: %s", r.Name, issue), issue))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// issueToSeverity assigns a severity to an issue string; missing
// records and permissive policies are the most actionable.
func issueToSeverity(mechanism, issue string) (models.Severity, float64) {
	lower := strings.ToLower(issue)
	switch {
	case strings.Contains(lower, "no "+strings.ToLower(mechanism)):
		return models.SeverityHigh, 70
	case strings.Contains(lower, "+all") || strings.Contains(lower, "monitor-only"):
		return models.SeverityHigh, 75
	case strings.Contains(lower, "quarantine") || strings.Contains(lower, "multiple"):
		return models.SeverityMedium, 45
	default:
		return models.SeverityLow, 20
	}
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

func riskLevelToSeverity(level string) (models.Severity, float64) {
	switch level {
	case "critical":
		return models.SeverityCritical, 90
	case "high":
		return models.SeverityHigh, 70
	case "medium":
		return models.SeverityMedium, 45
	default:
		return models.SeverityLow, 20
	}
}

func (p *Pipeline) checkMTASTS(ctx context.Context, target string, resolver *net.Resolver, add func(*models.Finding)) {
	txt, _ := lookupMTASTS(ctx, resolver, target)
	if txt == "" {
		add(models.NewFinding(models.CapabilityEmailSecurity, models.SeverityLow, 20, "No MTA-STS record", "No _mta-sts TXT record found; inbound mail transport isn't pinned to TLS."))
		return
	}
	policyURL := fmt.Sprintf("https://mta-sts.%s/.well-known/mta-sts.txt", target)
	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, policyURL, nil)
	if err != nil {
		return
	}
	resp, err := client.Do(req)
	if err != nil || resp.StatusCode != 200 {
		add(models.NewFinding(models.CapabilityEmailSecurity, models.SeverityMedium, 45, "MTA-STS policy unreachable", fmt.Sprintf("%s did not return a usable policy document", policyURL)))
		return
	}
	resp.Body.Close()
	add(models.NewFinding(models.CapabilityEmailSecurity, models.SeverityInfo, 5, "MTA-STS configured", txt))
}

func (p *Pipeline) checkDANE(ctx context.Context, mxHosts []*net.MX, add func(*models.Finding)) {
	for _, mx := range mxHosts {
		host := strings.TrimSuffix(mx.Host, ".")
		ok, err := lookupTLSA(ctx, host)
		if err != nil {
			continue
		}
		if !ok {
			add(models.NewFinding(models.CapabilityEmailSecurity, models.SeverityLow, 20, fmt.Sprintf("No DANE TLSA record for %s", host), "MX host has no TLSA record pinning its TLS certificate."))
		} else {
			add(models.NewFinding(models.CapabilityEmailSecurity, models.SeverityInfo, 5, fmt.Sprintf("DANE configured for %s", host), "TLSA record present."))
		}
	}
}

func (p *Pipeline) checkPTR(ctx context.Context, mxHosts []*net.MX, resolver *net.Resolver, add func(*models.Finding)) {
	for _, mx := range mxHosts {
		host := strings.TrimSuffix(mx.Host, ".")
		names, err := lookupPTR(ctx, resolver, host)
		if err != nil || len(names) == 0 {
			add(models.NewFinding(models.CapabilityEmailSecurity, models.SeverityLow, 20, fmt.Sprintf("No PTR record for MX host %s", host), "Missing reverse DNS can cause receiving servers to flag mail as suspicious."))
		}
	}
}

func (p *Pipeline) checkDNSSEC(ctx context.Context, target string, add func(*models.Finding)) {
	ok, err := lookupDNSKEY(ctx, target)
	if err != nil {
		return
	}
	if !ok {
		add(models.NewFinding(models.CapabilityEmailSecurity, models.SeverityLow, 20, "DNSSEC not enabled", "No DNSKEY record found for the target zone."))
	} else {
		add(models.NewFinding(models.CapabilityEmailSecurity, models.SeverityInfo, 5, "DNSSEC enabled", "DNSKEY record present."))
	}
}

func (p *Pipeline) checkMailSubdomains(ctx context.Context, target string, resolver *net.Resolver, add func(*models.Finding)) {
	var wg sync.WaitGroup
	for _, prefix := range mailSubdomains {
		host := prefix + "." + target
		wg.Add(1)
		go func() {
			defer wg.Done()
			if addrs, err := resolver.LookupHost(ctx, host); err == nil && len(addrs) > 0 {
				add(models.NewFinding(models.CapabilityEmailSecurity, models.SeverityInfo, 5, fmt.Sprintf("Mail subdomain resolves: %s", host), "Resolves to "+strings.Join(addrs, ", ")))
			}
		}()
	}
	wg.Wait()
}
