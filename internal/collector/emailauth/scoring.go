package emailauth

import "strings"

// record is one DNS-backed auth mechanism's classified state
// (exists?, policy, issues) per §4.6.
type record struct {
	Name    string
	Exists  bool
	Policy  string
	Issues  []string
	Raw     string
}

// classifySPF flags a missing record, a too-permissive "+all"/no "all"
// mechanism, and more than one SPF record (a hard RFC 7208 violation).
func classifySPF(raw string, count int) record {
	r := record{Name: "SPF", Raw: raw, Exists: raw != ""}
	if !r.Exists {
		r.Issues = append(r.Issues, "no SPF record published")
		return r
	}
	if count > 1 {
		r.Issues = append(r.Issues, "multiple SPF records published (RFC 7208 permits only one)")
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "-all"):
		r.Policy = "fail"
	case strings.Contains(lower, "~all"):
		r.Policy = "softfail"
	case strings.Contains(lower, "?all"):
		r.Policy = "neutral"
		r.Issues = append(r.Issues, "SPF uses neutral (?all) qualifier")
	case strings.Contains(lower, "+all"):
		r.Policy = "pass"
		r.Issues = append(r.Issues, "SPF uses +all, permitting any sender")
	default:
		r.Policy = "none"
		r.Issues = append(r.Issues, "SPF record has no all mechanism")
	}
	if strings.Count(lower, "include:") > 10 {
		r.Issues = append(r.Issues, "SPF record nears the 10-lookup limit")
	}
	return r
}

// classifyDMARC flags a missing record, a "p=none" monitor-only policy,
// and missing aggregate-report addressing.
func classifyDMARC(raw string) record {
	r := record{Name: "DMARC", Raw: raw, Exists: raw != ""}
	if !r.Exists {
		r.Issues = append(r.Issues, "no DMARC record published")
		return r
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "p=reject"):
		r.Policy = "reject"
	case strings.Contains(lower, "p=quarantine"):
		r.Policy = "quarantine"
		r.Issues = append(r.Issues, "DMARC policy is quarantine, not reject")
	case strings.Contains(lower, "p=none"):
		r.Policy = "none"
		r.Issues = append(r.Issues, "DMARC policy is monitor-only (p=none)")
	default:
		r.Policy = "unknown"
		r.Issues = append(r.Issues, "DMARC record has no recognizable policy tag")
	}
	if !strings.Contains(lower, "rua=") {
		r.Issues = append(r.Issues, "DMARC record has no aggregate-report address (rua)")
	}
	if strings.Contains(lower, "pct=") && !strings.Contains(lower, "pct=100") {
		r.Issues = append(r.Issues, "DMARC policy applies to less than 100% of mail (pct=)")
	}
	return r
}

// classifyDKIM flags the absence of any selector.
func classifyDKIM(selectors map[string]string) record {
	r := record{Name: "DKIM", Exists: len(selectors) > 0}
	if !r.Exists {
		r.Issues = append(r.Issues, "no DKIM selector resolved from the common list")
	}
	return r
}

// classifyMX flags a domain with no mail servers at all.
func classifyMX(count int) record {
	r := record{Name: "MX", Exists: count > 0}
	if !r.Exists {
		r.Issues = append(r.Issues, "no MX records published")
	}
	return r
}

// complianceWeights give the relative contribution of each
// mechanism's score to its compliance family (§4.6: RFC 7208/6376/7489,
// M3AAWG).
var complianceWeights = map[string]float64{"spf": 0.4, "dkim": 0.3, "dmarc": 0.3}

// mechanismScore maps a record's state to a 0-100 contribution. A
// mechanism that carries no policy tag (DKIM) scores full when present.
func mechanismScore(r record) float64 {
	if !r.Exists {
		return 0
	}
	score := 60.0
	switch r.Policy {
	case "fail", "reject", "":
		score = 100
	case "softfail", "quarantine":
		score = 75
	case "neutral", "none", "unknown":
		score = 40
	}
	score -= float64(len(r.Issues)) * 5
	if score < 0 {
		score = 0
	}
	return score
}

// complianceScores computes the four standards scores named in §4.6, as
// weighted averages of the underlying mechanism scores.
type complianceScores struct {
	SPF     float64 // RFC 7208
	DKIM    float64 // RFC 6376
	DMARC   float64 // RFC 7489
	M3AAWG  float64
}

func computeComplianceScores(spf, dkim, dmarc record) complianceScores {
	spfScore := mechanismScore(spf)
	dkimScore := mechanismScore(dkim)
	dmarcScore := mechanismScore(dmarc)
	overall := spfScore*complianceWeights["spf"] + dkimScore*complianceWeights["dkim"] + dmarcScore*complianceWeights["dmarc"]
	return complianceScores{SPF: spfScore, DKIM: dkimScore, DMARC: dmarcScore, M3AAWG: overall}
}

// securityScore is the single 0-100 score §4.6 asks for alongside the
// four compliance scores; it's the same weighted blend since M3AAWG's
// best-practice guidance and the overall security posture track the
// same three pillars.
func securityScore(c complianceScores) float64 {
	return c.M3AAWG
}

// riskLevel derives {critical, high, medium, low} from the count of
// problematic factors (missing/misconfigured records) (§4.6).
func riskLevel(problemCount int) string {
	switch {
	case problemCount >= 5:
		return "critical"
	case problemCount >= 3:
		return "high"
	case problemCount >= 1:
		return "medium"
	default:
		return "low"
	}
}
