package emailauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsTag(t *testing.T) {
	assert.True(t, containsTag("v=DMARC1; p=none; pct=50", "pct="))
	assert.False(t, containsTag("v=DMARC1; p=reject", "pct="))
}

func TestEqualFold(t *testing.T) {
	assert.True(t, equalFold("PCT=", "pct="))
	assert.False(t, equalFold("pct=", "sp="))
	assert.False(t, equalFold("pct", "pct="))
}

func TestRunBypassAnalyzerMonitorOnlyAndSubdomainGap(t *testing.T) {
	spf := record{Name: "SPF", Exists: true, Policy: "softfail"}
	dmarc := record{Name: "DMARC", Exists: true, Policy: "none", Raw: "v=DMARC1; p=none; rua=mailto:a@example.com"}

	hits := runBypassAnalyzer(spf, dmarc, 0)
	var names []string
	for _, h := range hits {
		names = append(names, h.Name)
	}
	assert.Contains(t, names, "monitor_only_policy")
	assert.Contains(t, names, "subdomain_policy_gap")
	assert.Contains(t, names, "spf_softfail_relay")
	assert.Contains(t, names, "no_dkim_alignment")
}

func TestRunBypassAnalyzerCleanConfigNoHits(t *testing.T) {
	spf := record{Name: "SPF", Exists: true, Policy: "fail"}
	dmarc := record{Name: "DMARC", Exists: true, Policy: "reject", Raw: "v=DMARC1; p=reject; sp=reject; pct=100; rua=mailto:a@example.com"}

	hits := runBypassAnalyzer(spf, dmarc, 3)
	require.Empty(t, hits)
}
