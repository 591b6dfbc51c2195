package emailauth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentrywatch/threatwatch/internal/models"
)

func TestEnsureDot(t *testing.T) {
	assert.Equal(t, "example.com.", ensureDot("example.com"))
	assert.Equal(t, "example.com.", ensureDot("example.com."))
}

func TestCountPrefixed(t *testing.T) {
	records := []string{"v=spf1 -all", "google-site-verification=abc", "V=SPF1 include:x ~all"}
	assert.Equal(t, 2, countPrefixed(records, "v=spf1"))
}

func TestOrDash(t *testing.T) {
	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "reject", orDash("reject"))
}

func TestIssueToSeverity(t *testing.T) {
	sev, score := issueToSeverity("SPF", "no spf record published")
	assert.Equal(t, models.SeverityHigh, sev)
	assert.True(t, sev.AgreesWithScore(score))

	sev, score = issueToSeverity("SPF", "SPF uses +all, permitting any sender")
	assert.Equal(t, models.SeverityHigh, sev)
	assert.True(t, sev.AgreesWithScore(score))

	sev, score = issueToSeverity("DMARC", "DMARC policy is quarantine, not reject")
	assert.Equal(t, models.SeverityMedium, sev)
	assert.True(t, sev.AgreesWithScore(score))
}

func TestSeverityScoreAgreesWithBands(t *testing.T) {
	for _, sev := range []models.Severity{models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow, models.SeverityInfo} {
		assert.True(t, sev.AgreesWithScore(severityScore(sev)))
	}
}

func TestRiskLevelToSeverityAgreesWithBands(t *testing.T) {
	for _, level := range []string{"critical", "high", "medium", "low"} {
		sev, score := riskLevelToSeverity(level)
		assert.True(t, sev.AgreesWithScore(score))
	}
}
