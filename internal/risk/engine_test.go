package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentrywatch/threatwatch/internal/models"
)

func finding(cap models.Capability, sev models.Severity, score float64) *models.Finding {
	return models.NewFinding(cap, sev, score, "t", "d")
}

func TestCalculateNoFindingsYieldsMinimalRisk(t *testing.T) {
	e := NewEngine()
	score := e.Calculate("example.com", nil)
	assert.Equal(t, 100.0, score.OverallScore)
	assert.Equal(t, models.RiskLevelMinimal, score.RiskLevel)
	assert.Equal(t, models.TrendStable, score.Trend)
}

func TestCalculateDeductsPerCategory(t *testing.T) {
	e := NewEngine()
	findings := []*models.Finding{
		finding(models.CapabilityExposureDiscovery, models.SeverityCritical, 90),
		finding(models.CapabilityEmailSecurity, models.SeverityHigh, 70),
	}
	score := e.Calculate("example.com", findings)
	assert.Equal(t, float64(75), score.CategoryScores["exposure"])
	assert.Equal(t, float64(85), score.CategoryScores["email_security"])
	assert.Equal(t, 1, score.SeverityCounts.Critical)
	assert.Equal(t, 1, score.SeverityCounts.High)
}

func TestRiskTrendImprovingThenWorsening(t *testing.T) {
	e := NewEngine()

	first := e.Calculate("example.com", []*models.Finding{
		finding(models.CapabilityExposureDiscovery, models.SeverityCritical, 90),
	})
	assert.Equal(t, models.TrendStable, first.Trend) // no prior score yet

	second := e.Calculate("example.com", nil) // clears the deduction, overall rises
	assert.Equal(t, models.TrendImproving, second.Trend)

	third := e.Calculate("example.com", []*models.Finding{
		finding(models.CapabilityExposureDiscovery, models.SeverityCritical, 90),
		finding(models.CapabilityDarkWebIntel, models.SeverityCritical, 90),
		finding(models.CapabilityEmailSecurity, models.SeverityCritical, 90),
	})
	assert.Equal(t, models.TrendWorsening, third.Trend)

	history := e.History("example.com")
	assert.Len(t, history, 3)
}

func TestCategoryTrendThreshold(t *testing.T) {
	e := NewEngine()
	e.Calculate("example.com", []*models.Finding{
		finding(models.CapabilityExposureDiscovery, models.SeverityCritical, 90),
	})
	e.Calculate("example.com", nil)
	assert.Equal(t, models.TrendImproving, e.CategoryTrend("example.com", "exposure"))
}
