// Package risk implements the weighted risk scoring engine (C11): a
// category-weighted aggregate over findings, with score history and
// trend detection (§4.11).
package risk

import (
	"sync"
	"time"

	"github.com/sentrywatch/threatwatch/internal/models"
)

// categoryWeights sums to 1.0 across the six scoring categories (§4.11).
var categoryWeights = map[string]float64{
	"exposure":       0.20,
	"dark_web":       0.20,
	"email_security": 0.15,
	"infrastructure": 0.20,
	"authentication": 0.15,
	"network":        0.10,
}

// severityDeduction is the point deduction per finding severity (§4.11).
var severityDeduction = map[models.Severity]float64{
	models.SeverityCritical: 25,
	models.SeverityHigh:     15,
	models.SeverityMedium:   8,
	models.SeverityLow:      3,
	models.SeverityInfo:     1,
}

// capabilityCategory maps each capability to the risk category its
// findings are deducted against (§4.11 "fixed map").
var capabilityCategory = map[models.Capability]string{
	models.CapabilityExposureDiscovery:  "exposure",
	models.CapabilityDarkWebIntel:       "dark_web",
	models.CapabilityEmailSecurity:      "email_security",
	models.CapabilityInfrastructureTest: "infrastructure",
	models.CapabilityNetworkSecurity:    "network",
	models.CapabilityInvestigation:      "exposure",
}

// historyCapacity bounds the per-target/per-category score ring (§3).
const historyCapacity = 100

// Engine computes and stores RiskScore history per target.
type Engine struct {
	mu      sync.Mutex
	history map[string][]models.RiskScore // target -> ring (oldest first, capped)
}

// NewEngine creates an empty risk engine.
func NewEngine() *Engine {
	return &Engine{history: map[string][]models.RiskScore{}}
}

// Calculate computes a RiskScore for target from findings, folds in trend
// detection against the immediately prior stored score, and records the
// result in the target's history ring (§4.11).
func (e *Engine) Calculate(target string, findings []*models.Finding) models.RiskScore {
	categoryScores := map[string]float64{}
	for cat := range categoryWeights {
		categoryScores[cat] = 100
	}
	counts := models.SeverityCounts{}

	for _, f := range findings {
		cat, ok := capabilityCategory[f.Capability]
		if !ok {
			continue
		}
		categoryScores[cat] -= severityDeduction[f.Severity]
		if categoryScores[cat] < 0 {
			categoryScores[cat] = 0
		}
		switch f.Severity {
		case models.SeverityCritical:
			counts.Critical++
		case models.SeverityHigh:
			counts.High++
		case models.SeverityMedium:
			counts.Medium++
		case models.SeverityLow:
			counts.Low++
		case models.SeverityInfo:
			counts.Info++
		}
	}

	var overall float64
	for cat, weight := range categoryWeights {
		overall += categoryScores[cat] * weight
	}
	if overall < 0 {
		overall = 0
	}
	if overall > 100 {
		overall = 100
	}

	score := models.RiskScore{
		Target:         target,
		OverallScore:   overall,
		RiskLevel:      models.RiskLevelFromScore(overall),
		CategoryScores: categoryScores,
		SeverityCounts: counts,
		LastUpdated:    time.Now(),
	}

	e.mu.Lock()
	prior := e.lastLocked(target)
	score.Trend = overallTrend(prior, score.OverallScore)
	e.appendLocked(target, score)
	e.mu.Unlock()

	return score
}

// History returns the stored score ring for target, oldest first.
func (e *Engine) History(target string) []models.RiskScore {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.RiskScore, len(e.history[target]))
	copy(out, e.history[target])
	return out
}

func (e *Engine) lastLocked(target string) *models.RiskScore {
	h := e.history[target]
	if len(h) == 0 {
		return nil
	}
	last := h[len(h)-1]
	return &last
}

func (e *Engine) appendLocked(target string, score models.RiskScore) {
	h := append(e.history[target], score)
	if len(h) > historyCapacity {
		h = h[len(h)-historyCapacity:]
	}
	e.history[target] = h
}

// overallTrend applies the ±3 threshold for the overall score (§4.11).
func overallTrend(prior *models.RiskScore, current float64) models.Trend {
	if prior == nil {
		return models.TrendStable
	}
	delta := current - prior.OverallScore
	switch {
	case delta > 3:
		return models.TrendImproving
	case delta < -3:
		return models.TrendWorsening
	default:
		return models.TrendStable
	}
}

// CategoryTrend applies the ±5 threshold for a single category score,
// comparing against the immediately prior stored score for the same
// target/category (§4.11).
func (e *Engine) CategoryTrend(target, category string) models.Trend {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.history[target]
	if len(h) < 2 {
		return models.TrendStable
	}
	prior := h[len(h)-2].CategoryScores[category]
	current := h[len(h)-1].CategoryScores[category]
	delta := current - prior
	switch {
	case delta > 5:
		return models.TrendImproving
	case delta < -5:
		return models.TrendWorsening
	default:
		return models.TrendStable
	}
}
