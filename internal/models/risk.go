package models

import "time"

// RiskLevel is the categorical band a RiskScore falls into (§3, C11).
type RiskLevel string

const (
	RiskLevelCritical RiskLevel = "critical"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMinimal  RiskLevel = "minimal"
)

// RiskLevelFromScore maps an overall score to a level using the fixed
// thresholds in §3/§4.11 ({>=90 minimal, >=75 low, >=50 medium, >=25
// high, else critical}).
func RiskLevelFromScore(overall float64) RiskLevel {
	switch {
	case overall >= 90:
		return RiskLevelMinimal
	case overall >= 75:
		return RiskLevelLow
	case overall >= 50:
		return RiskLevelMedium
	case overall >= 25:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// Trend is the direction of change between the last two stored scores.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendWorsening Trend = "worsening"
	TrendStable    Trend = "stable"
)

// SeverityCounts tallies findings by severity for a RiskScore snapshot.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// RiskScore is a per-target point-in-time risk snapshot (§3, C11).
type RiskScore struct {
	Target         string             `json:"target"`
	OverallScore   float64            `json:"overall_score"`
	RiskLevel      RiskLevel          `json:"risk_level"`
	CategoryScores map[string]float64 `json:"category_scores"`
	SeverityCounts SeverityCounts     `json:"severity_counts"`
	Trend          Trend              `json:"trend"`
	LastUpdated    time.Time          `json:"last_updated"`
}
