package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Severity is a finding's qualitative risk band.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// severityBand gives the [min, max) risk_score band each severity must
// fall within, enforcing the monotonic agreement invariant in §3.
var severityBand = map[Severity][2]float64{
	SeverityCritical: {85, 100.0001},
	SeverityHigh:     {65, 85},
	SeverityMedium:   {35, 65},
	SeverityLow:      {15, 35},
	SeverityInfo:     {0, 15},
}

// AgreesWithScore reports whether riskScore falls in this severity's band.
func (s Severity) AgreesWithScore(riskScore float64) bool {
	band, ok := severityBand[s]
	if !ok {
		return false
	}
	return riskScore >= band[0] && riskScore < band[1]
}

// Rank gives a total order for severity comparisons (higher is worse).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Finding is an immutable, severity-scored observation about a target.
type Finding struct {
	ID               string                 `json:"id"`
	JobID            string                 `json:"job_id"`
	Capability       Capability             `json:"capability"`
	Severity         Severity               `json:"severity"`
	RiskScore        float64                `json:"risk_score"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description"`
	Evidence         map[string]interface{} `json:"evidence"`
	AffectedAssets   []string               `json:"affected_assets"`
	Recommendations  []string               `json:"recommendations"`
	Target           string                 `json:"target"`
	DiscoveredAt     time.Time              `json:"discovered_at"`
	OwnerUserID      string                 `json:"owner_user_id,omitempty"`
}

// NewFinding builds a finding with a fresh id; DiscoveredAt is set by the
// finding bus at publish time to enforce the monotonic-ordering invariant.
func NewFinding(capability Capability, severity Severity, riskScore float64, title, description string) *Finding {
	return &Finding{
		ID:          uuid.New().String(),
		Capability:  capability,
		Severity:    severity,
		RiskScore:   riskScore,
		Title:       title,
		Description: description,
		Evidence:    map[string]interface{}{},
	}
}

// Validate checks the finding's structural invariants.
func (f *Finding) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("finding id is required")
	}
	if f.Title == "" {
		return fmt.Errorf("finding title is required")
	}
	if f.RiskScore < 0 || f.RiskScore > 100 {
		return fmt.Errorf("risk_score out of range: %f", f.RiskScore)
	}
	if !f.Severity.AgreesWithScore(f.RiskScore) {
		return fmt.Errorf("severity %s does not agree with risk_score %f", f.Severity, f.RiskScore)
	}
	if f.Evidence == nil || f.Evidence["job_id"] == nil {
		return fmt.Errorf("evidence.job_id is required")
	}
	return nil
}

// WithJob stamps the finding with the owning job's id and target, per
// orchestrator step §4.13.3.
func (f *Finding) WithJob(jobID, target string) *Finding {
	f.JobID = jobID
	f.Target = target
	if f.Evidence == nil {
		f.Evidence = map[string]interface{}{}
	}
	f.Evidence["job_id"] = jobID
	return f
}

// PositiveIndicator is a per-user record that adds to risk score (§3).
type PositiveIndicator struct {
	ID          string                 `json:"id"`
	OwnerUserID string                 `json:"owner_user_id"`
	Target      string                 `json:"target"`
	Category    string                 `json:"category"`
	Description string                 `json:"description"`
	Weight      float64                `json:"weight"`
	Metadata    map[string]interface{} `json:"metadata"`
	CreatedAt   time.Time              `json:"created_at"`
}
