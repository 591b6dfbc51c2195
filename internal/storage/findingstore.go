package storage

import (
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/sentrywatch/threatwatch/internal/models"
)

// findingRecord is the badgerhold-persisted row for one Finding (§4.12).
type findingRecord struct {
	ID              string `badgerhold:"key"`
	JobID           string `badgerholdIndex:"JobID"`
	Capability      models.Capability
	Severity        models.Severity `badgerholdIndex:"Severity"`
	RiskScore       float64         `badgerholdIndex:"RiskScore"`
	Title           string
	Description     string
	Evidence        map[string]interface{}
	AffectedAssets  []string
	Recommendations []string
	Target          string `badgerholdIndex:"Target"`
	DiscoveredAt    time.Time
	OwnerUserID     string `badgerholdIndex:"OwnerUserID"`
}

// FindingStore is a per-request scoped view over the durable finding
// table (§4.12).
type FindingStore struct {
	db      *DB
	userID  string
	isAdmin bool
}

// NewFindingStore builds a FindingStore scoped to userID.
func NewFindingStore(db *DB, userID string, isAdmin bool) *FindingStore {
	return &FindingStore{db: db, userID: userID, isAdmin: isAdmin}
}

// Save persists f, stamping OwnerUserID for non-admin callers.
func (s *FindingStore) Save(f *models.Finding, ownerUserID string) error {
	if !s.isAdmin {
		ownerUserID = s.userID
	}
	rec := findingRecord{
		ID:              f.ID,
		JobID:           f.JobID,
		Capability:      f.Capability,
		Severity:        f.Severity,
		RiskScore:       f.RiskScore,
		Title:           f.Title,
		Description:     f.Description,
		Evidence:        f.Evidence,
		AffectedAssets:  f.AffectedAssets,
		Recommendations: f.Recommendations,
		Target:          f.Target,
		DiscoveredAt:    f.DiscoveredAt,
		OwnerUserID:     ownerUserID,
	}
	return s.db.Store().Upsert(rec.ID, rec)
}

// ByTarget returns findings for target visible to this store's scope,
// ordered by RiskScore descending (highest risk first, mirroring the
// orchestrator's AVL-by-risk-score index per §4.13).
func (s *FindingStore) ByTarget(target string) ([]*models.Finding, error) {
	query := badgerhold.Where("Target").Eq(target)
	if !s.isAdmin {
		query = query.And("OwnerUserID").Eq(s.userID)
	}
	var rows []findingRecord
	if err := s.db.Store().Find(&rows, query.SortBy("RiskScore").Reverse()); err != nil {
		return nil, err
	}
	out := make([]*models.Finding, len(rows))
	for i, r := range rows {
		out[i] = findingToModel(r)
	}
	return out, nil
}

// ByJob returns every finding recorded against jobID.
func (s *FindingStore) ByJob(jobID string) ([]*models.Finding, error) {
	query := badgerhold.Where("JobID").Eq(jobID)
	if !s.isAdmin {
		query = query.And("OwnerUserID").Eq(s.userID)
	}
	var rows []findingRecord
	if err := s.db.Store().Find(&rows, query); err != nil {
		return nil, err
	}
	out := make([]*models.Finding, len(rows))
	for i, r := range rows {
		out[i] = findingToModel(r)
	}
	return out, nil
}

func findingToModel(r findingRecord) *models.Finding {
	return &models.Finding{
		ID:              r.ID,
		JobID:           r.JobID,
		Capability:      r.Capability,
		Severity:        r.Severity,
		RiskScore:       r.RiskScore,
		Title:           r.Title,
		Description:     r.Description,
		Evidence:        r.Evidence,
		AffectedAssets:  r.AffectedAssets,
		Recommendations: r.Recommendations,
		Target:          r.Target,
		DiscoveredAt:    r.DiscoveredAt,
		OwnerUserID:     r.OwnerUserID,
	}
}
