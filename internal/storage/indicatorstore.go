package storage

import (
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/sentrywatch/threatwatch/internal/models"
)

// indicatorRecord is the badgerhold-persisted row for one
// PositiveIndicator (§3, §4.12).
type indicatorRecord struct {
	ID          string `badgerhold:"key"`
	OwnerUserID string `badgerholdIndex:"OwnerUserID"`
	Target      string `badgerholdIndex:"Target"`
	Category    string
	Description string
	Weight      float64
	Metadata    map[string]interface{}
	CreatedAt   time.Time
}

// IndicatorStore is a per-request scoped view over the durable
// positive-indicator table (§4.12).
type IndicatorStore struct {
	db      *DB
	userID  string
	isAdmin bool
}

// NewIndicatorStore builds an IndicatorStore scoped to userID.
func NewIndicatorStore(db *DB, userID string, isAdmin bool) *IndicatorStore {
	return &IndicatorStore{db: db, userID: userID, isAdmin: isAdmin}
}

// Save persists ind, stamping OwnerUserID and an id for non-admin
// callers/new records.
func (s *IndicatorStore) Save(ind *models.PositiveIndicator) error {
	if ind.ID == "" {
		ind.ID = newID("indicator")
	}
	if !s.isAdmin {
		ind.OwnerUserID = s.userID
	}
	if ind.CreatedAt.IsZero() {
		ind.CreatedAt = time.Now()
	}
	rec := indicatorRecord{
		ID:          ind.ID,
		OwnerUserID: ind.OwnerUserID,
		Target:      ind.Target,
		Category:    ind.Category,
		Description: ind.Description,
		Weight:      ind.Weight,
		Metadata:    ind.Metadata,
		CreatedAt:   ind.CreatedAt,
	}
	return s.db.Store().Upsert(rec.ID, rec)
}

// ByTarget returns indicators for target visible to this store's scope.
func (s *IndicatorStore) ByTarget(target string) ([]*models.PositiveIndicator, error) {
	query := badgerhold.Where("Target").Eq(target)
	if !s.isAdmin {
		query = query.And("OwnerUserID").Eq(s.userID)
	}
	var rows []indicatorRecord
	if err := s.db.Store().Find(&rows, query); err != nil {
		return nil, err
	}
	out := make([]*models.PositiveIndicator, len(rows))
	for i, r := range rows {
		out[i] = &models.PositiveIndicator{
			ID:          r.ID,
			OwnerUserID: r.OwnerUserID,
			Target:      r.Target,
			Category:    r.Category,
			Description: r.Description,
			Weight:      r.Weight,
			Metadata:    r.Metadata,
			CreatedAt:   r.CreatedAt,
		}
	}
	return out, nil
}
