package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/sentrywatch/threatwatch/internal/models"
)

// jobRecord is the badgerhold-persisted row for one Job (§4.12).
type jobRecord struct {
	ID           string `badgerhold:"key"`
	Capability   models.Capability `badgerholdIndex:"Capability"`
	Target       string            `badgerholdIndex:"Target"`
	Status       models.JobStatus  `badgerholdIndex:"Status"`
	Priority     models.Priority
	Progress     int
	Config       map[string]interface{}
	Metadata     map[string]interface{}
	ExecutionLog []models.LogEntry
	Findings     []*models.Finding
	OwnerUserID  string `badgerholdIndex:"OwnerUserID"`
	Error        string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// JobStore is a per-request scoped view over the durable job table,
// constructed with (db, user_id, is_admin) per §4.12: non-admin queries
// filter by user_id, non-admin writes stamp it.
type JobStore struct {
	db      *DB
	userID  string
	isAdmin bool
}

// NewJobStore builds a JobStore scoped to userID (ignored when isAdmin).
func NewJobStore(db *DB, userID string, isAdmin bool) *JobStore {
	return &JobStore{db: db, userID: userID, isAdmin: isAdmin}
}

// Save upserts job, stamping OwnerUserID for non-admin callers.
func (s *JobStore) Save(job *models.Job) error {
	if !s.isAdmin {
		job.OwnerUserID = s.userID
	}
	rec := jobFromModel(job)
	return s.db.Store().Upsert(rec.ID, rec)
}

// Get returns job by id, filtered by visibility.
func (s *JobStore) Get(id string) (*models.Job, bool) {
	var rec jobRecord
	if err := s.db.Store().Get(id, &rec); err != nil {
		return nil, false
	}
	if !s.isAdmin && rec.OwnerUserID != s.userID {
		return nil, false
	}
	return jobToModel(rec), true
}

// List returns every job visible to this store's scope, optionally
// filtered to a capability or status.
func (s *JobStore) List(capability models.Capability, status models.JobStatus) ([]*models.Job, error) {
	query := badgerhold.Where("ID").Ne("")
	if !s.isAdmin {
		query = query.And("OwnerUserID").Eq(s.userID)
	}
	if capability != "" {
		query = query.And("Capability").Eq(capability)
	}
	if status != "" {
		query = query.And("Status").Eq(status)
	}
	var rows []jobRecord
	if err := s.db.Store().Find(&rows, query); err != nil {
		return nil, err
	}
	out := make([]*models.Job, len(rows))
	for i, r := range rows {
		out[i] = jobToModel(r)
	}
	return out, nil
}

func jobFromModel(j *models.Job) jobRecord {
	return jobRecord{
		ID:           j.ID,
		Capability:   j.Capability,
		Target:       j.Target,
		Status:       j.Status,
		Priority:     j.Priority,
		Progress:     j.Progress,
		Config:       j.Config,
		Metadata:     j.Metadata,
		ExecutionLog: j.ExecutionLog,
		Findings:     j.Findings,
		OwnerUserID:  j.OwnerUserID,
		Error:        j.Error,
		CreatedAt:    j.CreatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
}

func jobToModel(r jobRecord) *models.Job {
	return &models.Job{
		ID:           r.ID,
		Capability:   r.Capability,
		Target:       r.Target,
		Status:       r.Status,
		Priority:     r.Priority,
		Progress:     r.Progress,
		Config:       r.Config,
		Metadata:     r.Metadata,
		ExecutionLog: r.ExecutionLog,
		Findings:     r.Findings,
		OwnerUserID:  r.OwnerUserID,
		Error:        r.Error,
		CreatedAt:    r.CreatedAt,
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
	}
}

// newID generates a random-suffixed identifier: prefix + "-" + the first
// 12 characters of a random UUID string (8 hex chars, a hyphen, 3 hex
// chars).
func newID(prefix string) string {
	return prefix + "-" + uuid.New().String()[:12]
}
