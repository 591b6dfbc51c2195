package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrywatch/threatwatch/internal/common"
	"github.com/sentrywatch/threatwatch/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(common.StorageConfig{BadgerPath: dir}, common.GetLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestJobStoreSaveGetStampsOwner(t *testing.T) {
	db := newTestDB(t)
	store := NewJobStore(db, "u1", false)

	job := models.NewJob("job-abc123456789", models.CapabilityExposureDiscovery, "example.com", models.PriorityHigh, nil, nil)
	require.NoError(t, store.Save(job))
	assert.Equal(t, "u1", job.OwnerUserID)

	got, ok := store.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, job.Target, got.Target)

	other := NewJobStore(db, "u2", false)
	_, ok = other.Get(job.ID)
	assert.False(t, ok)

	admin := NewJobStore(db, "u2", true)
	_, ok = admin.Get(job.ID)
	assert.True(t, ok)
}

func TestJobStoreListFiltersByCapability(t *testing.T) {
	db := newTestDB(t)
	store := NewJobStore(db, "u1", false)
	j1 := models.NewJob("job-111111111111", models.CapabilityExposureDiscovery, "a.com", models.PriorityHigh, nil, nil)
	j2 := models.NewJob("job-222222222222", models.CapabilityEmailSecurity, "a.com", models.PriorityHigh, nil, nil)
	require.NoError(t, store.Save(j1))
	require.NoError(t, store.Save(j2))

	jobs, err := store.List(models.CapabilityExposureDiscovery, "")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, j1.ID, jobs[0].ID)
}

func TestFindingStoreByTargetSortedByRiskDescending(t *testing.T) {
	db := newTestDB(t)
	store := NewFindingStore(db, "u1", false)

	low := models.NewFinding(models.CapabilityExposureDiscovery, models.SeverityLow, 20, "low finding", "d")
	low.WithJob("job-1", "example.com")
	high := models.NewFinding(models.CapabilityExposureDiscovery, models.SeverityCritical, 90, "critical finding", "d")
	high.WithJob("job-1", "example.com")

	require.NoError(t, store.Save(low, "u1"))
	require.NoError(t, store.Save(high, "u1"))

	findings, err := store.ByTarget("example.com")
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, high.ID, findings[0].ID)
}

func TestIndicatorStoreVisibility(t *testing.T) {
	db := newTestDB(t)
	store := NewIndicatorStore(db, "u1", false)
	ind := &models.PositiveIndicator{Target: "example.com", Category: "mfa", Description: "MFA enforced", Weight: 5}
	require.NoError(t, store.Save(ind))
	assert.Equal(t, "u1", ind.OwnerUserID)
	assert.NotEmpty(t, ind.ID)

	found, err := store.ByTarget("example.com")
	require.NoError(t, err)
	require.Len(t, found, 1)

	other := NewIndicatorStore(db, "u2", false)
	found, err = other.ByTarget("example.com")
	require.NoError(t, err)
	assert.Empty(t, found)
}
