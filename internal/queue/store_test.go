package queue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrywatch/threatwatch/internal/models"
	"github.com/sentrywatch/threatwatch/internal/queue"
)

func TestStore_PriorityOrdering(t *testing.T) {
	s := queue.NewStore(0)

	jNormal := models.NewJob("job-normal", models.CapabilityExposureDiscovery, "a.com", models.PriorityNormal, nil, nil)
	jHigh := models.NewJob("job-high", models.CapabilityExposureDiscovery, "a.com", models.PriorityHigh, nil, nil)
	jCritical := models.NewJob("job-critical", models.CapabilityExposureDiscovery, "a.com", models.PriorityCritical, nil, nil)

	require.NoError(t, s.Put(jNormal))
	require.NoError(t, s.Put(jHigh))
	require.NoError(t, s.Put(jCritical))

	first, ok := s.PopNext()
	require.True(t, ok)
	assert.Equal(t, "job-critical", first.ID)

	second, ok := s.PopNext()
	require.True(t, ok)
	assert.Equal(t, "job-high", second.ID)

	third, ok := s.PopNext()
	require.True(t, ok)
	assert.Equal(t, "job-normal", third.ID)

	_, ok = s.PopNext()
	assert.False(t, ok)
}

func TestStore_QueueFull(t *testing.T) {
	s := queue.NewStore(1)
	require.NoError(t, s.Put(models.NewJob("job-1", models.CapabilityExposureDiscovery, "a.com", models.PriorityNormal, nil, nil)))

	err := s.Put(models.NewJob("job-2", models.CapabilityExposureDiscovery, "a.com", models.PriorityNormal, nil, nil))
	assert.ErrorIs(t, err, queue.ErrQueueFull)
}

func TestStore_DuplicateJobRejected(t *testing.T) {
	s := queue.NewStore(0)
	job := models.NewJob("job-dup", models.CapabilityExposureDiscovery, "a.com", models.PriorityNormal, nil, nil)
	require.NoError(t, s.Put(job))
	err := s.Put(job)
	assert.ErrorIs(t, err, queue.ErrAlreadyQueued)
}

func TestStore_ListFiltersByCapabilityStatusTarget(t *testing.T) {
	s := queue.NewStore(0)
	j1 := models.NewJob("job-1", models.CapabilityExposureDiscovery, "a.com", models.PriorityNormal, nil, nil)
	j2 := models.NewJob("job-2", models.CapabilityDarkWebIntel, "b.com", models.PriorityNormal, nil, nil)
	require.NoError(t, s.Put(j1))
	require.NoError(t, s.Put(j2))

	require.NoError(t, s.UpdateStatus("job-1", models.JobStatusQueued))

	results := s.List(queue.Filter{Capability: models.CapabilityExposureDiscovery})
	require.Len(t, results, 1)
	assert.Equal(t, "job-1", results[0].ID)

	results = s.List(queue.Filter{Status: models.JobStatusQueued})
	require.Len(t, results, 1)
	assert.Equal(t, "job-1", results[0].ID)

	results = s.List(queue.Filter{Target: "b.com"})
	require.Len(t, results, 1)
	assert.Equal(t, "job-2", results[0].ID)
}

func TestStore_RemoveFromHeap(t *testing.T) {
	s := queue.NewStore(0)
	job := models.NewJob("job-1", models.CapabilityExposureDiscovery, "a.com", models.PriorityNormal, nil, nil)
	require.NoError(t, s.Put(job))

	assert.True(t, s.Remove("job-1"))
	_, ok := s.PopNext()
	assert.False(t, ok)

	// Job still resolvable via Get for status/cancellation bookkeeping.
	got, ok := s.Get("job-1")
	require.True(t, ok)
	assert.Equal(t, "job-1", got.ID)
}

func TestStore_PopEmptyDoesNotBlock(t *testing.T) {
	s := queue.NewStore(0)
	_, ok := s.PopNext()
	assert.False(t, ok)
}
