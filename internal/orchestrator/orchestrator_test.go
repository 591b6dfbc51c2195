package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrywatch/threatwatch/internal/bus"
	"github.com/sentrywatch/threatwatch/internal/collector"
	"github.com/sentrywatch/threatwatch/internal/common"
	"github.com/sentrywatch/threatwatch/internal/models"
	"github.com/sentrywatch/threatwatch/internal/queue"
	"github.com/sentrywatch/threatwatch/internal/risk"
	"github.com/sentrywatch/threatwatch/internal/storage"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(common.StorageConfig{BadgerPath: dir}, common.GetLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	registry := collector.NewRegistry()
	registry.Register(models.CapabilityExposureDiscovery, collector.CollectorFunc(
		func(ctx context.Context, job *models.Job, publish collector.Publisher) ([]*models.Finding, error) {
			publish.Progress(100, "done")
			return []*models.Finding{
				models.NewFinding(models.CapabilityExposureDiscovery, models.SeverityHigh, 70, "finding one", "d"),
			}, nil
		}), map[string]interface{}{"wordlist": "small"})
	registry.Register(models.CapabilityInfrastructureTest, collector.CollectorFunc(
		func(ctx context.Context, job *models.Job, publish collector.Publisher) ([]*models.Finding, error) {
			return nil, nil
		}), nil)
	registry.Register(models.CapabilityEmailSecurity, collector.CollectorFunc(
		func(ctx context.Context, job *models.Job, publish collector.Publisher) ([]*models.Finding, error) {
			return nil, nil
		}), nil)
	registry.Register(models.CapabilityNetworkSecurity, collector.CollectorFunc(
		func(ctx context.Context, job *models.Job, publish collector.Publisher) ([]*models.Finding, error) {
			return nil, errors.New("boom")
		}), nil)

	return New(queue.NewStore(100), bus.NewFindingBus(nil), bus.NewObserverRegistry(), registry, risk.NewEngine(), db, nil, common.GetLogger())
}

func TestCreateJobMergesDefaultConfigAndPublishesEvent(t *testing.T) {
	o := newTestOrchestrator(t)
	job, err := o.CreateJob(models.CapabilityExposureDiscovery, "example.com", map[string]interface{}{"extra": true}, models.PriorityNormal, "")
	require.NoError(t, err)
	assert.Equal(t, "small", job.Config["wordlist"])
	assert.Equal(t, true, job.Config["extra"])
	assert.Equal(t, models.JobStatusQueued, job.Status)

	recent := o.Events().Recent(1)
	require.Len(t, recent, 1)
	assert.Equal(t, models.SystemEventJobCreated, recent[0].Type)
}

func TestExecuteJobCompletesAndIndexesFindings(t *testing.T) {
	o := newTestOrchestrator(t)
	job, err := o.CreateJob(models.CapabilityExposureDiscovery, "example.com", nil, models.PriorityNormal, "user-1")
	require.NoError(t, err)

	require.NoError(t, o.ExecuteJob(context.Background(), job.ID))

	got, ok := o.queue.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	require.Len(t, got.Findings, 1)
	assert.Equal(t, job.ID, got.Findings[0].JobID)
	assert.Equal(t, 1, o.RiskIndex().Len())
}

func TestExecuteJobFailurePersistsErrorAndEmitsEvent(t *testing.T) {
	o := newTestOrchestrator(t)
	job, err := o.CreateJob(models.CapabilityNetworkSecurity, "example.com", nil, models.PriorityNormal, "")
	require.NoError(t, err)

	err = o.ExecuteJob(context.Background(), job.ID)
	require.Error(t, err)

	got, ok := o.queue.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
}

func TestExecuteJobNoCollectorRegisteredFailsJob(t *testing.T) {
	o := newTestOrchestrator(t)
	job, err := o.CreateJob(models.CapabilityInvestigation, "example.com", nil, models.PriorityNormal, "")
	require.NoError(t, err)

	err = o.ExecuteJob(context.Background(), job.ID)
	require.Error(t, err)

	got, ok := o.queue.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Contains(t, got.Error, "no collector registered")
}

func TestQuickScanAggregatesSequentialCollectors(t *testing.T) {
	o := newTestOrchestrator(t)
	summary, err := o.QuickScan(context.Background(), "example.com", "")
	require.NoError(t, err)
	assert.Len(t, summary.JobIDs, 3)
	assert.Len(t, summary.Findings, 1)
	assert.Equal(t, "example.com", summary.RiskScore.Target)
}
