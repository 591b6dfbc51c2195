// Package orchestrator implements the Orchestrator (C13): job creation,
// execution, and the quick_scan convenience path, tying together the
// priority queue (C1), finding bus (C2), observer registry (C3), the
// collector registry (C4), the storage adapter (C12), and the risk
// engine (C11) (§4.13).
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/sentrywatch/threatwatch/internal/bus"
	"github.com/sentrywatch/threatwatch/internal/collector"
	"github.com/sentrywatch/threatwatch/internal/common"
	"github.com/sentrywatch/threatwatch/internal/models"
	"github.com/sentrywatch/threatwatch/internal/queue"
	"github.com/sentrywatch/threatwatch/internal/risk"
	"github.com/sentrywatch/threatwatch/internal/storage"
)

// quickScanCapabilities is the fixed sequence quick_scan runs, in order
// (§4.13: "sequentially executes Exposure, Infra, Email").
var quickScanCapabilities = []models.Capability{
	models.CapabilityExposureDiscovery,
	models.CapabilityInfrastructureTest,
	models.CapabilityEmailSecurity,
}

// QuickScanSummary aggregates the three sequential quick_scan runs.
type QuickScanSummary struct {
	Target     string             `json:"target"`
	JobIDs     []string           `json:"job_ids"`
	Findings   []*models.Finding  `json:"findings"`
	RiskScore  models.RiskScore   `json:"risk_score"`
}

// Orchestrator is the single composition point wiring every C-numbered
// component together; it replaces the source's global singletons (§9
// Design Notes) with an explicit, constructor-injected context.
type Orchestrator struct {
	queue      *queue.Store
	findingBus *bus.FindingBus
	observers  *bus.ObserverRegistry
	registry   *collector.Registry
	riskEngine *risk.Engine
	riskIndex  *RiskIndex
	events     *EventRing
	notifier   Notifier
	logger     arbor.ILogger

	db         *storage.DB
	jobStore   *storage.JobStore
	findingStore *storage.FindingStore
}

// New builds an Orchestrator. jobStore/findingStore should be
// admin-scoped (constructed with isAdmin=true): the orchestrator
// persists jobs/findings on behalf of whatever owner_user_id the job
// itself carries, per §4.12's "stamps user_id" contract living in the
// per-request store rather than here.
func New(q *queue.Store, findingBus *bus.FindingBus, observers *bus.ObserverRegistry, registry *collector.Registry, riskEngine *risk.Engine, db *storage.DB, notifier Notifier, logger arbor.ILogger) *Orchestrator {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Orchestrator{
		queue:        q,
		findingBus:   findingBus,
		observers:    observers,
		registry:     registry,
		riskEngine:   riskEngine,
		riskIndex:    NewRiskIndex(),
		events:       NewEventRing(),
		notifier:     notifier,
		logger:       logger,
		db:           db,
		jobStore:     storage.NewJobStore(db, "", true),
		findingStore: storage.NewFindingStore(db, "", true),
	}
}

// Events exposes the best-effort system-event ring for diagnostics/tests.
func (o *Orchestrator) Events() *EventRing { return o.events }

// RiskIndex exposes the risk-sorted findings cache.
func (o *Orchestrator) RiskIndex() *RiskIndex { return o.riskIndex }

// CreateJob implements create_job (§4.13).
func (o *Orchestrator) CreateJob(capability models.Capability, target string, config map[string]interface{}, priority models.Priority, userID string) (*models.Job, error) {
	id := common.NewJobID()
	merged := o.registry.MergeConfig(capability, config)

	job := models.NewJob(id, capability, target, priority, merged, map[string]interface{}{})
	job.OwnerUserID = userID
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("invalid job: %w", err)
	}

	if err := o.queue.Put(job); err != nil {
		return nil, err
	}
	job.Status = models.JobStatusQueued
	_ = o.queue.UpdateStatus(job.ID, models.JobStatusQueued)
	if err := o.jobStore.Save(job); err != nil {
		o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to persist created job, in-memory state proceeds")
	}

	o.events.Publish(models.SystemEvent{Type: models.SystemEventJobCreated, JobID: job.ID, Timestamp: time.Now()})
	return job, nil
}

// ExecuteJob implements execute_job (§4.13): resolves the job, invokes
// its collector, and drives the job through to a terminal status.
func (o *Orchestrator) ExecuteJob(ctx context.Context, jobID string) error {
	job, ok := o.queue.Get(jobID)
	if !ok {
		return fmt.Errorf("job %s not found", jobID)
	}

	if !job.Status.CanTransition(models.JobStatusRunning) {
		return fmt.Errorf("job %s cannot move from %s to running", job.ID, job.Status)
	}
	job.Status = models.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	_ = o.queue.UpdateStatus(job.ID, models.JobStatusRunning)
	o.persistJob(job)

	publisher := collector.NewJobPublisher(job, o.findingBus, o.observers, o.logger)

	// A capability with no registered collector still needs to drive the
	// job to a terminal status (§4.13 step 5): fall through the same
	// failure path col.Run's own errors take, rather than returning
	// early and leaving the job stuck in running.
	col, ok := o.registry.Lookup(job.Capability)
	var findings []*models.Finding
	var runErr error
	if !ok {
		runErr = fmt.Errorf("no collector registered for capability %s", job.Capability)
	} else {
		findings, runErr = col.Run(ctx, job, publisher)
	}
	for _, f := range findings {
		f.WithJob(job.ID, job.Target)
		job.Findings = append(job.Findings, f)
		o.riskIndex.Insert(f)
		if err := o.findingStore.Save(f, job.OwnerUserID); err != nil {
			o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to persist finding, in-memory state proceeds")
		}
		if job.OwnerUserID != "" && (f.Severity == models.SeverityCritical || f.Severity == models.SeverityHigh) {
			o.notifier.NotifyFinding(job.OwnerUserID, job, f)
		}
	}

	if runErr != nil {
		job.Status = models.JobStatusFailed
		job.Error = runErr.Error()
		_ = o.queue.UpdateStatus(job.ID, models.JobStatusFailed)
		o.persistJob(job)
		o.events.Publish(models.SystemEvent{Type: models.SystemEventJobFailed, JobID: job.ID, Detail: runErr.Error(), Timestamp: time.Now()})
		if job.OwnerUserID != "" {
			o.notifier.NotifyFailure(job.OwnerUserID, job)
		}
		if o.observers != nil {
			o.observers.Publish(job.ID, models.NewErrorEvent(job.ID, runErr))
			o.observers.CloseJob(job.ID)
		}
		return runErr
	}

	job.Status = models.JobStatusCompleted
	job.Progress = 100
	completed := time.Now()
	job.CompletedAt = &completed
	_ = o.queue.UpdateStatus(job.ID, models.JobStatusCompleted)
	o.persistJob(job)
	if job.OwnerUserID != "" {
		o.notifier.NotifyCompletion(job.OwnerUserID, job)
	}
	if o.observers != nil {
		o.observers.Publish(job.ID, models.NewCompleteEvent(job.ID, len(findings), 0, time.Since(*job.StartedAt).Seconds()))
		o.observers.CloseJob(job.ID)
	}
	return nil
}

func (o *Orchestrator) persistJob(job *models.Job) {
	if err := o.jobStore.Save(job); err != nil {
		o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to persist job, in-memory state proceeds")
	}
}

// QuickScan implements quick_scan(domain): runs Exposure, Infra, and
// Email sequentially at high priority and aggregates the result (§4.13).
func (o *Orchestrator) QuickScan(ctx context.Context, domain, userID string) (*QuickScanSummary, error) {
	summary := &QuickScanSummary{Target: domain}

	for _, cap := range quickScanCapabilities {
		job, err := o.CreateJob(cap, domain, nil, models.PriorityHigh, userID)
		if err != nil {
			return summary, fmt.Errorf("quick_scan: create %s job: %w", cap, err)
		}
		o.queue.Remove(job.ID) // quick_scan drives execution directly, bypassing the queue pop loop
		summary.JobIDs = append(summary.JobIDs, job.ID)

		if err := o.ExecuteJob(ctx, job.ID); err != nil {
			o.logger.Warn().Err(err).Str("job_id", job.ID).Str("capability", string(cap)).Msg("quick_scan step failed, continuing")
			continue
		}
		summary.Findings = append(summary.Findings, job.Findings...)
	}

	summary.RiskScore = o.riskEngine.Calculate(domain, summary.Findings)
	return summary, nil
}
