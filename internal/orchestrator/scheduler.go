package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/sentrywatch/threatwatch/internal/models"
)

// RecurringScan is one cron-scheduled job registered with the
// scheduler (§6 SchedulerConfig; grounded on the teacher's
// robfig/cron-backed scheduler service).
type RecurringScan struct {
	Name       string
	CronExpr   string
	Capability models.Capability
	Target     string
	Priority   models.Priority
	UserID     string
}

// Scheduler drives recurring scans on a cron schedule, creating a fresh
// job through the orchestrator on each firing rather than holding any
// execution state of its own.
type Scheduler struct {
	orch   *Orchestrator
	cron   *cron.Cron
	logger arbor.ILogger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewScheduler builds a Scheduler bound to orch.
func NewScheduler(orch *Orchestrator, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		orch:    orch,
		cron:    cron.New(),
		logger:  logger,
		entries: map[string]cron.EntryID{},
	}
}

// Register adds a recurring scan under its cron expression. Safe to call
// before or after Start.
func (s *Scheduler) Register(scan RecurringScan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[scan.Name]; exists {
		return fmt.Errorf("recurring scan %q already registered", scan.Name)
	}

	id, err := s.cron.AddFunc(scan.CronExpr, func() {
		job, err := s.orch.CreateJob(scan.Capability, scan.Target, nil, scan.Priority, scan.UserID)
		if err != nil {
			s.logger.Warn().Err(err).Str("scan", scan.Name).Msg("recurring scan failed to create job")
			return
		}
		s.logger.Info().Str("scan", scan.Name).Str("job_id", job.ID).Msg("recurring scan created job")
	})
	if err != nil {
		return fmt.Errorf("parse cron expression %q: %w", scan.CronExpr, err)
	}
	s.entries[scan.Name] = id
	return nil
}

// Unregister removes a previously-registered recurring scan.
func (s *Scheduler) Unregister(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
}

// Start begins firing registered entries on their schedules.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	go func() {
		<-ctx.Done()
		stopCtx := s.cron.Stop()
		<-stopCtx.Done()
	}()
}
