package collector

import (
	"sync"
	"sync/atomic"

	"github.com/ternarybob/arbor"

	"github.com/sentrywatch/threatwatch/internal/bus"
	"github.com/sentrywatch/threatwatch/internal/models"
)

// JobPublisher is the concrete Publisher the orchestrator hands to a
// collector for one job run. Progress and findings flow through the
// shared FindingBus/ObserverRegistry; logs are appended directly to the
// job's execution log under a dedicated mutex (§4.4).
type JobPublisher struct {
	job       *models.Job
	findingBus *bus.FindingBus
	observers *bus.ObserverRegistry
	logger    arbor.ILogger

	logMu       sync.Mutex
	lastPct     int32
	done        chan struct{}
	closeOnce   sync.Once
}

// NewJobPublisher builds a Publisher for job.
func NewJobPublisher(job *models.Job, findingBus *bus.FindingBus, observers *bus.ObserverRegistry, logger arbor.ILogger) *JobPublisher {
	return &JobPublisher{
		job:        job,
		findingBus: findingBus,
		observers:  observers,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Progress implements Publisher.
func (p *JobPublisher) Progress(pct int, message string) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	// Monotonic within a run (§4.4); repeats are allowed, decreases are not.
	for {
		cur := atomic.LoadInt32(&p.lastPct)
		if int32(pct) < cur {
			pct = int(cur)
		}
		if atomic.CompareAndSwapInt32(&p.lastPct, cur, int32(pct)) {
			break
		}
	}
	p.job.Progress = pct
	if p.observers != nil {
		p.observers.Publish(p.job.ID, models.NewProgressEvent(p.job.ID, pct, message))
	}
	if p.logger != nil {
		p.logger.Debug().Str("job_id", p.job.ID).Int("progress", pct).Msg(message)
	}
}

// Finding implements Publisher: appends to the bus (which also fans out
// to the observer) exactly once.
func (p *JobPublisher) Finding(f *models.Finding) {
	f.WithJob(p.job.ID, p.job.Target)
	p.findingBus.Add(p.job.ID, f)
}

// Log implements Publisher.
func (p *JobPublisher) Log(level, msg string, data map[string]interface{}) {
	p.logMu.Lock()
	p.job.AppendLog(level, msg, data)
	p.logMu.Unlock()

	if p.logger == nil {
		return
	}
	entry := p.logger.Info()
	switch level {
	case "warn":
		entry = p.logger.Warn()
	case "error":
		entry = p.logger.Error()
	}
	entry.Str("job_id", p.job.ID).Msg(msg)
}

// Done implements Publisher.
func (p *JobPublisher) Done() <-chan struct{} {
	return p.done
}

// Cancel signals the collector to stop as soon as practical (§4.4, §5).
func (p *JobPublisher) Cancel() {
	p.closeOnce.Do(func() { close(p.done) })
}
