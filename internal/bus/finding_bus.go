// Package bus implements the Finding Bus (C2) and Observer Channel
// Registry (C3): per-job mutex-protected finding storage with snapshot
// reads, fanned out to best-effort non-blocking observer sinks (§4.2,
// §4.3, §5).
package bus

import (
	"sync"
	"time"

	"github.com/sentrywatch/threatwatch/internal/models"
)

type jobFindings struct {
	mu       sync.RWMutex
	findings []*models.Finding
	lastTime time.Time
}

// FindingBus holds the append-only, per-job finding lists. It is an
// in-memory cache in front of the storage adapter (C12), which is the
// system of record (§9 Open Questions).
type FindingBus struct {
	mu   sync.Mutex // guards the top-level map only; per-job lock guards contents
	jobs map[string]*jobFindings

	observers *ObserverRegistry // optional: findings are also pushed to subscribers
}

// NewFindingBus creates an empty bus, optionally wired to an observer
// registry for live fan-out.
func NewFindingBus(observers *ObserverRegistry) *FindingBus {
	return &FindingBus{
		jobs:      map[string]*jobFindings{},
		observers: observers,
	}
}

func (b *FindingBus) bucket(jobID string) *jobFindings {
	b.mu.Lock()
	defer b.mu.Unlock()
	jf, ok := b.jobs[jobID]
	if !ok {
		jf = &jobFindings{}
		b.jobs[jobID] = jf
	}
	return jf
}

// Add appends a single finding under the per-job lock, stamping
// DiscoveredAt monotonically non-decreasing relative to prior findings
// for the same job (§4.2).
func (b *FindingBus) Add(jobID string, f *models.Finding) {
	jf := b.bucket(jobID)
	jf.mu.Lock()
	now := time.Now()
	if !now.After(jf.lastTime) {
		now = jf.lastTime.Add(time.Nanosecond)
	}
	f.DiscoveredAt = now
	jf.lastTime = now
	jf.findings = append(jf.findings, f)
	jf.mu.Unlock()

	if b.observers != nil {
		b.observers.Publish(jobID, models.NewFindingEvent(jobID, f))
	}
}

// AddMany atomically bulk-appends findings in order.
func (b *FindingBus) AddMany(jobID string, findings []*models.Finding) {
	jf := b.bucket(jobID)
	jf.mu.Lock()
	for _, f := range findings {
		f.DiscoveredAt = time.Now()
		if !f.DiscoveredAt.After(jf.lastTime) {
			f.DiscoveredAt = jf.lastTime.Add(time.Nanosecond)
		}
		jf.lastTime = f.DiscoveredAt
		jf.findings = append(jf.findings, f)
	}
	jf.mu.Unlock()

	for _, f := range findings {
		if b.observers != nil {
			b.observers.Publish(jobID, models.NewFindingEvent(jobID, f))
		}
	}
}

// GetSince returns findings for jobID discovered strictly after the
// given time, as a point-in-time snapshot: concurrent appends made after
// the snapshot is taken are not included (§4.2).
func (b *FindingBus) GetSince(jobID string, after time.Time) []*models.Finding {
	b.mu.Lock()
	jf, ok := b.jobs[jobID]
	b.mu.Unlock()
	if !ok {
		return nil
	}

	jf.mu.RLock()
	defer jf.mu.RUnlock()

	out := make([]*models.Finding, 0, len(jf.findings))
	for _, f := range jf.findings {
		if f.DiscoveredAt.After(after) {
			out = append(out, f)
		}
	}
	return out
}

// All returns every finding recorded for jobID, in append order.
func (b *FindingBus) All(jobID string) []*models.Finding {
	return b.GetSince(jobID, time.Time{})
}

// Count returns the number of findings recorded for jobID.
func (b *FindingBus) Count(jobID string) int {
	b.mu.Lock()
	jf, ok := b.jobs[jobID]
	b.mu.Unlock()
	if !ok {
		return 0
	}
	jf.mu.RLock()
	defer jf.mu.RUnlock()
	return len(jf.findings)
}
