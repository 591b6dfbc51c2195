package bus

import (
	"sync"

	"github.com/sentrywatch/threatwatch/internal/models"
)

// sinkBufferSize bounds the per-job observer channel; a full buffer means
// the producer drops the event rather than block (§4.3, §5).
const sinkBufferSize = 256

// Sink is a single-producer channel of observer events for one job.
type Sink <-chan models.Event

// ObserverRegistry maps job_id -> observer sink, enforcing at most one
// subscriber per job (§4.3).
type ObserverRegistry struct {
	mu   sync.Mutex
	subs map[string]chan models.Event
}

// NewObserverRegistry creates an empty registry.
func NewObserverRegistry() *ObserverRegistry {
	return &ObserverRegistry{subs: map[string]chan models.Event{}}
}

// Subscribe returns a sink for jobID. A second Subscribe for the same job
// replaces the first, closing it after delivering a SUPERSEDED marker.
func (r *ObserverRegistry) Subscribe(jobID string) Sink {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, exists := r.subs[jobID]; exists {
		select {
		case old <- models.Event{Type: models.EventTypeSuperseded, JobID: jobID}:
		default:
		}
		close(old)
	}

	ch := make(chan models.Event, sinkBufferSize)
	r.subs[jobID] = ch
	return ch
}

// Unsubscribe closes and removes jobID's sink, if it is still the
// registered one (a stale unsubscribe after a supersede is a no-op).
func (r *ObserverRegistry) Unsubscribe(jobID string, sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.subs[jobID]
	if !ok || !chanEqual(ch, sink) {
		return
	}
	delete(r.subs, jobID)
	close(ch)
}

func chanEqual(ch chan models.Event, sink Sink) bool {
	// Channel identity comparison: convert both to the same directional
	// type so == compares the underlying channel header.
	return (<-chan models.Event)(ch) == sink
}

// Publish delivers an event to jobID's sink without blocking; if no
// subscriber is registered, or the sink's buffer is full, the event is
// dropped (§4.3, §5). Collector work is never blocked by slow observers.
func (r *ObserverRegistry) Publish(jobID string, event models.Event) {
	r.mu.Lock()
	ch, ok := r.subs[jobID]
	r.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- event:
	default:
	}
}

// CloseJob unsubscribes jobID unconditionally, used once a job reaches a
// terminal state and no further events will be published.
func (r *ObserverRegistry) CloseJob(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.subs[jobID]; ok {
		delete(r.subs, jobID)
		close(ch)
	}
}
