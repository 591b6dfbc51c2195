package orchestrator

import (
	"sync"

	"github.com/sentrywatch/threatwatch/internal/models"
)

// systemEventRingCapacity is the best-effort system-event buffer size
// (§4.13 step 5, §7).
const systemEventRingCapacity = 1000

// EventRing is a fixed-capacity, best-effort circular buffer of system
// events. Once full, the oldest event is overwritten; nothing blocks a
// caller on a slow reader, mirroring the observer registry's drop-not-
// block posture (§5, §7).
type EventRing struct {
	mu     sync.Mutex
	buf    []models.SystemEvent
	cap    int
	start  int
	length int
}

// NewEventRing creates a ring buffer at the spec's default capacity.
func NewEventRing() *EventRing {
	return &EventRing{buf: make([]models.SystemEvent, systemEventRingCapacity), cap: systemEventRingCapacity}
}

// Publish appends event, overwriting the oldest entry once the ring is full.
func (r *EventRing) Publish(event models.SystemEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := (r.start + r.length) % r.cap
	r.buf[idx] = event
	if r.length < r.cap {
		r.length++
	} else {
		r.start = (r.start + 1) % r.cap
	}
}

// Recent returns up to n of the most recently published events, newest
// last.
func (r *EventRing) Recent(n int) []models.SystemEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > r.length {
		n = r.length
	}
	out := make([]models.SystemEvent, n)
	for i := 0; i < n; i++ {
		idx := (r.start + r.length - n + i) % r.cap
		out[i] = r.buf[idx]
	}
	return out
}

// Len returns the number of events currently held.
func (r *EventRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.length
}
