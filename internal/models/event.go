package models

import "time"

// EventType enumerates the observer event shapes from §4.3.
type EventType string

const (
	EventTypeProgress  EventType = "progress"
	EventTypeFinding   EventType = "finding"
	EventTypeComplete  EventType = "complete"
	EventTypeError     EventType = "error"
	EventTypeSuperseded EventType = "superseded"
)

// Event is the envelope streamed to a job's observer sink. Only the
// fields relevant to Type are populated.
type Event struct {
	Type      EventType   `json:"type"`
	JobID     string      `json:"job_id"`
	Progress  int         `json:"progress,omitempty"`
	Message   string      `json:"message,omitempty"`
	Finding   *Finding    `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`

	// Complete-only fields.
	TotalFindings     int     `json:"total_findings,omitempty"`
	URLsCrawled       int     `json:"urls_crawled,omitempty"`
	TotalTimeSeconds  float64 `json:"total_time_seconds,omitempty"`
}

// NewProgressEvent builds a progress event.
func NewProgressEvent(jobID string, pct int, message string) Event {
	return Event{Type: EventTypeProgress, JobID: jobID, Progress: pct, Message: message, Timestamp: time.Now()}
}

// NewFindingEvent builds a finding event.
func NewFindingEvent(jobID string, f *Finding) Event {
	return Event{Type: EventTypeFinding, JobID: jobID, Finding: f, Timestamp: time.Now()}
}

// NewCompleteEvent builds a completion event.
func NewCompleteEvent(jobID string, totalFindings, urlsCrawled int, totalTime float64) Event {
	return Event{
		Type:             EventTypeComplete,
		JobID:            jobID,
		TotalFindings:    totalFindings,
		URLsCrawled:      urlsCrawled,
		TotalTimeSeconds: totalTime,
		Timestamp:        time.Now(),
	}
}

// NewErrorEvent builds an error event.
func NewErrorEvent(jobID string, err error) Event {
	return Event{Type: EventTypeError, JobID: jobID, Error: err.Error(), Timestamp: time.Now()}
}

// SystemEventType enumerates orchestrator-level (non-job-scoped) events.
type SystemEventType string

const (
	SystemEventJobCreated SystemEventType = "job_created"
	SystemEventJobFailed  SystemEventType = "job_failed"
)

// SystemEvent is a best-effort ring-buffered orchestrator notification
// (§4.13 step 5, §7).
type SystemEvent struct {
	Type      SystemEventType `json:"type"`
	JobID     string          `json:"job_id"`
	Detail    string          `json:"detail,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
