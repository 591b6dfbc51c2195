package orchestrator

import (
	"github.com/ternarybob/arbor"

	"github.com/sentrywatch/threatwatch/internal/models"
)

// Notifier is the narrow seam between job execution and notification
// dispatch. Dispatch mechanics (email, push, in-app feed) are out of
// scope for this package (§1 Non-goals); execute_job only needs to know
// that a notification was raised.
type Notifier interface {
	NotifyFinding(userID string, job *models.Job, f *models.Finding)
	NotifyCompletion(userID string, job *models.Job)
	NotifyFailure(userID string, job *models.Job)
}

// noopNotifier discards every call; used when no user_id is known for a
// job, or when the caller wires no real notifier.
type noopNotifier struct{}

func (noopNotifier) NotifyFinding(string, *models.Job, *models.Finding) {}
func (noopNotifier) NotifyCompletion(string, *models.Job)               {}
func (noopNotifier) NotifyFailure(string, *models.Job)                  {}

// LoggingNotifier records notifications through the structured logger
// rather than an actual delivery channel, giving operators and tests a
// visible record of "a notification would have been sent" without this
// package taking on a dispatch dependency.
type LoggingNotifier struct {
	logger arbor.ILogger
}

// NewLoggingNotifier builds a LoggingNotifier over logger.
func NewLoggingNotifier(logger arbor.ILogger) *LoggingNotifier {
	return &LoggingNotifier{logger: logger}
}

// NotifyFinding implements Notifier.
func (n *LoggingNotifier) NotifyFinding(userID string, job *models.Job, f *models.Finding) {
	n.logger.Info().Str("job_id", job.ID).Str("user_id", userID).
		Str("severity", string(f.Severity)).Msg("notification: high-severity finding")
}

// NotifyCompletion implements Notifier.
func (n *LoggingNotifier) NotifyCompletion(userID string, job *models.Job) {
	n.logger.Info().Str("job_id", job.ID).Str("user_id", userID).Msg("notification: job completed")
}

// NotifyFailure implements Notifier.
func (n *LoggingNotifier) NotifyFailure(userID string, job *models.Job) {
	n.logger.Info().Str("job_id", job.ID).Str("user_id", userID).Msg("notification: job failed")
}
