package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
)

// NotificationWorker processes notification jobs from the River queue.
// For now it logs the dispatch; future versions will render templates
// and hand off to mail/push providers. At-least-once semantics are
// acceptable, recipients tolerate duplicates.
type NotificationWorker struct {
	river.WorkerDefaults[NotificationJobArgs]
}

// Work processes a single notification job.
func (w *NotificationWorker) Work(ctx context.Context, job *river.Job[NotificationJobArgs]) error {
	slog.InfoContext(ctx, "dispatching notification",
		"kind", job.Args.NotificationKind,
		"registration_id", job.Args.RegistrationID,
		"event_id", job.Args.EventID,
		"user_id", job.Args.UserID,
		"status", job.Args.Status,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}
