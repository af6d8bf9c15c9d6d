package events

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

// LogPublisher writes events to the structured log. Used when no broker is
// configured.
type LogPublisher struct{}

func (LogPublisher) PublishApplicationCreated(_ context.Context, event models.ApplicationCreated) error {
	slog.Info("event application_created",
		"application_id", event.ApplicationID,
		"job_id", event.JobID,
		"candidate_id", event.CandidateID,
		"process_id", event.ProcessID,
	)
	return nil
}

func (LogPublisher) Notify(_ context.Context, applicationID uuid.UUID, kind models.NotificationKind, feedback string) error {
	slog.Info("notification", "application_id", applicationID, "kind", kind, "feedback_length", len(feedback))
	return nil
}

var (
	_ Publisher = LogPublisher{}
	_ Notifier  = LogPublisher{}
)
