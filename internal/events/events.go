// Package events carries what the core emits to the outside world: domain
// events for downstream workers and candidate notifications. Delivery is
// best-effort; callers log failures and move on.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

// Publisher emits domain events after the originating transaction commits.
type Publisher interface {
	PublishApplicationCreated(ctx context.Context, event models.ApplicationCreated) error
}

// Notifier tells a candidate about the outcome of a transition.
type Notifier interface {
	Notify(ctx context.Context, applicationID uuid.UUID, kind models.NotificationKind, feedback string) error
}

// Notification is the message body sent for every Notify call.
type Notification struct {
	ApplicationID uuid.UUID               `json:"application_id"`
	Kind          models.NotificationKind `json:"kind"`
	Feedback      string                  `json:"feedback,omitempty"`
	OccurredAt    time.Time               `json:"occurred_at"`
}
