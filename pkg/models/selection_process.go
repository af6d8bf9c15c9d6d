package models

import (
	"time"

	"github.com/google/uuid"
)

// SelectionProcess tracks one application's progress through its job's stages.
// It is created together with the application. Once FinishedAt is set the
// process is terminal and never changes again.
//
// Version is bumped on every write and guards against concurrent transitions.
type SelectionProcess struct {
	ID             uuid.UUID  `db:"id"               json:"id"`
	ApplicationID  uuid.UUID  `db:"application_id"   json:"application_id"`
	CurrentStageID uuid.UUID  `db:"current_stage_id" json:"current_stage_id"`
	StartedAt      time.Time  `db:"started_at"       json:"started_at"`
	FinishedAt     *time.Time `db:"finished_at"      json:"finished_at,omitempty"`
	Version        int        `db:"version"          json:"version"`
}

// IsFinalized reports whether the process reached a terminal outcome.
func (p *SelectionProcess) IsFinalized() bool {
	return p.FinishedAt != nil
}

// StageHistoryEntry is one append-only audit record of a transition.
// Terminal transitions are recorded too, sometimes with FromStageID == ToStageID.
type StageHistoryEntry struct {
	ID          uuid.UUID `db:"id"            json:"id"`
	ProcessID   uuid.UUID `db:"process_id"    json:"process_id"`
	FromStageID uuid.UUID `db:"from_stage_id" json:"from_stage_id"`
	ToStageID   uuid.UUID `db:"to_stage_id"   json:"to_stage_id"`
	ActorID     uuid.UUID `db:"actor_id"      json:"actor_id"`
	Feedback    string    `db:"feedback"      json:"feedback"`
	CreatedAt   time.Time `db:"created_at"    json:"created_at"`
}

type NotificationKind string

const (
	NotifyAdvanced NotificationKind = "ADVANCED"
	NotifyAccepted NotificationKind = "ACCEPTED"
	NotifyRejected NotificationKind = "REJECTED"
)

// ApplicationCreated is published after an application and its selection
// process are committed.
type ApplicationCreated struct {
	ApplicationID uuid.UUID `json:"application_id"`
	JobID         uuid.UUID `json:"job_id"`
	CandidateID   uuid.UUID `json:"candidate_id"`
	ProcessID     uuid.UUID `json:"process_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}
