package models

import (
	"time"

	"github.com/google/uuid"
)

// CompatibilityScore is the persisted oracle verdict for one (candidate, job) pair.
// Rows are written once and only ever removed by invalidation.
type CompatibilityScore struct {
	CandidateID   uuid.UUID `db:"candidate_id"  json:"candidate_id"`
	JobID         uuid.UUID `db:"job_id"        json:"job_id"`
	Score         float64   `db:"score"         json:"score"`
	Justification string    `db:"justification" json:"justification"`
	Provider      string    `db:"provider"      json:"provider"`
	ComputedAt    time.Time `db:"computed_at"   json:"computed_at"`
}

const (
	BatchKindCandidate = "candidate"
	BatchKindJob       = "job"

	BatchStatePending   = "pending"
	BatchStateCompleted = "completed"
)

// BatchStatus reports the progress of one bulk compatibility fan-out.
// Batches are fire-and-forget; this is the only way to observe them.
type BatchStatus struct {
	ID         uuid.UUID  `json:"id"`
	Kind       string     `json:"kind"`
	SubjectID  uuid.UUID  `json:"subject_id"`
	State      string     `json:"state"`
	Total      int        `json:"total"`
	Succeeded  int        `json:"succeeded"`
	Duplicates int        `json:"duplicates"`
	Failed     int        `json:"failed"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ComputeOutcome says how a compute request was resolved.
type ComputeOutcome string

const (
	// OutcomeComputed means this caller's oracle result was persisted.
	OutcomeComputed ComputeOutcome = "computed"
	// OutcomeDuplicate means another writer persisted first and its record was kept.
	OutcomeDuplicate ComputeOutcome = "duplicate"
	// OutcomeCached means a record already existed and the oracle was not called.
	OutcomeCached ComputeOutcome = "cached"
)
