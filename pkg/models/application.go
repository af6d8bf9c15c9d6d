package models

import (
	"time"

	"github.com/google/uuid"
)

type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "PENDING"
	ApplicationInProcess ApplicationStatus = "IN_PROCESS"
	ApplicationAccepted  ApplicationStatus = "ACCEPTED"
	ApplicationRejected  ApplicationStatus = "REJECTED"
	ApplicationWithdrawn ApplicationStatus = "WITHDRAWN"
)

// Application is a candidate's application to a job. There is at most one per
// (job, candidate) pair, whatever its status.
//
// CompatibilitySnapshot is copied from the compatibility score when the
// application is created and never follows later recomputations.
type Application struct {
	ID                    uuid.UUID         `db:"id"                     json:"id"`
	JobID                 uuid.UUID         `db:"job_id"                 json:"job_id"`
	CandidateID           uuid.UUID         `db:"candidate_id"           json:"candidate_id"`
	Status                ApplicationStatus `db:"status"                 json:"status"`
	AppliedAt             time.Time         `db:"applied_at"             json:"applied_at"`
	CompatibilitySnapshot float64           `db:"compatibility_snapshot" json:"compatibility_snapshot"`
	UpdatedAt             time.Time         `db:"updated_at"             json:"updated_at"`
}
