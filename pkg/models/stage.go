package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type StageType string

const (
	StageScreening     StageType = "SCREENING"
	StageInterview     StageType = "INTERVIEW"
	StageTechnicalTest StageType = "TECHNICAL_TEST"
	StageAssessment    StageType = "ASSESSMENT"
	StageOffer         StageType = "OFFER"
	StageOther         StageType = "OTHER"
)

// IsValid reports whether t is a known stage type.
func (t StageType) IsValid() bool {
	switch t {
	case StageScreening, StageInterview, StageTechnicalTest, StageAssessment, StageOffer, StageOther:
		return true
	default:
		return false
	}
}

type StageStatus string

const (
	StagePending    StageStatus = "PENDING"
	StageInProgress StageStatus = "IN_PROGRESS"
	StageConcluded  StageStatus = "CONCLUDED"
)

// StageDefinition is one step of a job's hiring pipeline. Order is unique per job.
type StageDefinition struct {
	ID          uuid.UUID   `db:"id"          json:"id"`
	JobID       uuid.UUID   `db:"job_id"      json:"job_id"`
	Name        string      `db:"name"        json:"name"`
	Description string      `db:"description" json:"description"`
	Type        StageType   `db:"type"        json:"type"`
	Order       int         `db:"stage_order" json:"order"`
	Status      StageStatus `db:"status"      json:"status"`
	StartedAt   *time.Time  `db:"started_at"  json:"started_at,omitempty"`
	EndedAt     *time.Time  `db:"ended_at"    json:"ended_at,omitempty"`
}

// SortStages orders stages ascending by Order, in place.
func SortStages(stages []StageDefinition) {
	sort.SliceStable(stages, func(i, j int) bool { return stages[i].Order < stages[j].Order })
}
