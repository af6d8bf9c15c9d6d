package models

import (
	"time"

	"github.com/google/uuid"
)

// JobPosting is the job side of a compatibility score. Only open postings
// accept applications and take part in candidate backfills.
type JobPosting struct {
	ID           uuid.UUID `db:"id"           json:"id"`
	Title        string    `db:"title"        json:"title"`
	Description  string    `db:"description"  json:"description"`
	Requirements string    `db:"requirements" json:"requirements"`
	Location     string    `db:"location"     json:"location"`
	Open         bool      `db:"open"         json:"open"`
	CreatedAt    time.Time `db:"created_at"   json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"   json:"updated_at"`
}

// CandidateProfile is the candidate side of a compatibility score.
type CandidateProfile struct {
	ID              uuid.UUID `db:"id"               json:"id"`
	Name            string    `db:"name"             json:"name"`
	Headline        string    `db:"headline"         json:"headline"`
	Summary         string    `db:"summary"          json:"summary"`
	Skills          []string  `db:"skills"           json:"skills"`
	ExperienceYears int       `db:"experience_years" json:"experience_years"`
	CreatedAt       time.Time `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"       json:"updated_at"`
}
