// Package models contains shared data models used across the hirepipe codebase.
package models

import (
	"context"

	"github.com/google/uuid"
)

// ScoringOracle is the external service that rates how well a candidate fits a job.
// Never call specific AI providers directly. Always inject this interface.
type ScoringOracle interface {
	// Score rates a candidate against a job posting. Results are not deterministic:
	// two calls for the same pair may disagree.
	Score(ctx context.Context, req ScoreRequest) (ScoreResult, error)
	// Name returns the provider identifier (e.g., "gemini", "openai").
	Name() string
}

// ScoreRequest is the input to a scoring call.
type ScoreRequest struct {
	Candidate CandidateProfile
	Job       JobPosting
}

// ScoreResult is the parsed oracle output. Score is an integer value in [0, 100].
type ScoreResult struct {
	Score         float64
	Justification string
	Model         string
}

// ScoreKey identifies one (candidate, job) pair.
type ScoreKey struct {
	CandidateID uuid.UUID
	JobID       uuid.UUID
}
