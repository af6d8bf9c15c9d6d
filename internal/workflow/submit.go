package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/apperr"
	"github.com/kiranshivaraju/hirepipe/internal/store"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

// Submission is a newly created application together with its process.
type Submission struct {
	Application *models.Application     `json:"application"`
	Process     *models.SelectionProcess `json:"process"`
}

// SubmitApplication creates an application and its selection process, or
// nothing at all. The compatibility score is obtained before the transaction
// opens so no oracle call holds database locks.
func (s *Service) SubmitApplication(ctx context.Context, jobID, candidateID uuid.UUID) (*Submission, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("job %s", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if !job.Open {
		return nil, apperr.Violation("job %s is not accepting applications", jobID)
	}

	if _, err := s.store.GetCandidate(ctx, candidateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("candidate %s", candidateID)
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}

	exists, err := s.store.ApplicationExists(ctx, jobID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("check application: %w", err)
	}
	if exists {
		return nil, duplicateApplication(jobID, candidateID)
	}

	score, err := s.scores.GetOrCompute(ctx, candidateID, jobID)
	if err != nil {
		return nil, fmt.Errorf("compatibility score: %w", err)
	}

	now := s.now()
	app := &models.Application{
		ID:                    uuid.New(),
		JobID:                 jobID,
		CandidateID:           candidateID,
		Status:                models.ApplicationPending,
		AppliedAt:             now,
		CompatibilitySnapshot: score.Score,
		UpdatedAt:             now,
	}
	var process *models.SelectionProcess

	err = s.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.CreateApplication(ctx, app); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				return duplicateApplication(jobID, candidateID)
			}
			return fmt.Errorf("create application: %w", err)
		}

		stages, err := tx.ListStagesByJob(ctx, jobID)
		if err != nil {
			return fmt.Errorf("list stages: %w", err)
		}
		if len(stages) == 0 {
			return apperr.Violation("job %s has no stages configured", jobID)
		}

		process = &models.SelectionProcess{
			ID:             uuid.New(),
			ApplicationID:  app.ID,
			CurrentStageID: stages[0].ID,
			StartedAt:      now,
		}
		if err := tx.CreateProcess(ctx, process); err != nil {
			return fmt.Errorf("create process: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("application submitted",
		"application_id", app.ID,
		"job_id", jobID,
		"candidate_id", candidateID,
		"compatibility", app.CompatibilitySnapshot,
	)

	event := models.ApplicationCreated{
		ApplicationID: app.ID,
		JobID:         jobID,
		CandidateID:   candidateID,
		ProcessID:     process.ID,
		OccurredAt:    now,
	}
	if err := s.publisher.PublishApplicationCreated(ctx, event); err != nil {
		slog.Warn("application_created publish failed", "application_id", app.ID, "error", err)
	}

	return &Submission{Application: app, Process: process}, nil
}

func duplicateApplication(jobID, candidateID uuid.UUID) error {
	return apperr.Violation("candidate %s already applied to job %s", candidateID, jobID)
}
