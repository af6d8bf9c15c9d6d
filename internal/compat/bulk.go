package compat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/apperr"
	"github.com/kiranshivaraju/hirepipe/internal/store"
	"github.com/kiranshivaraju/hirepipe/internal/worker"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

// BulkComputeForCandidate schedules a score computation for every open job
// the candidate has no score for. It returns as soon as the batch is queued.
func (s *Service) BulkComputeForCandidate(ctx context.Context, candidateID uuid.UUID) (*models.BatchStatus, error) {
	units, err := s.candidateUnits(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, models.BatchKindCandidate, candidateID, units)
}

// BulkComputeForJob schedules a score computation for every candidate that
// has no score for the job. A closed job yields an empty, completed batch.
func (s *Service) BulkComputeForJob(ctx context.Context, jobID uuid.UUID) (*models.BatchStatus, error) {
	units, err := s.jobUnits(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, models.BatchKindJob, jobID, units)
}

// RecomputeForJob drops the job's scores and schedules them again.
func (s *Service) RecomputeForJob(ctx context.Context, jobID uuid.UUID) (*models.BatchStatus, error) {
	if _, err := s.InvalidateForJob(ctx, jobID); err != nil {
		return nil, err
	}
	return s.BulkComputeForJob(ctx, jobID)
}

// RecomputeForCandidate drops the candidate's scores and schedules them again.
func (s *Service) RecomputeForCandidate(ctx context.Context, candidateID uuid.UUID) (*models.BatchStatus, error) {
	if _, err := s.InvalidateForCandidate(ctx, candidateID); err != nil {
		return nil, err
	}
	return s.BulkComputeForCandidate(ctx, candidateID)
}

// BackfillCandidate is the blocking form of BulkComputeForCandidate.
func (s *Service) BackfillCandidate(ctx context.Context, candidateID uuid.UUID) (worker.Result, error) {
	units, err := s.candidateUnits(ctx, candidateID)
	if err != nil {
		return worker.Result{}, err
	}
	return s.pool.Run(ctx, batchName(models.BatchKindCandidate, candidateID), units), nil
}

// BackfillJob is the blocking form of BulkComputeForJob.
func (s *Service) BackfillJob(ctx context.Context, jobID uuid.UUID) (worker.Result, error) {
	units, err := s.jobUnits(ctx, jobID)
	if err != nil {
		return worker.Result{}, err
	}
	return s.pool.Run(ctx, batchName(models.BatchKindJob, jobID), units), nil
}

// BatchStatus returns the counters of a batch started by this service.
func (s *Service) BatchStatus(ctx context.Context, batchID uuid.UUID) (*models.BatchStatus, error) {
	status, ok, err := s.cache.GetBatchStatus(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("get batch status: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("batch %s", batchID)
	}
	return status, nil
}

func (s *Service) candidateUnits(ctx context.Context, candidateID uuid.UUID) ([]worker.Unit, error) {
	if _, err := s.store.GetCandidate(ctx, candidateID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("candidate %s", candidateID)
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	jobIDs, err := s.store.ListJobsMissingScore(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list jobs missing score: %w", err)
	}

	units := make([]worker.Unit, 0, len(jobIDs))
	for _, jobID := range jobIDs {
		units = append(units, s.unit(candidateID, jobID))
	}
	return units, nil
}

func (s *Service) jobUnits(ctx context.Context, jobID uuid.UUID) ([]worker.Unit, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("job %s", jobID)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	// Closed jobs are never fanned out to.
	if !job.Open {
		return nil, nil
	}
	candidateIDs, err := s.store.ListCandidatesMissingScore(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list candidates missing score: %w", err)
	}

	units := make([]worker.Unit, 0, len(candidateIDs))
	for _, candidateID := range candidateIDs {
		units = append(units, s.unit(candidateID, jobID))
	}
	return units, nil
}

func (s *Service) unit(candidateID, jobID uuid.UUID) worker.Unit {
	return func(ctx context.Context) (models.ComputeOutcome, error) {
		_, outcome, err := s.ComputeAndStore(ctx, candidateID, jobID)
		if err != nil {
			return "", fmt.Errorf("candidate %s job %s: %w", candidateID, jobID, err)
		}
		return outcome, nil
	}
}

func (s *Service) submit(ctx context.Context, kind string, subjectID uuid.UUID, units []worker.Unit) (*models.BatchStatus, error) {
	status := &models.BatchStatus{
		ID:        uuid.New(),
		Kind:      kind,
		SubjectID: subjectID,
		State:     models.BatchStatePending,
		Total:     len(units),
		StartedAt: time.Now().UTC(),
	}

	if len(units) == 0 {
		finished := status.StartedAt
		status.State = models.BatchStateCompleted
		status.FinishedAt = &finished
		s.saveStatus(ctx, status)
		return status, nil
	}

	s.saveStatus(ctx, status)

	final := *status
	err := s.pool.Submit(batchName(kind, subjectID), units, func(res worker.Result) {
		finished := time.Now().UTC()
		final.State = models.BatchStateCompleted
		final.Succeeded = res.Succeeded
		final.Duplicates = res.Duplicates
		final.Failed = res.Failed
		final.FinishedAt = &finished

		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.saveStatus(saveCtx, &final)
	})
	if err != nil {
		return nil, fmt.Errorf("submit batch: %w", err)
	}

	slog.Info("compatibility batch queued", "batch_id", status.ID, "kind", kind, "subject_id", subjectID, "total", status.Total)
	return status, nil
}

func (s *Service) saveStatus(ctx context.Context, status *models.BatchStatus) {
	if err := s.cache.SetBatchStatus(ctx, status, s.cfg.BatchStatusTTL); err != nil {
		slog.Warn("batch status write failed", "batch_id", status.ID, "error", err)
	}
}

func batchName(kind string, subjectID uuid.UUID) string {
	return kind + ":" + subjectID.String()
}
