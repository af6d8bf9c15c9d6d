// Package compat owns the (candidate, job) compatibility score mapping.
//
// Scores are persisted at most once per pair. The oracle may be called more
// than once for the same pair under concurrency; the store's unique key picks
// a single winner and every loser re-reads the winner's row. Redis holds a
// read-through copy that is never authoritative.
package compat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/apperr"
	"github.com/kiranshivaraju/hirepipe/internal/cache"
	"github.com/kiranshivaraju/hirepipe/internal/oracle"
	"github.com/kiranshivaraju/hirepipe/internal/store"
	"github.com/kiranshivaraju/hirepipe/internal/worker"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

const defaultBatchStatusTTL = 24 * time.Hour

type Config struct {
	OracleTimeout  time.Duration
	ScoreTTL       time.Duration
	BatchStatusTTL time.Duration
}

// Service is the compatibility cache engine.
type Service struct {
	store  store.Store
	cache  cache.Cache
	oracle models.ScoringOracle
	pool   *worker.Pool
	cfg    Config
}

func NewService(st store.Store, ca cache.Cache, or models.ScoringOracle, pool *worker.Pool, cfg Config) *Service {
	if cfg.BatchStatusTTL <= 0 {
		cfg.BatchStatusTTL = defaultBatchStatusTTL
	}
	return &Service{store: st, cache: ca, oracle: or, pool: pool, cfg: cfg}
}

// Get returns the persisted score without ever computing one.
func (s *Service) Get(ctx context.Context, candidateID, jobID uuid.UUID) (*models.CompatibilityScore, bool, error) {
	if cached, ok, err := s.cache.GetScore(ctx, candidateID, jobID); err != nil {
		slog.Warn("score cache read failed", "candidate_id", candidateID, "job_id", jobID, "error", err)
	} else if ok {
		return cached, true, nil
	}

	score, err := s.store.GetScore(ctx, candidateID, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get score: %w", err)
	}

	s.refill(ctx, score)
	return score, true, nil
}

// GetOrCompute returns the existing score or computes it synchronously.
// Oracle failures are returned to the caller and nothing is persisted.
func (s *Service) GetOrCompute(ctx context.Context, candidateID, jobID uuid.UUID) (*models.CompatibilityScore, error) {
	score, ok, err := s.Get(ctx, candidateID, jobID)
	if err != nil {
		return nil, err
	}
	if ok {
		return score, nil
	}
	score, _, err = s.ComputeAndStore(ctx, candidateID, jobID)
	return score, err
}

// ComputeAndStore calls the oracle and persists its verdict unless a score
// already exists. A lost insert race is not an error: the winner's row is
// returned with OutcomeDuplicate.
func (s *Service) ComputeAndStore(ctx context.Context, candidateID, jobID uuid.UUID) (*models.CompatibilityScore, models.ComputeOutcome, error) {
	// Only the store may short-circuit: a cached copy can outlive its row.
	existing, err := s.store.GetScore(ctx, candidateID, jobID)
	switch {
	case err == nil:
		s.refill(ctx, existing)
		return existing, models.OutcomeCached, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, "", fmt.Errorf("get score: %w", err)
	}

	candidate, err := s.store.GetCandidate(ctx, candidateID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", apperr.NotFound("candidate %s", candidateID)
	}
	if err != nil {
		return nil, "", fmt.Errorf("get candidate: %w", err)
	}
	job, err := s.store.GetJob(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", apperr.NotFound("job %s", jobID)
	}
	if err != nil {
		return nil, "", fmt.Errorf("get job: %w", err)
	}

	result, err := s.score(ctx, candidate, job)
	if err != nil {
		return nil, "", err
	}

	record := &models.CompatibilityScore{
		CandidateID:   candidateID,
		JobID:         jobID,
		Score:         result.Score,
		Justification: result.Justification,
		Provider:      s.oracle.Name(),
		ComputedAt:    time.Now().UTC(),
	}

	err = s.store.InsertScore(ctx, record)
	switch {
	case errors.Is(err, store.ErrDuplicateKey):
		winner, rerr := s.store.GetScore(ctx, candidateID, jobID)
		if rerr != nil {
			return nil, "", fmt.Errorf("re-read winning score: %w", rerr)
		}
		slog.Debug("score insert lost race", "candidate_id", candidateID, "job_id", jobID)
		s.refill(ctx, winner)
		return winner, models.OutcomeDuplicate, nil
	case err != nil:
		return nil, "", fmt.Errorf("insert score: %w", err)
	}

	s.refill(ctx, record)
	slog.Info("compatibility score computed",
		"candidate_id", candidateID,
		"job_id", jobID,
		"score", record.Score,
		"provider", record.Provider,
	)
	return record, models.OutcomeComputed, nil
}

func (s *Service) score(ctx context.Context, candidate *models.CandidateProfile, job *models.JobPosting) (models.ScoreResult, error) {
	scoreCtx, cancel := context.WithTimeout(ctx, s.cfg.OracleTimeout)
	defer cancel()

	result, err := s.oracle.Score(scoreCtx, models.ScoreRequest{Candidate: *candidate, Job: *job})
	if err != nil {
		if errors.Is(scoreCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, oracle.ErrInferenceTimeout) {
			return models.ScoreResult{}, fmt.Errorf("%w: %v", oracle.ErrInferenceTimeout, err)
		}
		return models.ScoreResult{}, err
	}
	if result.Score < 0 || result.Score > 100 {
		return models.ScoreResult{}, fmt.Errorf("%w: score %v out of range", oracle.ErrInvalidResponse, result.Score)
	}
	return result, nil
}

// InvalidateForCandidate hard-deletes every score of the candidate and their
// cached copies, returning the number of rows removed.
func (s *Service) InvalidateForCandidate(ctx context.Context, candidateID uuid.UUID) (int64, error) {
	n, err := s.store.DeleteScoresByCandidate(ctx, candidateID)
	if err != nil {
		return 0, fmt.Errorf("delete candidate scores: %w", err)
	}
	s.evict(ctx, cache.CandidateScorePattern(candidateID))
	slog.Info("compatibility scores invalidated", "candidate_id", candidateID, "removed", n)
	return n, nil
}

// InvalidateForJob hard-deletes every score of the job and their cached copies.
func (s *Service) InvalidateForJob(ctx context.Context, jobID uuid.UUID) (int64, error) {
	n, err := s.store.DeleteScoresByJob(ctx, jobID)
	if err != nil {
		return 0, fmt.Errorf("delete job scores: %w", err)
	}
	s.evict(ctx, cache.JobScorePattern(jobID))
	slog.Info("compatibility scores invalidated", "job_id", jobID, "removed", n)
	return n, nil
}

func (s *Service) refill(ctx context.Context, score *models.CompatibilityScore) {
	if err := s.cache.SetScore(ctx, score, s.cfg.ScoreTTL); err != nil {
		slog.Warn("score cache write failed", "candidate_id", score.CandidateID, "job_id", score.JobID, "error", err)
	}
}

func (s *Service) evict(ctx context.Context, pattern string) {
	if _, err := s.cache.DeletePattern(ctx, pattern); err != nil {
		slog.Warn("score cache eviction failed", "pattern", pattern, "error", err)
	}
}
