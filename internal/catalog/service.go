// Package catalog maintains job postings, their stage pipelines and candidate
// profiles, and keeps compatibility scores in step with them: a new job is
// scored against every candidate, and editing a profile or posting drops and
// recomputes its scores.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/apperr"
	"github.com/kiranshivaraju/hirepipe/internal/config"
	"github.com/kiranshivaraju/hirepipe/internal/store"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

// Fanout schedules compatibility work in the background.
type Fanout interface {
	BulkComputeForJob(ctx context.Context, jobID uuid.UUID) (*models.BatchStatus, error)
	BulkComputeForCandidate(ctx context.Context, candidateID uuid.UUID) (*models.BatchStatus, error)
	RecomputeForJob(ctx context.Context, jobID uuid.UUID) (*models.BatchStatus, error)
	RecomputeForCandidate(ctx context.Context, candidateID uuid.UUID) (*models.BatchStatus, error)
}

// JobInput is the writable part of a job posting.
type JobInput struct {
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Requirements string       `json:"requirements"`
	Location     string       `json:"location"`
	Open         *bool        `json:"open,omitempty"`
	Stages       []StageInput `json:"stages,omitempty"`
}

type StageInput struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Type        models.StageType `json:"type"`
	Order       int              `json:"order"`
}

// CandidateInput is the writable part of a candidate profile.
type CandidateInput struct {
	Name            string   `json:"name"`
	Headline        string   `json:"headline"`
	Summary         string   `json:"summary"`
	Skills          []string `json:"skills"`
	ExperienceYears int      `json:"experience_years"`
}

// JobResult is a saved job with its pipeline and the batch scheduled for it.
// Batch is nil when no fan-out was needed or it could not be scheduled.
type JobResult struct {
	Job    *models.JobPosting       `json:"job"`
	Stages []models.StageDefinition `json:"stages,omitempty"`
	Batch  *models.BatchStatus      `json:"batch,omitempty"`
}

type CandidateResult struct {
	Candidate *models.CandidateProfile `json:"candidate"`
	Batch     *models.BatchStatus      `json:"batch,omitempty"`
}

type Service struct {
	store    store.Store
	fanout   Fanout
	template []config.StageTemplate
	now      func() time.Time
}

// NewService builds a catalog service. template is the pipeline given to jobs
// created without stages; it may be empty.
func NewService(st store.Store, fanout Fanout, template []config.StageTemplate) *Service {
	return &Service{
		store:    st,
		fanout:   fanout,
		template: template,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateJob stores a job and its stages together, then schedules scoring for
// every known candidate.
func (s *Service) CreateJob(ctx context.Context, in JobInput) (*JobResult, error) {
	if err := validateJob(in); err != nil {
		return nil, err
	}
	stageIn := in.Stages
	if len(stageIn) == 0 {
		stageIn = s.templateStages()
	}
	if err := validateStages(stageIn); err != nil {
		return nil, err
	}

	now := s.now()
	job := &models.JobPosting{
		ID:           uuid.New(),
		Title:        strings.TrimSpace(in.Title),
		Description:  in.Description,
		Requirements: in.Requirements,
		Location:     in.Location,
		Open:         in.Open == nil || *in.Open,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	stages := make([]models.StageDefinition, 0, len(stageIn))
	for _, st := range stageIn {
		typ := st.Type
		if typ == "" {
			typ = models.StageOther
		}
		stages = append(stages, models.StageDefinition{
			ID:          uuid.New(),
			JobID:       job.ID,
			Name:        strings.TrimSpace(st.Name),
			Description: st.Description,
			Type:        typ,
			Order:       st.Order,
			Status:      models.StagePending,
		})
	}
	models.SortStages(stages)

	err := s.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.CreateJob(ctx, job); err != nil {
			return fmt.Errorf("create job: %w", err)
		}
		if len(stages) == 0 {
			return nil
		}
		if err := tx.CreateStages(ctx, stages); err != nil {
			return fmt.Errorf("create stages: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(stages) == 0 {
		slog.Warn("job created without stages; applications will be refused", "job_id", job.ID)
	}
	slog.Info("job created", "job_id", job.ID, "stages", len(stages))

	res := &JobResult{Job: job, Stages: stages}
	if job.Open {
		res.Batch = s.schedule(ctx, "bulk compute for job", job.ID, func() (*models.BatchStatus, error) {
			return s.fanout.BulkComputeForJob(ctx, job.ID)
		})
	}
	return res, nil
}

// UpdateJob replaces a job's fields. Stages are not editable once created.
// Scores are recomputed only when content the oracle sees changed.
func (s *Service) UpdateJob(ctx context.Context, id uuid.UUID, in JobInput) (*JobResult, error) {
	if err := validateJob(in); err != nil {
		return nil, err
	}
	if len(in.Stages) > 0 {
		return nil, apperr.Violation("stages of job %s cannot be changed", id)
	}

	current, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	updated.Title = strings.TrimSpace(in.Title)
	updated.Description = in.Description
	updated.Requirements = in.Requirements
	updated.Location = in.Location
	if in.Open != nil {
		updated.Open = *in.Open
	}
	updated.UpdatedAt = s.now()

	if err := s.store.UpdateJob(ctx, &updated); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("job %s", id)
		}
		return nil, fmt.Errorf("update job: %w", err)
	}

	res := &JobResult{Job: &updated}
	switch {
	case jobContentChanged(current, &updated):
		res.Batch = s.schedule(ctx, "recompute for job", id, func() (*models.BatchStatus, error) {
			return s.fanout.RecomputeForJob(ctx, id)
		})
	case updated.Open && !current.Open:
		res.Batch = s.schedule(ctx, "bulk compute for job", id, func() (*models.BatchStatus, error) {
			return s.fanout.BulkComputeForJob(ctx, id)
		})
	}
	return res, nil
}

// UpsertCandidate creates or replaces a candidate profile. A new candidate is
// scored against every open job; a changed one has its scores recomputed.
func (s *Service) UpsertCandidate(ctx context.Context, id uuid.UUID, in CandidateInput) (*CandidateResult, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Violation("candidate name is required")
	}
	if in.ExperienceYears < 0 {
		return nil, apperr.Violation("experience_years cannot be negative")
	}

	current, err := s.store.GetCandidate(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get candidate: %w", err)
	}

	now := s.now()
	cand := &models.CandidateProfile{
		ID:              id,
		Name:            strings.TrimSpace(in.Name),
		Headline:        in.Headline,
		Summary:         in.Summary,
		Skills:          in.Skills,
		ExperienceYears: in.ExperienceYears,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if current != nil {
		cand.CreatedAt = current.CreatedAt
	}
	if err := s.store.UpsertCandidate(ctx, cand); err != nil {
		return nil, fmt.Errorf("upsert candidate: %w", err)
	}

	res := &CandidateResult{Candidate: cand}
	switch {
	case current == nil:
		slog.Info("candidate created", "candidate_id", id)
		res.Batch = s.schedule(ctx, "bulk compute for candidate", id, func() (*models.BatchStatus, error) {
			return s.fanout.BulkComputeForCandidate(ctx, id)
		})
	case candidateContentChanged(current, cand):
		slog.Info("candidate profile changed", "candidate_id", id)
		res.Batch = s.schedule(ctx, "recompute for candidate", id, func() (*models.BatchStatus, error) {
			return s.fanout.RecomputeForCandidate(ctx, id)
		})
	}
	return res, nil
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*models.JobPosting, error) {
	job, err := s.store.GetJob(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("job %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *Service) GetCandidate(ctx context.Context, id uuid.UUID) (*models.CandidateProfile, error) {
	c, err := s.store.GetCandidate(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("candidate %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	return c, nil
}

// ListStages returns the job's pipeline in order.
func (s *Service) ListStages(ctx context.Context, jobID uuid.UUID) ([]models.StageDefinition, error) {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return nil, err
	}
	stages, err := s.store.ListStagesByJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	return stages, nil
}

// schedule starts a fan-out. The catalog write already committed, so a
// scheduling failure is logged rather than returned.
func (s *Service) schedule(ctx context.Context, what string, subjectID uuid.UUID, fn func() (*models.BatchStatus, error)) *models.BatchStatus {
	batch, err := fn()
	if err != nil {
		slog.WarnContext(ctx, what+" not scheduled", "subject_id", subjectID, "error", err)
		return nil
	}
	return batch
}

func (s *Service) templateStages() []StageInput {
	out := make([]StageInput, 0, len(s.template))
	for _, t := range s.template {
		out = append(out, StageInput{Name: t.Name, Description: t.Description, Type: t.Type, Order: t.Order})
	}
	return out
}

func validateJob(in JobInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return apperr.Violation("job title is required")
	}
	return nil
}

func validateStages(stages []StageInput) error {
	seen := make(map[int]bool, len(stages))
	for _, st := range stages {
		if strings.TrimSpace(st.Name) == "" {
			return apperr.Violation("stage name is required")
		}
		if st.Order < 1 {
			return apperr.Violation("stage %q: order must be positive", st.Name)
		}
		if seen[st.Order] {
			return apperr.Violation("stage %q: order %d is used twice", st.Name, st.Order)
		}
		seen[st.Order] = true
		if st.Type != "" && !st.Type.IsValid() {
			return apperr.Violation("stage %q: unknown type %q", st.Name, st.Type)
		}
	}
	return nil
}

func jobContentChanged(a, b *models.JobPosting) bool {
	return a.Title != b.Title ||
		a.Description != b.Description ||
		a.Requirements != b.Requirements ||
		a.Location != b.Location
}

func candidateContentChanged(a, b *models.CandidateProfile) bool {
	return a.Name != b.Name ||
		a.Headline != b.Headline ||
		a.Summary != b.Summary ||
		a.ExperienceYears != b.ExperienceYears ||
		!slices.Equal(a.Skills, b.Skills)
}
