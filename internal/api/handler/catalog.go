package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/api/response"
	"github.com/kiranshivaraju/hirepipe/internal/catalog"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

type Catalog interface {
	CreateJob(ctx context.Context, in catalog.JobInput) (*catalog.JobResult, error)
	UpdateJob(ctx context.Context, id uuid.UUID, in catalog.JobInput) (*catalog.JobResult, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.JobPosting, error)
	ListStages(ctx context.Context, jobID uuid.UUID) ([]models.StageDefinition, error)
	UpsertCandidate(ctx context.Context, id uuid.UUID, in catalog.CandidateInput) (*catalog.CandidateResult, error)
	GetCandidate(ctx context.Context, id uuid.UUID) (*models.CandidateProfile, error)
}

// NewCreateJobHandler returns an http.HandlerFunc for POST /api/v1/jobs.
func NewCreateJobHandler(svc Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in catalog.JobInput
		if !decodeBody(w, r, &in, false) {
			return
		}
		res, err := svc.CreateJob(r.Context(), in)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.Created(w, res)
	}
}

// NewUpdateJobHandler returns an http.HandlerFunc for PUT /api/v1/jobs/{jobID}.
func NewUpdateJobHandler(svc Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}
		var in catalog.JobInput
		if !decodeBody(w, r, &in, false) {
			return
		}
		res, err := svc.UpdateJob(r.Context(), id, in)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.JSON(w, res)
	}
}

func NewGetJobHandler(svc Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}
		job, err := svc.GetJob(r.Context(), id)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.JSON(w, job)
	}
}

func NewListStagesHandler(svc Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}
		stages, err := svc.ListStages(r.Context(), id)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		if stages == nil {
			stages = []models.StageDefinition{}
		}
		response.Collection(w, stages, len(stages))
	}
}

// NewUpsertCandidateHandler returns an http.HandlerFunc for
// PUT /api/v1/candidates/{candidateID}.
func NewUpsertCandidateHandler(svc Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "candidateID")
		if !ok {
			return
		}
		var in catalog.CandidateInput
		if !decodeBody(w, r, &in, false) {
			return
		}
		res, err := svc.UpsertCandidate(r.Context(), id, in)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.JSON(w, res)
	}
}

func NewGetCandidateHandler(svc Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "candidateID")
		if !ok {
			return
		}
		c, err := svc.GetCandidate(r.Context(), id)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.JSON(w, c)
	}
}
