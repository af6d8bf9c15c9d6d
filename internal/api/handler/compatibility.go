package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/api/response"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

// ScoreService is the compatibility engine as seen by the HTTP layer.
type ScoreService interface {
	Get(ctx context.Context, candidateID, jobID uuid.UUID) (*models.CompatibilityScore, bool, error)
	GetOrCompute(ctx context.Context, candidateID, jobID uuid.UUID) (*models.CompatibilityScore, error)
	InvalidateForCandidate(ctx context.Context, candidateID uuid.UUID) (int64, error)
	InvalidateForJob(ctx context.Context, jobID uuid.UUID) (int64, error)
	BulkComputeForCandidate(ctx context.Context, candidateID uuid.UUID) (*models.BatchStatus, error)
	BulkComputeForJob(ctx context.Context, jobID uuid.UUID) (*models.BatchStatus, error)
	BatchStatus(ctx context.Context, batchID uuid.UUID) (*models.BatchStatus, error)
}

// NewGetScoreHandler returns an http.HandlerFunc for
// GET /api/v1/compatibility/{candidateID}/{jobID}. It never calls the oracle.
func NewGetScoreHandler(svc ScoreService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		candidateID, ok := uuidParam(w, r, "candidateID")
		if !ok {
			return
		}
		jobID, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}

		score, found, err := svc.Get(r.Context(), candidateID, jobID)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		if !found {
			response.Error(w, http.StatusNotFound, "NOT_FOUND",
				"No compatibility score for this candidate and job", nil)
			return
		}
		response.JSON(w, score)
	}
}

// NewComputeScoreHandler returns an http.HandlerFunc for
// POST /api/v1/compatibility/{candidateID}/{jobID}.
func NewComputeScoreHandler(svc ScoreService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		candidateID, ok := uuidParam(w, r, "candidateID")
		if !ok {
			return
		}
		jobID, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}

		score, err := svc.GetOrCompute(r.Context(), candidateID, jobID)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.JSON(w, score)
	}
}

type invalidateResponse struct {
	Deleted int64 `json:"deleted"`
}

// NewInvalidateCandidateHandler returns an http.HandlerFunc for
// DELETE /api/v1/candidates/{candidateID}/compatibility.
func NewInvalidateCandidateHandler(svc ScoreService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "candidateID")
		if !ok {
			return
		}
		n, err := svc.InvalidateForCandidate(r.Context(), id)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.JSON(w, invalidateResponse{Deleted: n})
	}
}

// NewInvalidateJobHandler returns an http.HandlerFunc for
// DELETE /api/v1/jobs/{jobID}/compatibility.
func NewInvalidateJobHandler(svc ScoreService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}
		n, err := svc.InvalidateForJob(r.Context(), id)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.JSON(w, invalidateResponse{Deleted: n})
	}
}

// NewBackfillCandidateHandler returns an http.HandlerFunc for
// POST /api/v1/candidates/{candidateID}/compatibility/backfill.
func NewBackfillCandidateHandler(svc ScoreService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "candidateID")
		if !ok {
			return
		}
		status, err := svc.BulkComputeForCandidate(r.Context(), id)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.Accepted(w, status)
	}
}

// NewBackfillJobHandler returns an http.HandlerFunc for
// POST /api/v1/jobs/{jobID}/compatibility/backfill.
func NewBackfillJobHandler(svc ScoreService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "jobID")
		if !ok {
			return
		}
		status, err := svc.BulkComputeForJob(r.Context(), id)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.Accepted(w, status)
	}
}

// NewBatchStatusHandler returns an http.HandlerFunc for
// GET /api/v1/compatibility/batches/{batchID}.
func NewBatchStatusHandler(svc ScoreService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "batchID")
		if !ok {
			return
		}
		status, err := svc.BatchStatus(r.Context(), id)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.JSON(w, status)
	}
}
