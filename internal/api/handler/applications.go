package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/api/response"
	"github.com/kiranshivaraju/hirepipe/internal/workflow"
)

type Submitter interface {
	SubmitApplication(ctx context.Context, jobID, candidateID uuid.UUID) (*workflow.Submission, error)
}

// NewSubmitApplicationHandler returns an http.HandlerFunc for POST /api/v1/applications.
func NewSubmitApplicationHandler(svc Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			JobID       string `json:"job_id"`
			CandidateID string `json:"candidate_id"`
		}
		if !decodeBody(w, r, &req, false) {
			return
		}

		jobID, err := uuid.Parse(req.JobID)
		if err != nil {
			response.BadRequest(w, "job_id must be a valid UUID")
			return
		}
		candidateID, err := uuid.Parse(req.CandidateID)
		if err != nil {
			response.BadRequest(w, "candidate_id must be a valid UUID")
			return
		}

		sub, err := svc.SubmitApplication(r.Context(), jobID, candidateID)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.Created(w, sub)
	}
}
