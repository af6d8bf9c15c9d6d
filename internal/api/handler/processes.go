package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/hirepipe/internal/api/response"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

// Workflow is the selection-process engine as seen by the HTTP layer.
type Workflow interface {
	GetProcess(ctx context.Context, processID uuid.UUID) (*models.SelectionProcess, error)
	ListHistory(ctx context.Context, processID uuid.UUID) ([]models.StageHistoryEntry, error)
	AdvanceToNext(ctx context.Context, processID, actorID uuid.UUID, feedback string) (*models.SelectionProcess, error)
	AdvanceToStage(ctx context.Context, processID, targetStageID, actorID uuid.UUID, feedback string) (*models.SelectionProcess, error)
	ReturnToStage(ctx context.Context, processID, targetStageID, actorID uuid.UUID, feedback string) (*models.SelectionProcess, error)
	Finalize(ctx context.Context, processID, actorID uuid.UUID, feedback string) (*models.SelectionProcess, error)
	Reprove(ctx context.Context, processID, actorID uuid.UUID, feedback string) (*models.SelectionProcess, error)
}

type transitionRequest struct {
	StageID  string `json:"stage_id,omitempty"`
	Feedback string `json:"feedback"`
}

// ProcessHandlers bundles the /api/v1/processes endpoints.
type ProcessHandlers struct {
	Get       http.HandlerFunc
	History   http.HandlerFunc
	Advance   http.HandlerFunc
	AdvanceTo http.HandlerFunc
	ReturnTo  http.HandlerFunc
	Finalize  http.HandlerFunc
	Reprove   http.HandlerFunc
}

func NewProcessHandlers(svc Workflow) ProcessHandlers {
	return ProcessHandlers{
		Get:     newGetProcessHandler(svc),
		History: newHistoryHandler(svc),
		Advance: newTransitionHandler(false, func(ctx context.Context, pid, _, actorID uuid.UUID, fb string) (*models.SelectionProcess, error) {
			return svc.AdvanceToNext(ctx, pid, actorID, fb)
		}),
		AdvanceTo: newTransitionHandler(true, svc.AdvanceToStage),
		ReturnTo:  newTransitionHandler(true, svc.ReturnToStage),
		Finalize: newTransitionHandler(false, func(ctx context.Context, pid, _, actorID uuid.UUID, fb string) (*models.SelectionProcess, error) {
			return svc.Finalize(ctx, pid, actorID, fb)
		}),
		Reprove: newTransitionHandler(false, func(ctx context.Context, pid, _, actorID uuid.UUID, fb string) (*models.SelectionProcess, error) {
			return svc.Reprove(ctx, pid, actorID, fb)
		}),
	}
}

func newGetProcessHandler(svc Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "processID")
		if !ok {
			return
		}
		p, err := svc.GetProcess(r.Context(), id)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.JSON(w, p)
	}
}

func newHistoryHandler(svc Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "processID")
		if !ok {
			return
		}
		entries, err := svc.ListHistory(r.Context(), id)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		if entries == nil {
			entries = []models.StageHistoryEntry{}
		}
		response.Collection(w, entries, len(entries))
	}
}

type transitionFunc func(ctx context.Context, processID, stageID, actorID uuid.UUID, feedback string) (*models.SelectionProcess, error)

// newTransitionHandler decodes {stage_id, feedback}, attributes the move to
// the authenticated actor and runs fn. The body is optional when no target
// stage is needed.
func newTransitionHandler(needsStage bool, fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		processID, ok := uuidParam(w, r, "processID")
		if !ok {
			return
		}
		actorID, ok := actor(w, r)
		if !ok {
			return
		}

		var req transitionRequest
		if !decodeBody(w, r, &req, !needsStage) {
			return
		}

		var stageID uuid.UUID
		if needsStage {
			id, err := uuid.Parse(req.StageID)
			if err != nil {
				response.BadRequest(w, "stage_id must be a valid UUID")
				return
			}
			stageID = id
		}

		p, err := fn(r.Context(), processID, stageID, actorID, req.Feedback)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.JSON(w, p)
	}
}
