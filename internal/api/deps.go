package api

import (
	"github.com/kiranshivaraju/hirepipe/internal/api/handler"
	mw "github.com/kiranshivaraju/hirepipe/internal/api/middleware"
	"github.com/kiranshivaraju/hirepipe/internal/store"
)

// Services are the domain services the API exposes.
type Services struct {
	Store     store.Store
	Cache     handler.Pinger
	Limiter   mw.Counter
	RateLimit int

	Scores   handler.ScoreService
	Workflow interface {
		handler.Workflow
		handler.Submitter
	}
	Catalog handler.Catalog
}

// NewDependencies binds every route to its handler.
func NewDependencies(s Services) Dependencies {
	return Dependencies{
		Auth:      mw.NewAuth(s.Store),
		RateLimit: mw.NewRateLimit(s.Limiter, s.RateLimit),

		HealthHandler: handler.NewHealthHandler(s.Store, s.Cache),

		GetScore:               handler.NewGetScoreHandler(s.Scores),
		ComputeScore:           handler.NewComputeScoreHandler(s.Scores),
		InvalidateForCandidate: handler.NewInvalidateCandidateHandler(s.Scores),
		InvalidateForJob:       handler.NewInvalidateJobHandler(s.Scores),
		BackfillCandidate:      handler.NewBackfillCandidateHandler(s.Scores),
		BackfillJob:            handler.NewBackfillJobHandler(s.Scores),
		BatchStatus:            handler.NewBatchStatusHandler(s.Scores),

		SubmitApplication: handler.NewSubmitApplicationHandler(s.Workflow),
		Processes:         handler.NewProcessHandlers(s.Workflow),

		CreateJob:       handler.NewCreateJobHandler(s.Catalog),
		UpdateJob:       handler.NewUpdateJobHandler(s.Catalog),
		GetJob:          handler.NewGetJobHandler(s.Catalog),
		ListStages:      handler.NewListStagesHandler(s.Catalog),
		UpsertCandidate: handler.NewUpsertCandidateHandler(s.Catalog),
		GetCandidate:    handler.NewGetCandidateHandler(s.Catalog),

		CreateKeyHandler: handler.NewCreateKeyHandler(s.Store),
		ListKeysHandler:  handler.NewListKeysHandler(s.Store),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(s.Store),
	}
}
