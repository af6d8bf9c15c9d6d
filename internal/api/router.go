package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kiranshivaraju/hirepipe/internal/api/handler"
	mw "github.com/kiranshivaraju/hirepipe/internal/api/middleware"
	"github.com/kiranshivaraju/hirepipe/internal/api/response"
	"github.com/kiranshivaraju/hirepipe/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	GetScore               http.HandlerFunc
	ComputeScore           http.HandlerFunc
	InvalidateForCandidate http.HandlerFunc
	InvalidateForJob       http.HandlerFunc
	BackfillCandidate      http.HandlerFunc
	BackfillJob            http.HandlerFunc
	BatchStatus            http.HandlerFunc

	SubmitApplication http.HandlerFunc
	Processes         handler.ProcessHandlers

	CreateJob       http.HandlerFunc
	UpdateJob       http.HandlerFunc
	GetJob          http.HandlerFunc
	ListStages      http.HandlerFunc
	UpsertCandidate http.HandlerFunc
	GetCandidate    http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Route("/api/v1/compatibility", func(r chi.Router) {
			r.Get("/batches/{batchID}", orNotImplemented(deps.BatchStatus))
			r.Get("/{candidateID}/{jobID}", orNotImplemented(deps.GetScore))
			r.Post("/{candidateID}/{jobID}", orNotImplemented(deps.ComputeScore))
		})

		r.Route("/api/v1/candidates/{candidateID}", func(r chi.Router) {
			r.Get("/", orNotImplemented(deps.GetCandidate))
			r.Put("/", orNotImplemented(deps.UpsertCandidate))
			r.Delete("/compatibility", orNotImplemented(deps.InvalidateForCandidate))
			r.Post("/compatibility/backfill", orNotImplemented(deps.BackfillCandidate))
		})

		r.Post("/api/v1/jobs", orNotImplemented(deps.CreateJob))
		r.Route("/api/v1/jobs/{jobID}", func(r chi.Router) {
			r.Get("/", orNotImplemented(deps.GetJob))
			r.Put("/", orNotImplemented(deps.UpdateJob))
			r.Get("/stages", orNotImplemented(deps.ListStages))
			r.Delete("/compatibility", orNotImplemented(deps.InvalidateForJob))
			r.Post("/compatibility/backfill", orNotImplemented(deps.BackfillJob))
		})

		r.Post("/api/v1/applications", orNotImplemented(deps.SubmitApplication))

		r.Route("/api/v1/processes/{processID}", func(r chi.Router) {
			p := deps.Processes
			r.Get("/", orNotImplemented(p.Get))
			r.Get("/history", orNotImplemented(p.History))
			r.Post("/advance", orNotImplemented(p.Advance))
			r.Post("/advance-to", orNotImplemented(p.AdvanceTo))
			r.Post("/return-to", orNotImplemented(p.ReturnTo))
			r.Post("/finalize", orNotImplemented(p.Finalize))
			r.Post("/reprove", orNotImplemented(p.Reprove))
		})

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope(models.ScopeAdmin))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
