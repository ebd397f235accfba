package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	mw "github.com/kiranshivaraju/gitverified/internal/api/middleware"
	"github.com/kiranshivaraju/gitverified/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	AllowedOrigins []string
	WebhookAuth    *mw.WebhookAuth
	RateLimit      *mw.RateLimit

	HealthHandler      http.HandlerFunc
	StatusHandler      http.HandlerFunc
	UploadHandler      http.HandlerFunc
	EvaluateHandler    http.HandlerFunc
	BatchHandler       http.HandlerFunc
	ProgressHandler    http.HandlerFunc
	StopHandler        http.HandlerFunc
	TriggerHandler     http.HandlerFunc
	WebhookHandler     http.HandlerFunc
	ResumeLinksHandler http.HandlerFunc
	LeaderboardHandler http.HandlerFunc
	ListRunsHandler    http.HandlerFunc
	GetRunHandler      http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.CORS(deps.AllowedOrigins))
	r.Use(mw.ClientID)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Route not found", "", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", "", nil)
	})

	// Read-only routes
	r.Get("/api/health", orNotImplemented(deps.HealthHandler))
	r.Get("/api/status", orNotImplemented(deps.StatusHandler))
	r.Get("/api/evaluate/batch/progress", orNotImplemented(deps.ProgressHandler))
	r.Get("/api/batch/progress", orNotImplemented(deps.ProgressHandler))
	r.Get("/api/leaderboard", orNotImplemented(deps.LeaderboardHandler))
	r.Get("/api/pipeline/runs", orNotImplemented(deps.ListRunsHandler))
	r.Get("/api/pipeline/runs/{runID}", orNotImplemented(deps.GetRunHandler))

	// Mutating routes, rate limited per client
	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/upload", orNotImplemented(deps.UploadHandler))
		r.Post("/api/evaluate", orNotImplemented(deps.EvaluateHandler))
		r.Post("/api/evaluate/batch", orNotImplemented(deps.BatchHandler))
		r.Post("/api/evaluate/stop", orNotImplemented(deps.StopHandler))
		r.Post("/api/trigger", orNotImplemented(deps.TriggerHandler))
		r.Post("/api/resume/links", orNotImplemented(deps.ResumeLinksHandler))

		r.Group(func(r chi.Router) {
			if deps.WebhookAuth != nil {
				r.Use(deps.WebhookAuth.Authenticate)
			}
			r.Post("/api/webhook", orNotImplemented(deps.WebhookHandler))
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
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", "", nil)
	}
}
