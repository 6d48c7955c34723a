package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/orcaflow/orcaflow/internal/auth"
	"github.com/orcaflow/orcaflow/internal/catalog"
	"github.com/orcaflow/orcaflow/internal/doctemplate"
	"github.com/orcaflow/orcaflow/internal/observability"
	"github.com/orcaflow/orcaflow/internal/quote"
	"github.com/orcaflow/orcaflow/internal/shared"
	"github.com/orcaflow/orcaflow/internal/users"
	"github.com/orcaflow/orcaflow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	CSRFManager     *shared.CSRFManager
	AuthHandler     *auth.Handler
	UsersHandler    *users.Handler
	CatalogHandler  *catalog.Handler
	TemplateHandler *doctemplate.Handler
	QuoteHandler    *quote.Handler
	JobsHandler     *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", params.AuthHandler.Routes)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireUser)

		r.Route("/products", func(r chi.Router) {
			params.CatalogHandler.Routes(r, auth.RequireAdmin)
		})
		r.Route("/templates", params.TemplateHandler.Routes)
		r.Route("/quotes", params.QuoteHandler.Routes)

		r.Route("/users", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			params.UsersHandler.Routes(r)
		})

		if params.JobsHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				params.JobsHandler.MountRoutes(r)
			})
		}
	})

	return r
}
