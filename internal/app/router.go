package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atrium-console/atrium/internal/approvals"
	"github.com/atrium-console/atrium/internal/auth"
	"github.com/atrium-console/atrium/internal/observability"
	"github.com/atrium-console/atrium/internal/roles"
	"github.com/atrium-console/atrium/internal/shared"
	"github.com/atrium-console/atrium/internal/tenant"
	"github.com/atrium-console/atrium/internal/users"
	"github.com/atrium-console/atrium/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	SessionManager  *shared.SessionManager
	CSRFManager     *shared.CSRFManager
	TenantStore     tenant.Store
	AuthHandler     *auth.Handler
	TenantHandler   *tenant.Handler
	RolesHandler    *roles.Handler
	UsersHandler    *users.Handler
	ApprovalHandler *approvals.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with Atrium defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		TenantStore:    params.TenantStore,
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

	params.AuthHandler.MountRoutes(r)

	r.Route("/api/tenant", params.TenantHandler.MountRoutes)
	r.Route("/api/roles", params.RolesHandler.MountRoutes)
	r.Route("/api/users", params.UsersHandler.MountRoutes)
	r.Route("/api/approvals", params.ApprovalHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/api/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
