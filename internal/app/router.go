package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gatehouse-api/gatehouse/internal/auth"
	"github.com/gatehouse-api/gatehouse/internal/observability"
	"github.com/gatehouse-api/gatehouse/internal/privileges"
	"github.com/gatehouse-api/gatehouse/internal/rbac"
	"github.com/gatehouse-api/gatehouse/internal/roles"
	"github.com/gatehouse-api/gatehouse/internal/system"
	"github.com/gatehouse-api/gatehouse/internal/users"
	"github.com/gatehouse-api/gatehouse/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthHandler       *auth.Handler
	AuthMiddleware    *auth.Middleware
	RBACMiddleware    rbac.Middleware
	UsersHandler      *users.Handler
	RolesHandler      *roles.Handler
	PrivilegesHandler *privileges.Handler
	SystemHandler     *system.Handler
	JobHandler        *jobs.Handler

	ActivityMiddleware func(http.Handler) http.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with the full middleware chain and
// every API surface mounted.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	if params.ActivityMiddleware != nil {
		r.Use(params.ActivityMiddleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	var loginLimiter func(http.Handler) http.Handler
	if params.Config != nil {
		loginLimiter = LoginRateLimiter(params.Config.LoginRatePerMinute)
	}
	r.Route("/auth", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r, loginLimiter)
	})

	if params.SystemHandler != nil {
		r.Route("/system", params.SystemHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(params.AuthMiddleware.Authenticate)
		if params.JobHandler != nil {
			// Queue introspection is operator-only, like /system/schema.
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.RBACMiddleware.RequireSuperuser)
				params.JobHandler.MountRoutes(r)
			})
		}
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/roles", params.RolesHandler.MountRoutes)
		r.Route("/privileges", params.PrivilegesHandler.MountRoutes)
		r.Route("/role_privileges", params.RolesHandler.MountLinkRoutes)
	})

	return r
}
