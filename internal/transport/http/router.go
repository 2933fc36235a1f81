// Package httptransport assembles the public HTTP surface: every route is
// wired through the access gate with the policy its class demands.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventshandler "eventgate/internal/events/handler"
	"eventgate/internal/gate"
	"eventgate/internal/principal"
	ratelimithandler "eventgate/internal/ratelimit/handler"
	"eventgate/internal/ratelimit/models"
	tokenhandler "eventgate/internal/token/handler"
	"eventgate/pkg/platform/httputil"
	adminmw "eventgate/pkg/platform/middleware/admin"
	"eventgate/pkg/platform/middleware/metadata"
	"eventgate/pkg/platform/middleware/request"
	"eventgate/pkg/platform/middleware/requesttime"
)

// Deps carries everything the router mounts. All fields except the health
// checks are required.
type Deps struct {
	Gate   *gate.Gate
	Events *eventshandler.Handler
	Tokens *tokenhandler.Handler
	Admin  *ratelimithandler.Handler

	// AdminTokenHash guards the admin routes; empty disables them.
	AdminTokenHash string

	// TrustProxyHeaders lets client IPs come from X-Forwarded-For and
	// X-Real-IP. Set only behind a proxy that strips client-supplied values.
	TrustProxyHeaders bool

	Logger *slog.Logger

	// HealthChecks are probed by /healthz, keyed by dependency name.
	HealthChecks map[string]func(context.Context) error
}

// NewRouter builds the chi router with the full middleware stack.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata(deps.TrustProxyHeaders))

	r.Get("/healthz", healthHandler(deps.HealthChecks))
	r.Handle("/metrics", promhttp.Handler())

	r.With(deps.Gate.RateLimitOnly(models.ClassAuth)).
		Post("/auth/token", deps.Tokens.HandleIssue)

	r.Route("/sites/{siteID}/events", func(r chi.Router) {
		r.With(deps.Gate.Middleware(gate.Policy{
			Class:               models.ClassTracking,
			RequiredPermissions: []string{principal.PermissionWrite},
			VerifyIntegrity:     true,
			SiteParam:           "siteID",
		})).Post("/", deps.Events.HandleIngest)

		r.With(deps.Gate.Middleware(gate.Policy{
			Class:               models.ClassAPI,
			RequiredPermissions: []string{principal.PermissionRead},
			SiteParam:           "siteID",
		})).Get("/", deps.Events.HandleList)
	})

	if deps.AdminTokenHash != "" {
		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdminToken(deps.AdminTokenHash, deps.Logger))
			deps.Admin.RegisterAdmin(r)
		})
	}

	return r
}

func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		healthy := true
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				status[name] = err.Error()
				healthy = false
			} else {
				status[name] = "ok"
			}
		}
		if !healthy {
			status["status"] = "degraded"
			httputil.WriteJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, status)
	}
}
