// Package server assembles the HTTP API: ingestion routes behind API-key auth
// and CORS, dashboard routes behind access-token auth, and the shared-secret
// retention trigger.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	dashboardhandler "pulsewatch/internal/dashboard/handler"
	eventrepo "pulsewatch/internal/event/repository"
	"pulsewatch/internal/httpapi"
	ingesthandler "pulsewatch/internal/ingest/handler"
	"pulsewatch/internal/presence"
	projectrepo "pulsewatch/internal/project/repository"
	"pulsewatch/internal/retention"
	"pulsewatch/internal/security"
	"pulsewatch/internal/server/middleware"
	"pulsewatch/internal/stream"
	visitrepo "pulsewatch/internal/visit/repository"
)

// maxIngestBodyBytes caps one ingestion request body. A full batch of 100
// events with screenshot data URIs fits comfortably below this.
const maxIngestBodyBytes = 10 << 20

// Pinger reports storage liveness for the health endpoint (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds the dependencies the router wires into handlers.
type Deps struct {
	// Projects resolves API keys to projects. Required.
	Projects projectrepo.Repository
	// Presence is the TTL-backed online-session store. Required.
	Presence presence.Store
	// Events is the event repository. Required.
	Events eventrepo.Repository
	// Visits is the page-visit repository. Required.
	Visits visitrepo.Repository
	// Tokens validates dashboard access tokens. If nil, dashboard routes return 401.
	Tokens *security.TokenProvider
	// Sweeper runs the page-visit retention sweep. If nil, the cleanup route is not registered.
	Sweeper *retention.Sweeper
	// CleanupSecret guards the cleanup route. If empty, the route is not registered.
	CleanupSecret string
	// Fanouts receive every stored event, fire-and-forget. May be empty.
	Fanouts []stream.Producer
	// Pinger is checked by /healthz. If nil, the DB check is skipped.
	Pinger Pinger
	// Logger receives request logs. Required.
	Logger *slog.Logger
}

// NewRouter builds the chi router with all routes and middleware.
//
// Route → handler mapping:
//   - POST /heartbeat, /events, /page-visits → internal/ingest/handler (API key)
//   - GET /online-users, /online-users/sessions, /events, /page-visits,
//     DELETE /events/{id} → internal/dashboard/handler (access token)
//   - POST /page-visits/cleanup → internal/retention (shared secret)
//   - GET /healthz → liveness/readiness
func NewRouter(deps Deps) *chi.Mux {
	ingest := ingesthandler.NewHandler(deps.Presence, deps.Events, deps.Visits, deps.Fanouts...)
	dashboard := dashboardhandler.NewHandler(deps.Presence, deps.Events, deps.Visits)

	r := chi.NewRouter()
	r.Use(middleware.RequestLog(deps.Logger))

	r.Get("/healthz", healthHandler(deps.Pinger))

	r.Group(func(r chi.Router) {
		r.Use(middleware.CORS)
		r.Use(middleware.MaxBody(maxIngestBodyBytes))
		r.Use(middleware.APIKeyAuth(deps.Projects))
		// chi runs group middleware only when a route matches, so each path
		// needs an OPTIONS route for CORS to answer the preflight. The CORS
		// middleware terminates it before auth; the handler is never reached.
		preflight := func(http.ResponseWriter, *http.Request) {}
		r.Options("/heartbeat", preflight)
		r.Options("/events", preflight)
		r.Options("/page-visits", preflight)
		r.Post("/heartbeat", ingest.Heartbeat)
		r.Post("/events", ingest.Events)
		r.Post("/page-visits", ingest.PageVisit)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.DashboardAuth(deps.Tokens))
		r.Get("/online-users", dashboard.OnlineUsers)
		r.Get("/online-users/sessions", dashboard.OnlineSessions)
		r.Get("/events", dashboard.ListEvents)
		r.Get("/page-visits", dashboard.ListPageVisits)
		r.Delete("/events/{id}", dashboard.DeleteEvent)
	})

	if deps.Sweeper != nil && deps.CleanupSecret != "" {
		r.Group(func(r chi.Router) {
			r.Use(middleware.SharedSecret(deps.CleanupSecret))
			r.Post("/page-visits/cleanup", retention.NewHandler(deps.Sweeper).Cleanup)
		})
	}

	return r
}

// Handler wraps the router in OTel HTTP server instrumentation.
func Handler(deps Deps) http.Handler {
	return otelhttp.NewHandler(NewRouter(deps), "pulsewatch.http")
}

// healthHandler reports liveness, pinging storage when a Pinger is provided.
func healthHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			if err := p.PingContext(r.Context()); err != nil {
				httpapi.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "down"})
				return
			}
		}
		httpapi.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}
