package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "origo/internal/audit/handler"
	entityhandler "origo/internal/entity/handler"
	ingesthandler "origo/internal/ingest/handler"
	"origo/internal/platform/metrics"
	"origo/internal/platform/middleware"
	progressionhandler "origo/internal/progression/handler"
	reconcilehandler "origo/internal/reconcile/handler"
	"origo/pkg/platform/middleware/metadata"
)

const requestTimeout = 30 * time.Second

// Registrar is implemented by every feature handler.
type Registrar interface {
	Register(r chi.Router)
}

// Deps collects everything the router needs. Handlers register their own
// routes; the router only decides middleware placement.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	JWT     middleware.JWTValidator

	Entities    *entityhandler.Handler
	Reconcile   *reconcilehandler.Handler
	Progression *progressionhandler.Handler
	Audit       *audithandler.Handler
	Ingest      *ingesthandler.Handler

	// Health reports backing-store connectivity; nil means always healthy.
	Health func(ctx context.Context) error
}

// NewRouter assembles the engine's HTTP surface. Console routes sit behind
// JWT auth; the ingest endpoint authenticates with pipeline API keys and
// probes stay open.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.LatencyMiddleware(deps.Metrics))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", handleHealth(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		deps.Ingest.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.JWT, deps.Logger))
		for _, h := range []Registrar{deps.Entities, deps.Reconcile, deps.Progression, deps.Audit} {
			h.Register(r)
		}
	})

	return r
}

func handleHealth(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if check != nil {
			if err := check(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
