// Package httptransport assembles the public HTTP surface.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"prospector/internal/platform/metrics"
	"prospector/internal/platform/middleware"
	"prospector/pkg/platform/httputil"
)

// Registrar mounts a group of routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps collects what the router needs. Gatherer and Checks are optional.
type Deps struct {
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Validator middleware.TokenValidator
	Checks    map[string]HealthCheck
	Handlers  []Registrar
}

const healthTimeout = 2 * time.Second

// NewRouter wires middleware, the mounted handlers, /healthz and /metrics.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.AccessLog(deps.Logger, deps.Metrics))

	r.Get("/healthz", healthz(deps.Checks))
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(deps.Validator, deps.Logger))
		for _, h := range deps.Handlers {
			h.Register(r)
		}
	})

	return otelhttp.NewHandler(r, "prospector.http")
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				continue
			}
			status[name] = "ok"
		}
		for _, v := range status {
			if v != "ok" {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": status})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok", "checks": status})
	}
}
