// Package httptransport assembles the public HTTP surface: the outer
// middleware chain, operational endpoints and the authenticated API.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bloodlink/internal/platform/metrics"
	authmw "bloodlink/pkg/platform/middleware/auth"
	request "bloodlink/pkg/platform/middleware/request"
	"bloodlink/pkg/platform/middleware/requesttime"
)

// Registrar mounts a module's routes.
type Registrar interface {
	Register(r chi.Router)
}

// RouterConfig carries the cross-cutting pieces shared by every route.
type RouterConfig struct {
	Logger    *slog.Logger
	Validator authmw.JWTValidator
	Metrics   *metrics.Metrics
	// RateLimit runs after authentication. Nil disables it.
	RateLimit func(http.Handler) http.Handler
	// Health serves GET /health. Nil serves a static ok.
	Health http.HandlerFunc
}

// NewRouter wires the middleware chain and mounts every registrar behind
// bearer authentication.
func NewRouter(cfg RouterConfig, api ...Registrar) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	health := cfg.Health
	if health == nil {
		health = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger))
	r.Use(requesttime.Middleware)
	r.Use(metrics.LatencyMiddleware(cfg.Metrics))

	r.Get("/health", health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(cfg.Validator, logger))
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit)
		}
		for _, registrar := range api {
			registrar.Register(r)
		}
	})
	return r
}
