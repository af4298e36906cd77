package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certverify/internal/platform/metrics"
	"certverify/internal/ratelimit"
	"certverify/internal/verification/handler"
	authmw "certverify/pkg/platform/middleware/auth"
	"certverify/pkg/platform/middleware/metadata"
	request "certverify/pkg/platform/middleware/request"
	"certverify/pkg/platform/middleware/requesttime"
	"certverify/pkg/platform/httputil"
)

// healthChecker reports whether an optional dependency is reachable.
type healthChecker interface {
	Health(ctx context.Context) error
}

type routerDeps struct {
	verification *handler.Handler
	httpMetrics  *metrics.Metrics
	gatherer     prometheus.Gatherer
	validator    authmw.JWTValidator // nil disables auth
	limiter      *ratelimit.Middleware
	cache        healthChecker       // nil when Redis is not configured
	logger       *slog.Logger
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(d.httpMetrics.Middleware)

	r.Get("/health", healthHandler(d.cache, d.logger))
	r.Handle("/metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		if d.validator != nil {
			r.Use(authmw.RequireAuth(d.validator, d.logger))
		}
		if d.limiter != nil {
			r.Use(d.limiter.Handler)
		}
		d.verification.Register(r)
	})
	return r
}

func healthHandler(cache healthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ok", "cache": "disabled"}
		if cache != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cache.Health(ctx); err != nil {
				// The cache is optional: report it, stay healthy.
				logger.WarnContext(r.Context(), "cache health check failed",
					"error", err,
					"request_id", request.GetRequestID(r.Context()),
				)
				body["cache"] = "unavailable"
			} else {
				body["cache"] = "ok"
			}
		}
		httputil.WriteJSON(w, http.StatusOK, body)
	}
}
