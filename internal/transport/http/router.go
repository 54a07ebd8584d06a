package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"smartsales/internal/config"
	apierrors "smartsales/internal/errors"
	"smartsales/internal/infrastructure"
	"smartsales/internal/middleware"
	"smartsales/internal/services"
)

// RouterDeps holds what the router wires into handlers
type RouterDeps struct {
	Health    *services.HealthService
	Reports   ReportService
	Telemetry *infrastructure.Telemetry
	RateLimit config.RateLimitConfig
	Logger    *slog.Logger
}

// NewRouter builds the read API:
//
//	GET /api/health
//	GET /api/olap/categories
//	GET /api/olap/category-regions
//	GET /api/olap/pivot
//	GET /metrics
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	telemetry := deps.Telemetry
	if telemetry == nil {
		telemetry = infrastructure.NewNoopTelemetry()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Telemetry(telemetry))
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	if deps.RateLimit.Enabled {
		r.Use(middleware.NewRateLimiter(deps.RateLimit.RPS, deps.RateLimit.Burst, logger).Handler)
	}

	errorHandler := apierrors.NewErrorHandler(logger, middleware.GetRequestID)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", NewHealthHandler(deps.Health, logger).HealthCheck)
		r.Mount("/olap", NewOLAPHandler(deps.Reports, logger, errorHandler).Routes())
	})
	r.Handle("/metrics", telemetry.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errorHandler.HandleError(w, r, apierrors.ErrNotFound)
	})
	return r
}
