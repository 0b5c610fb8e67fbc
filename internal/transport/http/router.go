// Package httptransport assembles the HTTP surface: global middleware, the
// gated calculation route, the audit listing and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auditmw "calculation/internal/audit/middleware"
	"calculation/internal/platform/metrics"
	"calculation/internal/platform/middleware"
	"calculation/internal/ratelimit/models"
	dErrors "calculation/pkg/domain-errors"
	"calculation/pkg/platform/httputil"
	"calculation/pkg/platform/middleware/metadata"
	"calculation/pkg/platform/middleware/requesttime"
	"calculation/pkg/requestcontext"
)

// Registrar mounts a handler's routes.
type Registrar interface {
	Register(r chi.Router)
}

// Limiter gates a route behind a named admission limiter.
type Limiter interface {
	Limit(name models.LimiterName) func(http.Handler) http.Handler
}

// Dependencies is everything the router needs. Clock and Gatherer are optional.
type Dependencies struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	Clock       func() time.Time
	Calculation Registrar
	Audit       Registrar
	Limiter     Limiter
	Recorder    auditmw.Recorder
	Health      []HealthCheck

	// AuditRejected also records requests the limiter turns away.
	AuditRejected bool
}

// NewRouter wires all endpoints. /calculation and /audit are audited;
// /health and /metrics are neither limited nor audited.
func NewRouter(deps Dependencies) http.Handler {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(metadata.RequestMetadata)
	r.Use(requesttime.MiddlewareWithClock(deps.Clock))
	r.Use(middleware.RequestLogger(deps.Logger, deps.Metrics))
	r.Use(middleware.Recovery(deps.Logger, deps.Metrics))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorAt(w, dErrors.New(dErrors.CodeNotFound, "resource not found"), requestcontext.Now(r.Context()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{
			Status:    http.StatusMethodNotAllowed,
			Message:   "method not allowed",
			Timestamp: requestcontext.Now(r.Context()).UTC().Format(time.RFC3339),
		})
	})

	audited := auditmw.Middleware(deps.Recorder)
	limited := deps.Limiter.Limit(models.LimiterCalculation)

	r.Group(func(r chi.Router) {
		if deps.AuditRejected {
			r.Use(audited, limited)
		} else {
			r.Use(limited, audited)
		}
		deps.Calculation.Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(audited)
		deps.Audit.Register(r)
	})

	r.Get("/health", healthHandler(deps.Health))
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	return r
}
