package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	dErrors "calculation/pkg/domain-errors"
	"calculation/pkg/platform/httputil"
	"calculation/pkg/requestcontext"
)

// Service defines the interface for calculation operations.
type Service interface {
	Calculate(ctx context.Context, a, b int64) (decimal.Decimal, error)
}

// Handler wires the calculation endpoint to the calculation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the calculation endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/calculation", h.HandleCalculate)
}

// HandleCalculate handles GET /calculation?num1=&num2=.
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	now := requestcontext.Now(ctx)
	start := time.Now()

	req, err := ParseCalculationRequest(r.URL.Query())
	if err != nil {
		h.logger.InfoContext(ctx, "invalid calculation request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteErrorAt(w, err, now)
		return
	}

	result, err := h.service.Calculate(ctx, req.Num1, req.Num2)
	if err != nil {
		level := slog.LevelError
		if dErrors.HasCode(err, dErrors.CodeUnavailable) {
			level = slog.LevelWarn
		}
		h.logger.Log(ctx, level, "calculation failed",
			"request_id", requestID,
			"num1", req.Num1,
			"num2", req.Num2,
			"error", err,
		)
		httputil.WriteErrorAt(w, err, now)
		return
	}

	h.logger.InfoContext(ctx, "calculation served",
		"request_id", requestID,
		"result", result.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
