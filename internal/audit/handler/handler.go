package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"calculation/internal/audit"
	dErrors "calculation/pkg/domain-errors"
	"calculation/pkg/platform/httputil"
	"calculation/pkg/requestcontext"
)

const (
	defaultPage = 0
	defaultSize = 10
)

// Service lists audit records.
type Service interface {
	List(ctx context.Context, page, size int) (audit.Page[audit.Record], error)
}

// Handler serves the audit listing endpoint.
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

// Register mounts the audit endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit", h.HandleList)
}

// HandleList handles GET /audit?page=&size=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := requestcontext.Now(ctx)

	page, size, err := parsePaging(r.URL.Query())
	if err != nil {
		httputil.WriteErrorAt(w, err, now)
		return
	}

	result, err := h.service.List(ctx, page, size)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit records",
			"request_id", requestcontext.RequestID(ctx),
			"page", page,
			"size", size,
			"error", err,
		)
		httputil.WriteErrorAt(w, err, now)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, audit.MapPage(result, FromRecord))
}

func parsePaging(q url.Values) (int, int, error) {
	page, err := parseNonNegative(q, "page", defaultPage)
	if err != nil {
		return 0, 0, err
	}
	size, err := parseNonNegative(q, "size", defaultSize)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func parseNonNegative(q url.Values, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidArgument, name+" must be a non-negative integer")
	}
	return n, nil
}
