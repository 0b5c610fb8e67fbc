package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"calculation/internal/platform/metrics"
	dErrors "calculation/pkg/domain-errors"
	"calculation/pkg/platform/httputil"
	"calculation/pkg/requestcontext"
)

// Recovery turns a handler panic into a 500 envelope and logs the stack.
func Recovery(logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				ctx := r.Context()
				m.IncPanic()
				logger.ErrorContext(ctx, "panic in handler",
					"panic", rec,
					"request_id", requestcontext.RequestID(ctx),
					"stack", string(debug.Stack()),
				)
				httputil.WriteErrorAt(w, dErrors.New(dErrors.CodeInternal, "panic"), requestcontext.Now(ctx))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
