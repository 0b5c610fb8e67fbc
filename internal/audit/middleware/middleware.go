// Package middleware records one audit entry for every request that passes
// through an audited route.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"calculation/internal/audit"
	"calculation/pkg/platform/httputil"
	"calculation/pkg/requestcontext"
)

// Recorder accepts audit records without blocking.
type Recorder interface {
	Record(ctx context.Context, record audit.Record)
}

// Middleware builds an audit record from the request and the response it
// produced, then hands it to the recorder. The response is never altered.
func Middleware(recorder Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(cw, r)

			ctx := r.Context()
			success := cw.status < http.StatusBadRequest
			recorder.Record(ctx, audit.NewRecord(
				requestcontext.Now(ctx),
				r.Method+" "+r.URL.Path,
				r.URL.Query().Encode(),
				resultText(cw.body.Bytes(), success),
				success,
			))
		})
	}
}

// resultText is the response body for successes and the envelope message for
// failures. Bodies that are not an envelope are kept verbatim.
func resultText(body []byte, success bool) string {
	text := strings.TrimSpace(string(body))
	if success {
		return text
	}
	var envelope httputil.ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}
	return text
}

// maxCapture covers MaxResultLength characters of up to four bytes each.
const maxCapture = audit.MaxResultLength * 4

type captureWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (w *captureWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	w.wroteHeader = true
	if room := maxCapture - w.body.Len(); room > 0 {
		w.body.Write(p[:min(len(p), room)])
	}
	return w.ResponseWriter.Write(p)
}

func (w *captureWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
