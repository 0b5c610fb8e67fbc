package httptransport

import (
	"context"
	"net/http"
	"time"

	"calculation/pkg/platform/httputil"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck checks one backing service.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthResponse reports overall status plus one entry per check.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK

		for _, hc := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := hc.Check(ctx)
			cancel()
			if err != nil {
				resp.Checks[hc.Name] = "down: " + err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[hc.Name] = "ok"
		}

		httputil.WriteJSON(w, status, resp)
	}
}
