package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

const maxResponseBytes = 64 << 10

// Response is the upstream payload. The percentage may be a JSON string or number.
type Response struct {
	Percentage *decimal.Decimal `json:"percentage"`
}

// HTTP fetches the percentage from an external JSON endpoint with GET.
type HTTP struct {
	url    string
	client *http.Client
}

type HTTPOption func(*HTTP)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTP) {
		h.client = client
	}
}

func NewHTTP(url string, opts ...HTTPOption) (*HTTP, error) {
	if url == "" {
		return nil, errors.New("upstream url is required")
	}
	h := &HTTP{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Percentage performs one GET. Non-2xx statuses and malformed bodies are errors.
func (h *HTTP) Percentage(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("call upstream: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return decimal.Zero, fmt.Errorf("read upstream response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decimal.Zero, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	var payload Response
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("decode upstream response: %w", err)
	}
	if payload.Percentage == nil {
		return decimal.Zero, errors.New("upstream response has no percentage")
	}
	return *payload.Percentage, nil
}
