// Command percentage-mock serves a fixed percentage for local runs and fails a
// configurable share of requests so the resolver's retry and cache fallback
// can be exercised by hand.
package main

import (
	"context"
	"flag"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"calculation/internal/percentage/source"
	"calculation/internal/platform/config"
	"calculation/internal/platform/httpserver"
	"calculation/internal/platform/logger"
	"calculation/pkg/platform/httputil"
)

func main() {
	addr := flag.String("addr", envOr("MOCK_ADDR", ":8081"), "listen address")
	value := flag.String("percentage", envOr("MOCK_PERCENTAGE", "10"), "percentage to serve")
	failureRatio := flag.Float64("failure-ratio", 0, "share of requests answered with 503, between 0 and 1")
	flag.Parse()

	log := logger.New(envOr("LOG_LEVEL", "info"), envOr("LOG_FORMAT", "text"))

	percentage, err := decimal.NewFromString(*value)
	if err != nil {
		log.Error("invalid percentage", "value", *value, "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Get("/percentage", func(w http.ResponseWriter, r *http.Request) {
		if rand.Float64() < *failureRatio {
			log.Info("simulated upstream failure")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, source.Response{Percentage: &percentage})
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting percentage mock", "addr", *addr, "percentage", percentage.String(), "failure_ratio", *failureRatio)
	if err := httpserver.New(config.Server{Addr: *addr}, r, log).Run(ctx); err != nil {
		log.Error("mock server stopped", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
