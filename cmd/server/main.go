package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"calculation/internal/platform/config"
	"calculation/internal/platform/database"
	"calculation/internal/platform/httpserver"
	"calculation/internal/platform/logger"
	"calculation/internal/platform/redis"
	httptransport "calculation/internal/transport/http"
)

// main wires dependencies, serves HTTP and runs the audit workers until a
// shutdown signal arrives. Business logic lives in the internal packages.
func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	redisClient, err := redis.Open(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		reg.MustRegister(redis.PoolCollector(redisClient))
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if db != nil {
		defer db.Close()
	}

	app, err := build(ctx, cfg, log, reg, redisClient, db)
	if err != nil {
		return err
	}

	srv := httpserver.New(cfg.Server, httptransport.NewRouter(app.deps), log)

	g, gctx := errgroup.WithContext(ctx)

	// the recorder outlives the server so in-flight requests can still record
	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	g.Go(func() error {
		return app.recorder.Run(recorderCtx)
	})

	g.Go(func() error {
		defer stopRecorder()
		log.Info("starting calculation service", "addr", cfg.Server.Addr)
		return srv.Run(gctx)
	})

	err = g.Wait()
	log.Info("shutdown complete")
	return err
}
