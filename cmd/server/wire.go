package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"calculation/internal/audit"
	audithandler "calculation/internal/audit/handler"
	auditmetrics "calculation/internal/audit/metrics"
	auditmemory "calculation/internal/audit/store/memory"
	"calculation/internal/audit/store/sqlstore"
	"calculation/internal/calculation"
	calchandler "calculation/internal/calculation/handler"
	"calculation/internal/percentage/cache"
	percentagemetrics "calculation/internal/percentage/metrics"
	"calculation/internal/percentage/ports"
	percentage "calculation/internal/percentage/service"
	"calculation/internal/percentage/source"
	"calculation/internal/platform/config"
	"calculation/internal/platform/database"
	"calculation/internal/platform/metrics"
	"calculation/internal/platform/redis"
	ratelimitmetrics "calculation/internal/ratelimit/metrics"
	ratelimitmw "calculation/internal/ratelimit/middleware"
	"calculation/internal/ratelimit/models"
	ratelimit "calculation/internal/ratelimit/service"
	"calculation/internal/ratelimit/store/tokenbucket"
	"calculation/internal/ratelimit/store/window"
	httptransport "calculation/internal/transport/http"
)

type application struct {
	deps     httptransport.Dependencies
	recorder *audit.Recorder
}

// build assembles every component. Redis and the database are optional: when
// absent the in-memory cache and audit store are used.
func build(ctx context.Context, cfg config.Config, log *slog.Logger, reg *prometheus.Registry, redisClient *redis.Client, db *database.DB) (*application, error) {
	var health []httptransport.HealthCheck

	cacheStore, err := buildCache(redisClient, log)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		health = append(health, httptransport.HealthCheck{Name: "redis", Check: redisClient.Health})
	}

	auditStore, err := buildAuditStore(ctx, db, log)
	if err != nil {
		return nil, err
	}
	if db != nil {
		health = append(health, httptransport.HealthCheck{Name: "database", Check: db.Health})
	}

	src, err := buildSource(cfg.Percentage, log)
	if err != nil {
		return nil, err
	}
	resolver, err := percentage.New(src, cacheStore,
		percentage.WithLogger(log),
		percentage.WithMetrics(percentagemetrics.New(reg)),
		percentage.WithMaxAttempts(cfg.Percentage.MaxAttempts),
		percentage.WithTTL(cfg.Percentage.CacheTTL),
		percentage.WithTimeouts(cfg.Percentage.AttemptTimeout, cfg.Percentage.CacheTimeout),
		percentage.WithExponentialBackOff(cfg.Percentage.InitialBackoff, cfg.Percentage.MaxBackoff),
	)
	if err != nil {
		return nil, fmt.Errorf("create percentage resolver: %w", err)
	}

	calcService, err := calculation.New(resolver, calculation.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("create calculation service: %w", err)
	}

	limiter, err := ratelimit.New(buildBucketStore(cfg.RateLimit.Policy),
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(ratelimitmetrics.New(reg)),
		ratelimit.WithLimit(models.LimiterCalculation, models.Limit{
			Capacity: cfg.RateLimit.Capacity,
			Window:   cfg.RateLimit.Window,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}

	recorder, err := audit.NewRecorder(auditStore,
		audit.WithLogger(log),
		audit.WithMetrics(auditmetrics.New(reg)),
		audit.WithWorkers(cfg.Audit.Workers),
		audit.WithBufferSize(cfg.Audit.BufferSize),
		audit.WithWriteTimeout(cfg.Audit.WriteTimeout),
		audit.WithCircuitBreaker(audit.NewCircuitBreaker(cfg.Audit.BreakerThreshold, cfg.Audit.BreakerCooldown)),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit recorder: %w", err)
	}
	query, err := audit.NewQueryService(auditStore)
	if err != nil {
		return nil, fmt.Errorf("create audit query service: %w", err)
	}

	log.Info("components ready",
		"rate_limit_policy", cfg.RateLimit.Policy,
		"rate_limit_capacity", cfg.RateLimit.Capacity,
		"rate_limit_window", cfg.RateLimit.Window.String(),
		"audit_rejected_requests", cfg.Audit.AuditRejected,
	)

	return &application{
		recorder: recorder,
		deps: httptransport.Dependencies{
			Logger:        log,
			Metrics:       metrics.New(reg),
			Gatherer:      reg,
			Calculation:   calchandler.New(calcService, log),
			Audit:         audithandler.New(query, log),
			Limiter:       ratelimitmw.New(limiter, log, ratelimitmw.WithDisabled(cfg.RateLimit.Disabled)),
			Recorder:      recorder,
			Health:        health,
			AuditRejected: cfg.Audit.AuditRejected,
		},
	}, nil
}

func buildCache(redisClient *redis.Client, log *slog.Logger) (ports.CacheStore, error) {
	if redisClient == nil {
		log.Warn("REDIS_URL not set, using in-memory percentage cache")
		return cache.NewInMemoryStore(), nil
	}
	store, err := cache.NewRedisStore(redisClient.Client, cache.WithKeyPrefix("calc:"))
	if err != nil {
		return nil, fmt.Errorf("create redis cache: %w", err)
	}
	return store, nil
}

func buildAuditStore(ctx context.Context, db *database.DB, log *slog.Logger) (audit.Store, error) {
	if db == nil {
		log.Warn("DB_DSN not set, audit records are kept in memory")
		return auditmemory.NewInMemoryStore(), nil
	}
	store, err := sqlstore.New(db.DB, db.Driver)
	if err != nil {
		return nil, fmt.Errorf("create audit store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func buildSource(cfg config.PercentageConfig, log *slog.Logger) (ports.Source, error) {
	if cfg.UpstreamURL == "" {
		log.Warn("PERCENTAGE_UPSTREAM_URL not set, using static percentage", "value", cfg.StaticValue.String())
		return source.NewStatic(cfg.StaticValue), nil
	}
	src, err := source.NewHTTP(cfg.UpstreamURL,
		source.WithHTTPClient(&http.Client{Timeout: cfg.AttemptTimeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("create percentage source: %w", err)
	}
	return src, nil
}

func buildBucketStore(policy string) ratelimit.BucketStore {
	if policy == config.PolicyTokenBucket {
		return tokenbucket.New()
	}
	return window.New()
}
