// Package redis opens the shared Redis connection used by the percentage cache.
package redis

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"calculation/internal/platform/config"
)

// Client is the pooled go-redis client shared by the cache and health check.
type Client struct {
	*redis.Client
}

// Open connects and pings Redis. Returns nil if no URL is configured.
func Open(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return &Client{Client: rdb}, nil
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// PoolCollector exports connection pool statistics for c.
func PoolCollector(c *Client) prometheus.Collector {
	return &poolCollector{
		client: c,
		hits: prometheus.NewDesc("calculation_redis_pool_hits_total",
			"Times a free connection was found in the pool.", nil, nil),
		misses: prometheus.NewDesc("calculation_redis_pool_misses_total",
			"Times a free connection was not found in the pool.", nil, nil),
		timeouts: prometheus.NewDesc("calculation_redis_pool_timeouts_total",
			"Times a wait for a connection timed out.", nil, nil),
		total: prometheus.NewDesc("calculation_redis_pool_connections",
			"Connections in the pool.", nil, nil),
		idle: prometheus.NewDesc("calculation_redis_pool_idle_connections",
			"Idle connections in the pool.", nil, nil),
	}
}

type poolCollector struct {
	client                              *Client
	hits, misses, timeouts, total, idle *prometheus.Desc
}

func (p *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.hits
	ch <- p.misses
	ch <- p.timeouts
	ch <- p.total
	ch <- p.idle
}

func (p *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := p.client.PoolStats()
	ch <- prometheus.MustNewConstMetric(p.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(p.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(p.timeouts, prometheus.CounterValue, float64(stats.Timeouts))
	ch <- prometheus.MustNewConstMetric(p.total, prometheus.GaugeValue, float64(stats.TotalConns))
	ch <- prometheus.MustNewConstMetric(p.idle, prometheus.GaugeValue, float64(stats.IdleConns))
}
