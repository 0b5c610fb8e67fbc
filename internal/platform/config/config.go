package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the full process configuration, grouped by concern.
type Config struct {
	Server     Server
	Redis      RedisConfig
	Database   DatabaseConfig
	Percentage PercentageConfig
	RateLimit  RateLimitConfig
	Audit      AuditConfig
	Log        LogConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// RedisConfig configures the shared Redis client. An empty URL means the
// in-memory cache is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig selects the audit store. An empty DSN keeps records in memory.
type DatabaseConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// PercentageConfig drives the percentage resolver.
type PercentageConfig struct {
	// UpstreamURL is the external percentage endpoint. Empty selects the
	// static source.
	UpstreamURL    string
	StaticValue    decimal.Decimal
	CacheTTL       time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	AttemptTimeout time.Duration
	CacheTimeout   time.Duration
}

// RateLimitConfig drives the admission controller on the gated route.
type RateLimitConfig struct {
	Policy   string
	Capacity int
	Window   time.Duration
	Disabled bool
}

// AuditConfig drives the asynchronous audit recorder.
type AuditConfig struct {
	Workers          int
	BufferSize       int
	WriteTimeout     time.Duration
	AuditRejected    bool
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

const (
	PolicyFixedWindow = "fixed_window"
	PolicyTokenBucket = "token_bucket"

	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite"
)

// PercentageCacheTTL is how long a fetched percentage may be served as a fallback.
var PercentageCacheTTL = 30 * time.Minute

// FromEnv builds a Config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	p := &parser{}
	cfg := Config{
		Server: Server{
			Addr:              p.str("CALC_ADDR", ":8080"),
			ReadHeaderTimeout: p.duration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			WriteTimeout:      p.duration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       p.duration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:   p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			URL:          p.str("REDIS_URL", ""),
			PoolSize:     p.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: DatabaseConfig{
			Driver:       p.str("DB_DRIVER", DriverPostgres),
			DSN:          p.str("DB_DSN", ""),
			MaxOpenConns: p.int("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: p.int("DB_MAX_IDLE_CONNS", 5),
		},
		Percentage: PercentageConfig{
			UpstreamURL:    p.str("PERCENTAGE_UPSTREAM_URL", ""),
			StaticValue:    p.decimal("PERCENTAGE_STATIC_VALUE", decimal.NewFromInt(10)),
			CacheTTL:       p.duration("PERCENTAGE_CACHE_TTL", PercentageCacheTTL),
			MaxAttempts:    p.int("PERCENTAGE_MAX_ATTEMPTS", 3),
			InitialBackoff: p.duration("PERCENTAGE_INITIAL_BACKOFF", 100*time.Millisecond),
			MaxBackoff:     p.duration("PERCENTAGE_MAX_BACKOFF", time.Second),
			AttemptTimeout: p.duration("PERCENTAGE_ATTEMPT_TIMEOUT", 2*time.Second),
			CacheTimeout:   p.duration("PERCENTAGE_CACHE_TIMEOUT", 500*time.Millisecond),
		},
		RateLimit: RateLimitConfig{
			Policy:   p.str("RATE_LIMIT_POLICY", PolicyFixedWindow),
			Capacity: p.int("RATE_LIMIT_CAPACITY", 3),
			Window:   p.duration("RATE_LIMIT_WINDOW", time.Minute),
			Disabled: p.bool("DISABLE_RATE_LIMITING", false),
		},
		Audit: AuditConfig{
			Workers:          p.int("AUDIT_WORKERS", 4),
			BufferSize:       p.int("AUDIT_BUFFER_SIZE", 1024),
			WriteTimeout:     p.duration("AUDIT_WRITE_TIMEOUT", 5*time.Second),
			AuditRejected:    p.bool("AUDIT_REJECTED_REQUESTS", false),
			BreakerThreshold: p.int("AUDIT_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  p.duration("AUDIT_BREAKER_COOLDOWN", 30*time.Second),
		},
		Log: LogConfig{
			Level:  p.str("LOG_LEVEL", "info"),
			Format: p.str("LOG_FORMAT", "json"),
		},
	}

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate rejects values the components cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Percentage.MaxAttempts < 1 {
		errs = append(errs, errors.New("PERCENTAGE_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Percentage.CacheTTL <= 0 {
		errs = append(errs, errors.New("PERCENTAGE_CACHE_TTL must be positive"))
	}
	if c.RateLimit.Capacity < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_CAPACITY must be at least 1"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	switch c.RateLimit.Policy {
	case PolicyFixedWindow, PolicyTokenBucket:
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_POLICY %q is not one of %s, %s", c.RateLimit.Policy, PolicyFixedWindow, PolicyTokenBucket))
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverPgx, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not one of %s, %s, %s", c.Database.Driver, DriverPostgres, DriverPgx, DriverSQLite))
	}
	if c.Audit.Workers < 1 {
		errs = append(errs, errors.New("AUDIT_WORKERS must be at least 1"))
	}
	if c.Audit.BufferSize < 0 {
		errs = append(errs, errors.New("AUDIT_BUFFER_SIZE must not be negative"))
	}
	return errors.Join(errs...)
}

// parser reads typed values and collects every malformed one so a single
// startup error lists them all.
type parser struct {
	errs []error
}

func (p *parser) str(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (p *parser) int(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func (p *parser) bool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func (p *parser) decimal(key string, fallback decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
