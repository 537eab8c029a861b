// Package config loads querycached settings from the environment.
//
// A .env file is read first when present; variables already set in the
// process environment win. Every value then passes through a
// secret.Resolver, so QC_REDIS_PASSWORD=secretref:file:redis/password
// reads the password from QC_SECRETS_DIR/redis/password.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/jonwraymond/querycache/cache"
	"github.com/jonwraymond/querycache/cache/redistier"
	"github.com/jonwraymond/querycache/observe"
	"github.com/jonwraymond/querycache/secret"
)

// ErrInvalidConfig wraps every validation and parse failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is the complete service configuration.
type Config struct {
	Cache   CacheConfig
	Redis   redistier.Config
	Admin   AdminConfig
	Observe observe.Config
}

// CacheConfig holds engine defaults. The expirations apply to entries
// written through the admin API and are the defaults handed to code that
// embeds the cache through di.App.
type CacheConfig struct {
	Expiration        time.Duration
	LocalExpiration   time.Duration
	FailureExpiration time.Duration
	LocalMaxEntries   int
	SharedPolicy      cache.SharedFailurePolicy

	// MemoryBudget is the heap budget in bytes; zero uses the runtime heap size.
	MemoryBudget uint64
}

// AdminConfig configures the administration HTTP server.
type AdminConfig struct {
	Addr            string
	JWTSecret       string
	APIKey          string
	Role            string
	ShutdownTimeout time.Duration

	// RateLimit is the per-client request rate on /cache routes; zero disables it.
	RateLimit float64
	RateBurst int
}

// SharedEnabled reports whether a Redis shared tier is configured.
func (c *Config) SharedEnabled() bool { return c.Redis.Address != "" }

// Settings returns the default per-entry settings.
func (c *Config) Settings() cache.Settings {
	return cache.Settings{
		Expiration:        c.Cache.Expiration,
		LocalExpiration:   c.Cache.LocalExpiration,
		FailureExpiration: c.Cache.FailureExpiration,
	}
}

// Validate checks ranges and cross-field requirements.
func (c *Config) Validate() error {
	if err := c.Settings().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Cache.LocalMaxEntries < 0 {
		return fmt.Errorf("%w: QC_LOCAL_MAX_ENTRIES must not be negative", ErrInvalidConfig)
	}
	if c.Redis.DB < 0 || c.Redis.PoolSize < 0 {
		return fmt.Errorf("%w: redis db and pool size must not be negative", ErrInvalidConfig)
	}
	if c.Admin.RateLimit < 0 || c.Admin.RateBurst < 0 {
		return fmt.Errorf("%w: admin rate limit and burst must not be negative", ErrInvalidConfig)
	}
	if c.Admin.Addr != "" && c.Admin.JWTSecret == "" && c.Admin.APIKey == "" {
		return fmt.Errorf("%w: admin server needs QC_ADMIN_JWT_SECRET or QC_ADMIN_API_KEY", ErrInvalidConfig)
	}
	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Load reads envFiles (".env" when none are given, ignored if absent),
// resolves secrets and returns a validated Config.
func Load(ctx context.Context, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	secretsDir, err := secret.ExpandEnvStrict(os.Getenv("QC_SECRETS_DIR"))
	if err != nil {
		return nil, err
	}
	r := &reader{
		ctx:      ctx,
		resolver: secret.NewResolver(true, secret.EnvProvider{}, secret.FileProvider{Dir: secretsDir}),
	}

	defaults := cache.DefaultSettings()
	cfg := &Config{
		Cache: CacheConfig{
			Expiration:        r.getDuration("QC_EXPIRATION", defaults.Expiration),
			LocalExpiration:   r.getDuration("QC_LOCAL_EXPIRATION", defaults.LocalExpiration),
			FailureExpiration: r.getDuration("QC_FAILURE_EXPIRATION", defaults.FailureExpiration),
			LocalMaxEntries:   r.getInt("QC_LOCAL_MAX_ENTRIES", 10000),
		},
		Redis: redistier.Config{
			Address:  r.getString("QC_REDIS_ADDRESS", ""),
			Password: r.getString("QC_REDIS_PASSWORD", ""),
			DB:       r.getInt("QC_REDIS_DB", 0),
			PoolSize: r.getInt("QC_REDIS_POOL_SIZE", 10),
			Prefix:   r.getString("QC_REDIS_PREFIX", "qc:"),
		},
		Admin: AdminConfig{
			Addr:            r.getString("QC_ADMIN_ADDR", ":8080"),
			JWTSecret:       r.getString("QC_ADMIN_JWT_SECRET", ""),
			APIKey:          r.getString("QC_ADMIN_API_KEY", ""),
			Role:            r.getString("QC_ADMIN_ROLE", "cache-admin"),
			ShutdownTimeout: r.getDuration("QC_SHUTDOWN_TIMEOUT", 10*time.Second),
			RateLimit:       r.getFloat("QC_ADMIN_RATE_LIMIT", 5),
			RateBurst:       r.getInt("QC_ADMIN_RATE_BURST", 10),
		},
	}

	if mb := r.getInt("QC_MEMORY_BUDGET_MB", 0); mb > 0 {
		cfg.Cache.MemoryBudget = uint64(mb) << 20
	}

	tracing := r.getString("QC_TRACING_EXPORTER", "none")
	metrics := r.getString("QC_METRICS_EXPORTER", "none")
	cfg.Observe = observe.Config{
		ServiceName: r.getString("QC_SERVICE_NAME", "querycached"),
		Version:     r.getString("QC_SERVICE_VERSION", "dev"),
		Tracing: observe.TracingConfig{
			Enabled:   tracing != "none",
			Exporter:  tracing,
			SamplePct: r.getFloat("QC_TRACING_SAMPLE_PCT", 1.0),
		},
		Metrics: observe.MetricsConfig{
			Enabled:  metrics != "none",
			Exporter: metrics,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   r.getString("QC_LOG_LEVEL", "info"),
		},
	}

	policy := r.getString("QC_SHARED_POLICY", "failfast")
	if r.err == nil {
		cfg.Cache.SharedPolicy, r.err = cache.ParseSharedFailurePolicy(policy)
		if r.err != nil {
			r.err = fmt.Errorf("%w: QC_SHARED_POLICY: %w", ErrInvalidConfig, r.err)
		}
	}
	if r.err != nil {
		return nil, r.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// reader resolves variables and keeps the first error.
type reader struct {
	ctx      context.Context
	resolver *secret.Resolver
	err      error
}

func (r *reader) getString(name, def string) string {
	if r.err != nil {
		return def
	}
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return def
	}
	v, err := r.resolver.Resolve(r.ctx, raw)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", name, err)
		return def
	}
	return v
}

func (r *reader) getDuration(name string, def time.Duration) time.Duration {
	s := r.getString(name, "")
	if s == "" || r.err != nil {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		r.err = fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		return def
	}
	return d
}

func (r *reader) getInt(name string, def int) int {
	s := r.getString(name, "")
	if s == "" || r.err != nil {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.err = fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		return def
	}
	return n
}

func (r *reader) getFloat(name string, def float64) float64 {
	s := r.getString(name, "")
	if s == "" || r.err != nil {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.err = fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		return def
	}
	return f
}
