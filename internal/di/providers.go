// Package di wires querycached together with google/wire.
package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/querycache/auth"
	"github.com/jonwraymond/querycache/cache"
	"github.com/jonwraymond/querycache/cache/redistier"
	"github.com/jonwraymond/querycache/health"
	"github.com/jonwraymond/querycache/internal/admin"
	"github.com/jonwraymond/querycache/internal/config"
	"github.com/jonwraymond/querycache/observe"
	"github.com/jonwraymond/querycache/resilience"
)

// Shared groups the Redis-backed collaborators. Every field is nil when
// no Redis address is configured.
type Shared struct {
	Tier        cache.Tier
	TagIndex    cache.TagIndex
	Invalidator *redistier.Invalidator
	Checker     *cache.TierChecker
}

func provideObserver(ctx context.Context, cfg *config.Config) (observe.Observer, func(), error) {
	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, nil, fmt.Errorf("create observer: %w", err)
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(ctx)
	}
	return obs, cleanup, nil
}

func provideLogger(obs observe.Observer) observe.Logger {
	return obs.Logger()
}

func provideMetrics(obs observe.Observer) (observe.Metrics, error) {
	return observe.NewMetrics(obs.Meter())
}

func provideTracer(obs observe.Observer) observe.Tracer {
	return observe.NewTracer(obs.Tracer())
}

func provideMemoryChecker(cfg *config.Config) *health.MemoryChecker {
	return health.NewMemoryChecker(health.MemoryCheckerConfig{Budget: cfg.Cache.MemoryBudget})
}

// provideLocalTier applies memory pressure admission only when an explicit
// heap budget is configured.
func provideLocalTier(cfg *config.Config, mem *health.MemoryChecker) *cache.MemoryTier {
	tc := cache.MemoryTierConfig{MaxEntries: cfg.Cache.LocalMaxEntries}
	if cfg.Cache.MemoryBudget > 0 {
		tc.Pressure = mem.UnderPressure
	}
	return cache.NewMemoryTier(tc)
}

func provideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.SharedEnabled() {
		return nil, func() {}, nil
	}
	rdb, err := redistier.NewClient(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	return rdb, func() { _ = rdb.Close() }, nil
}

func provideStoreExecutor(logger observe.Logger) *resilience.Executor {
	return resilience.NewStoreExecutor(resilience.DefaultStorePolicy(), func(name string, from, to resilience.State) {
		logger.Warn(context.Background(), "circuit state changed",
			observe.F("circuit", name),
			observe.F("from", from.String()),
			observe.F("to", to.String()),
		)
	})
}

func provideShared(cfg *config.Config, rdb *redis.Client, exec *resilience.Executor, logger observe.Logger) (Shared, error) {
	if rdb == nil {
		return Shared{}, nil
	}
	tier, err := cache.NewResilientTier(redistier.NewTier(rdb, cfg.Redis.Prefix), exec)
	if err != nil {
		return Shared{}, err
	}
	return Shared{
		Tier:        tier,
		TagIndex:    redistier.NewTagIndex(rdb, cfg.Redis.Prefix),
		Invalidator: redistier.NewInvalidator(rdb, cfg.Redis.Prefix, logger),
		Checker:     cache.NewTierChecker("shared_tier", tier, exec.Breaker()),
	}, nil
}

func provideCache(cfg *config.Config, local *cache.MemoryTier, shared Shared, logger observe.Logger, metrics observe.Metrics, tracer observe.Tracer) (*cache.HybridCache, error) {
	opts := []cache.Option{
		cache.WithSharedFailurePolicy(cfg.Cache.SharedPolicy),
		cache.WithLogger(logger),
		cache.WithMetrics(metrics),
		cache.WithTracer(tracer),
	}
	if shared.Tier != nil {
		opts = append(opts,
			cache.WithSharedTier(shared.Tier),
			cache.WithTagIndex(shared.TagIndex),
			cache.WithInvalidator(shared.Invalidator),
		)
	}
	return cache.New(local, opts...)
}

func provideHealth(cfg *config.Config, mem *health.MemoryChecker, shared Shared) *health.Aggregator {
	agg := health.NewAggregator(health.AggregatorConfig{})
	agg.Register(mem, health.Optional)
	if shared.Checker != nil {
		crit := health.Critical
		if cfg.Cache.SharedPolicy == cache.Degrade {
			crit = health.Optional
		}
		agg.Register(shared.Checker, crit)
	}
	return agg
}

func provideAuthenticator(cfg *config.Config) (auth.Authenticator, error) {
	var chain auth.Chain
	if cfg.Admin.JWTSecret != "" {
		jwtAuth, err := auth.NewJWTAuthenticator(auth.JWTConfig{Secret: []byte(cfg.Admin.JWTSecret)})
		if err != nil {
			return nil, err
		}
		chain = append(chain, jwtAuth)
	}
	if cfg.Admin.APIKey != "" {
		chain = append(chain, auth.NewAPIKeyAuthenticator(auth.APIKey{
			Hash:      auth.HashAPIKey(cfg.Admin.APIKey),
			Principal: "api-key",
			Roles:     []string{cfg.Admin.Role},
		}))
	}
	return chain, nil
}

func provideAdminDeps(cfg *config.Config, svc cache.QueryService, agg *health.Aggregator, authn auth.Authenticator, logger observe.Logger) admin.Deps {
	d := admin.Deps{
		Cache:         svc,
		Health:        agg,
		Authenticator: authn,
		Role:          cfg.Admin.Role,
		Logger:        logger,
		Settings:      cfg.Settings(),
	}
	if cfg.Admin.RateLimit > 0 {
		d.RateLimiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:  cfg.Admin.RateLimit,
			Burst: cfg.Admin.RateBurst,
		})
	}
	if cfg.Observe.Metrics.Enabled && cfg.Observe.Metrics.Exporter == "prometheus" {
		d.Metrics = promhttp.Handler()
	}
	return d
}

func provideServer(cfg *config.Config, router *mux.Router) *http.Server {
	return admin.NewServer(cfg.Admin.Addr, router)
}
