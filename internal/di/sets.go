package di

import (
	"github.com/google/wire"

	"github.com/jonwraymond/querycache/cache"
	"github.com/jonwraymond/querycache/internal/admin"
)

// ObserveSet provides telemetry.
var ObserveSet = wire.NewSet(
	provideObserver,
	provideLogger,
	provideMetrics,
	provideTracer,
)

// CacheSet provides the tiers, the engine and its health checks.
var CacheSet = wire.NewSet(
	provideMemoryChecker,
	provideLocalTier,
	provideRedisClient,
	provideStoreExecutor,
	provideShared,
	provideCache,
	provideHealth,
	wire.Bind(new(cache.QueryService), new(*cache.HybridCache)),
)

// AdminSet provides the admin HTTP surface.
var AdminSet = wire.NewSet(
	provideAuthenticator,
	provideAdminDeps,
	admin.NewRouter,
	provideServer,
)

// ProviderSet is everything InitializeApp needs.
var ProviderSet = wire.NewSet(
	ObserveSet,
	CacheSet,
	AdminSet,
	wire.Struct(new(App), "Config", "Cache", "Health", "Shared", "Server", "Logger"),
)
