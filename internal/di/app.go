package di

import (
	"context"
	"errors"
	"net/http"

	"github.com/jonwraymond/querycache/cache"
	"github.com/jonwraymond/querycache/health"
	"github.com/jonwraymond/querycache/internal/config"
	"github.com/jonwraymond/querycache/observe"
)

// App is the assembled service.
type App struct {
	Config *config.Config
	Cache  *cache.HybridCache
	Health *health.Aggregator
	Shared Shared
	Server *http.Server
	Logger observe.Logger
}

// Run subscribes to peer invalidations and serves the admin API until ctx
// ends, then shuts the server down within Config.Admin.ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	if a.Shared.Invalidator != nil {
		stop, err := a.Shared.Invalidator.Subscribe(ctx, a.Cache.HandleInvalidation)
		if err != nil {
			return err
		}
		defer func() { _ = stop() }()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info(ctx, "admin server listening",
			observe.F("addr", a.Server.Addr),
			observe.F("shared_tier", a.Config.SharedEnabled()),
		)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Admin.ShutdownTimeout)
	defer cancel()
	a.Logger.Info(shutdownCtx, "shutting down")
	return a.Server.Shutdown(shutdownCtx)
}
