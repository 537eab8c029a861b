package admin

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jonwraymond/querycache/auth"
	"github.com/jonwraymond/querycache/cache"
	"github.com/jonwraymond/querycache/health"
	"github.com/jonwraymond/querycache/observe"
	"github.com/jonwraymond/querycache/resilience"
)

// Deps are the collaborators of the admin router.
type Deps struct {
	Cache         cache.QueryService
	Health        *health.Aggregator
	Authenticator auth.Authenticator
	Role          string
	Logger        observe.Logger

	// Settings apply to entries written through PUT /cache/keys/{key}.
	Settings cache.Settings

	// RateLimiter throttles /cache requests per client address ahead of
	// authentication when set.
	RateLimiter *resilience.RateLimiter

	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the admin router.
func NewRouter(d Deps) *mux.Router {
	logger := d.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}

	r := mux.NewRouter()
	r.Use(loggingMiddleware(logger))

	if d.Health != nil {
		health.RegisterHandlers(r, d.Health)
	}
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics).Methods(http.MethodGet)
	}

	h := NewHandlers(d.Cache, d.Settings, logger)
	protected := r.PathPrefix("/cache").Subrouter()
	if d.RateLimiter != nil {
		protected.Use(rateLimitMiddleware(d.RateLimiter, logger))
	}
	protected.Use(auth.Middleware(d.Authenticator, d.Role, logger))
	protected.HandleFunc("/keys/{key:.+}", h.SetKey).Methods(http.MethodPut)
	protected.HandleFunc("/keys/{key:.+}", h.RemoveKey).Methods(http.MethodDelete)
	protected.HandleFunc("/tags/invalidate", h.InvalidateTags).Methods(http.MethodPost)
	protected.HandleFunc("/tags/{tag}", h.RemoveTag).Methods(http.MethodDelete)

	return r
}

// NewServer wraps handler in an http.Server with conservative timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
