package admin

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jonwraymond/querycache/observe"
	"github.com/jonwraymond/querycache/resilience"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs one line per request at debug level, or warn
// for server errors.
func loggingMiddleware(logger observe.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			fields := []observe.Field{
				observe.F("method", r.Method),
				observe.F("path", r.URL.Path),
				observe.F("status", rec.status),
				observe.F("duration_ms", time.Since(start).Milliseconds()),
			}
			if rec.status >= http.StatusInternalServerError {
				logger.Warn(r.Context(), "admin request", fields...)
				return
			}
			logger.Debug(r.Context(), "admin request", fields...)
		})
	}
}

// rateLimitMiddleware answers 429 once a client address runs out of tokens.
// It runs before authentication so failed credential attempts are throttled too.
func rateLimitMiddleware(limiter *resilience.RateLimiter, logger observe.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddr(r)
			ok, wait := limiter.Allow(client)
			if !ok {
				logger.Warn(r.Context(), "admin request rate limited",
					observe.F("client", client),
					observe.F("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: resilience.ErrRateLimitExceeded.Error()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr is the host part of the peer address. Forwarding headers are
// ignored since they are caller-controlled.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
