package auth

import (
	"errors"
	"net/http"

	"github.com/jonwraymond/querycache/observe"
)

// Middleware authenticates every request with authn and requires role.
// Rejections answer 401 for credential problems and 403 for a missing
// role. An empty role admits any authenticated identity.
func Middleware(authn Authenticator, role string, logger observe.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			id, err := authn.Authenticate(ctx, r.Header)
			if err == nil && role != "" && !id.HasRole(role) {
				err = ErrForbidden
			}
			if err != nil {
				code := http.StatusUnauthorized
				if errors.Is(err, ErrForbidden) {
					code = http.StatusForbidden
				}
				logger.Warn(ctx, "admin request rejected",
					observe.F("path", r.URL.Path),
					observe.F("principal", id.principal()),
					observe.F("error", err),
				)
				http.Error(w, http.StatusText(code), code)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, id)))
		})
	}
}

func (id *Identity) principal() string {
	if id == nil {
		return ""
	}
	return id.Principal
}
