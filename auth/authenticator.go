package auth

import (
	"context"
	"errors"
	"net/http"
)

// Authenticator validates the credentials carried by request headers.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: ErrMissingCredentials when the headers carry nothing this
//     authenticator understands; ErrInvalidCredentials or ErrTokenExpired
//     when a credential is present but rejected.
type Authenticator interface {
	Name() string
	Authenticate(ctx context.Context, h http.Header) (*Identity, error)
}

// Chain tries each authenticator in order. The first one that finds a
// credential decides the outcome.
type Chain []Authenticator

// Authenticate implements Authenticator.
func (c Chain) Authenticate(ctx context.Context, h http.Header) (*Identity, error) {
	for _, a := range c {
		id, err := a.Authenticate(ctx, h)
		if errors.Is(err, ErrMissingCredentials) {
			continue
		}
		return id, err
	}
	return nil, ErrMissingCredentials
}

// Name returns "chain".
func (c Chain) Name() string { return "chain" }

var _ Authenticator = Chain(nil)
