package auth

import "errors"

var (
	// ErrMissingCredentials indicates the request carried no credential
	// an authenticator understands.
	ErrMissingCredentials = errors.New("auth: missing credentials")

	// ErrInvalidCredentials indicates a credential that failed validation.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrTokenExpired indicates an expired token or key.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrForbidden indicates an authenticated identity lacking a role.
	ErrForbidden = errors.New("auth: access denied")
)
