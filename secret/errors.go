package secret

import "errors"

var (
	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variable")

	// ErrProviderNotFound indicates a reference to an unregistered provider.
	ErrProviderNotFound = errors.New("secret: provider not registered")

	// ErrInvalidRef indicates a malformed or unsafe reference.
	ErrInvalidRef = errors.New("secret: invalid reference")

	// ErrEmptySecret indicates a strict resolver received an empty value.
	ErrEmptySecret = errors.New("secret: empty value")
)
