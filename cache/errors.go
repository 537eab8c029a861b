package cache

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrNilTier is returned when a required tier is nil.
	ErrNilTier = errors.New("cache: tier is nil")

	// ErrInvalidKey is returned for blank keys or keys containing line breaks.
	ErrInvalidKey = errors.New("cache: key is invalid")

	// ErrKeyTooLong is returned when a key exceeds MaxKeyLength.
	ErrKeyTooLong = errors.New("cache: key exceeds max length")

	// ErrInvalidSettings is returned when Settings fail validation.
	ErrInvalidSettings = errors.New("cache: invalid settings")

	// ErrNilFactory is returned when no factory is supplied.
	ErrNilFactory = errors.New("cache: factory is nil")

	// ErrStoreUnavailable wraps shared tier faults.
	ErrStoreUnavailable = errors.New("cache: shared store unavailable")

	// ErrCorruptEntry is reported when a stored envelope cannot be decoded.
	ErrCorruptEntry = errors.New("cache: corrupt entry")

	// ErrFactoryPanic is returned to every joined caller when a factory panics.
	ErrFactoryPanic = errors.New("cache: factory panicked")
)
