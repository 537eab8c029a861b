package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

// APIKeyHeader is the header carrying an API key.
const APIKeyHeader = "X-API-Key"

// APIKey describes one accepted key. Only the hash is kept.
type APIKey struct {
	Hash      string // HashAPIKey of the key
	Principal string
	Roles     []string
	ExpiresAt time.Time // zero means never
}

// APIKeyAuthenticator validates static API keys.
type APIKeyAuthenticator struct {
	keys []APIKey
	now  func() time.Time
}

// NewAPIKeyAuthenticator creates an authenticator accepting keys.
func NewAPIKeyAuthenticator(keys ...APIKey) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{keys: keys, now: time.Now}
}

// HashAPIKey returns the hex SHA-256 of key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string { return string(MethodAPIKey) }

// Authenticate looks up the X-API-Key header. Hashes are compared in
// constant time.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, h http.Header) (*Identity, error) {
	key := strings.TrimSpace(h.Get(APIKeyHeader))
	if key == "" {
		return nil, ErrMissingCredentials
	}

	hash := []byte(HashAPIKey(key))
	for _, k := range a.keys {
		if subtle.ConstantTimeCompare(hash, []byte(k.Hash)) != 1 {
			continue
		}
		if !k.ExpiresAt.IsZero() && a.now().After(k.ExpiresAt) {
			return nil, ErrTokenExpired
		}
		return &Identity{
			Principal: k.Principal,
			Roles:     k.Roles,
			Method:    MethodAPIKey,
			ExpiresAt: k.ExpiresAt,
		}, nil
	}
	return nil, ErrInvalidCredentials
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)
