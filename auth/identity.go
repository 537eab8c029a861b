package auth

import (
	"slices"
	"time"
)

// Method indicates how an identity was authenticated.
type Method string

const (
	MethodJWT    Method = "jwt"
	MethodAPIKey Method = "api_key"
)

// Identity is an authenticated principal.
type Identity struct {
	Principal string
	Roles     []string
	Method    Method
	ExpiresAt time.Time
}

// HasRole reports whether the identity carries role.
func (id *Identity) HasRole(role string) bool {
	return id != nil && slices.Contains(id.Roles, role)
}
