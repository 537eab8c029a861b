// Package auth authenticates callers of the cache administration API.
//
// Two credential kinds are supported: HMAC-signed JWT bearer tokens and
// static API keys. A Chain tries authenticators in order, and Middleware
// turns a Chain plus a required role into an http middleware that stores
// the resulting Identity in the request context.
package auth
