// Package admin serves the cache administration HTTP API.
//
// Routes:
//
//	DELETE /cache/keys/{key}        remove one entry, key may contain "/"
//	DELETE /cache/tags/{tag}        remove every entry carrying tag
//	POST   /cache/tags/invalidate   remove entries for {"tags": [...]}
//	GET    /healthz /readyz /health /health/{name}
//	GET    /metrics                 when a metrics handler is configured
//
// Cache routes require an authenticated identity holding the admin role;
// health and metrics routes are open.
package admin
