// Package observe provides observability primitives for cache operations.
//
// It is a pure instrumentation library: no caching, no transport, no I/O
// beyond exporter setup. The cache engine receives an Instrumenter and
// reports every lookup, factory execution and invalidation through it.
package observe
