// Package cache provides a two-tier query cache with stampede protection.
//
// A HybridCache reads through a fast process-local Tier and an optional
// shared Tier, runs at most one factory per key at a time, and caches
// failure results for a shorter duration than successes. Entries can carry
// tags so that whole groups of keys are invalidated together.
//
// The shared tier is usually a redistier.Tier wrapped in a ResilientTier.
// Removals are broadcast to peer processes through an Invalidator so that
// their local tiers do not keep serving stale copies.
package cache
