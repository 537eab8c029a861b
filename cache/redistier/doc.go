// Package redistier backs the shared cache tier with Redis.
//
// It provides three cooperating pieces over one go-redis client:
//
//   - Tier: entry bytes under "<prefix>e:<key>" with SET EX semantics.
//   - TagIndex: "<prefix>t:<tag>" is a sorted set of keys scored by entry
//     expiry and "<prefix>k:<key>" holds the tags of a key. Both carry TTLs.
//   - Invalidator: a pub/sub channel "<prefix>invalidate" carrying removed
//     keys so peer processes can evict their local tier.
package redistier
