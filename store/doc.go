// Package store persists authentication snapshots in Redis, keyed by an
// opaque session identifier.
//
// Values are the binary wire encoding; the Redis TTL tracks the snapshot
// expiration so expired sessions vanish on their own. Loading re-decodes
// through the type system, which re-derives the trust level, so a stale
// store can never resurrect a higher level than the expirations warrant.
package store
