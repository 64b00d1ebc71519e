// Package authinfo models authenticated session state: who is logged in, at
// what trust level, under what expiration schedule, and whether an
// administrator is impersonating another user.
//
// # Model
//
//   - [UserInfo] is an immutable identity record (id, name, schemes used).
//   - [AuthLevel] is an ordered trust tier: None < Unsafe < Normal < Critical.
//   - [AuthenticationInfo] is an immutable session snapshot combining an
//     actual (real) user, a current (possibly impersonated) user, two
//     expiration times, a device identifier, and a derived level.
//   - [TypeSystem] is the factory that owns the anonymous/none sentinels and
//     the extension hooks. Collaborators must always construct snapshots
//     through it, never by hand.
//
// Every update operation (SetExpires, Impersonate, CheckExpiration, ...)
// returns a new snapshot, or the receiver itself when nothing observable
// changed. No operation mutates; every value is safe to share across
// goroutines without locking.
//
// # Codecs
//
// Three converters move snapshots across process boundaries: a claims
// identity export (this package, carried over JWTs by the token
// subpackage), a JSON document (this package), and a compact binary stream
// (the wire subpackage). Decoding never trusts a transmitted level: the
// level is always re-derived from the expirations.
//
// # What this package must NOT do
//
//   - Verify credentials or tokens (it represents already-established
//     identity facts).
//   - Decide authorization policy.
//   - Perform network or storage I/O (see the store and middleware
//     subpackages for those boundaries).
package authinfo
