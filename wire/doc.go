// Package wire implements the compact binary encoding of authentication
// snapshots, for persisted sessions and RPC payloads.
//
// # Layout
//
// A snapshot stream is: presence byte (0 = nil, stream ends), format
// version byte, flag byte (bit0 impersonated, bit1 has-expires, bit2
// has-critical-expires, bit3 has-device), the user record, the actual-user
// record when impersonated, the two 8-byte big-endian timestamps when
// flagged, and the length-prefixed device string when flagged.
//
// A user record is: presence byte, 4-byte big-endian user id, length-
// prefixed name, scheme count byte, then per scheme a length-prefixed name
// and an 8-byte big-endian last-used timestamp (Unix nanoseconds).
//
// The format version byte lets readers reject unknown layouts instead of
// misparsing them; there is no other negotiation.
//
// Decoding re-derives the trust level through the type system: a stored
// stream never dictates its own level. Any failure mid-read surfaces as a
// single error matching [ErrInvalidFormat].
package wire
