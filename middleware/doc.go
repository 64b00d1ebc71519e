// Package middleware exposes HTTP adapters that decode a bearer token into
// an authentication snapshot and attach it to the request context.
//
// Two guards are provided:
//
//   - [Require] rejects with 401 unless the decoded snapshot is at least
//     Normal after an expiration check.
//   - [Attach] never rejects; it attaches whatever snapshot the token
//     yields (the None sentinel when there is no usable token) so
//     handlers can decide for themselves.
//
// This package translates HTTP semantics into token and model calls. It
// does not verify credentials, decide authorization policy, or talk to
// storage.
package middleware
