// Package token carries authentication snapshots over signed JWTs.
//
// The claims layout is the claims-identity export of the authinfo package
// flattened into a token: the identity type tag travels as "aty", the
// actual user of an impersonated snapshot as the nested "actor" object,
// and the expirations as numeric unix-second claims (so the standard "exp"
// validation of the JWT layer and the snapshot expiration coincide).
//
// Parsing verifies the signature and the registered claims, then hands the
// identity back to the type system, which re-derives the trust level from
// the expirations. A transmitted "acr" claim is never trusted. A token
// whose identity tag is not the type system's decodes to nil without
// error, so callers can tell foreign tokens from broken ones.
package token
