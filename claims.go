package authinfo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Claim type names. The "acr" claim carries the level for consumers but is
// deliberately ignored on decode: the level is always re-derived from the
// expirations so it cannot be spoofed through the wire format.
const (
	ClaimUserID   = "id"
	ClaimUserName = "name"
	ClaimSchemes  = "schemes"
	ClaimLevel    = "acr"
	ClaimExpires  = "exp"
	ClaimCritical = "cexp"
	ClaimDeviceID = "device"
)

// Claim is one typed string value of a claims identity.
type Claim struct {
	Type  string
	Value string
}

// Identity is the claims-identity wire form of a snapshot: a primary
// identity carrying the presented user's claims and, when impersonation or
// unsafe data must travel, a subordinate Actor identity carrying the
// actual user, the level marker and the expirations.
type Identity struct {
	// AuthenticationType is the identity type tag: the type system's full
	// tag for a complete export, the "-S" suffixed tag for the safe
	// user-only export. Decoders reject any other value.
	AuthenticationType string
	Claims             []Claim
	Actor              *Identity
}

// Get returns the first claim value of the given type.
func (id *Identity) Get(claimType string) (string, bool) {
	for _, c := range id.Claims {
		if c.Type == claimType {
			return c.Value, true
		}
	}
	return "", false
}

func (id *Identity) add(claimType, value string) {
	id.Claims = append(id.Claims, Claim{Type: claimType, Value: value})
}

// IsAuthenticated reports whether this identity denotes an authenticated
// user. A non-empty type tag is not enough: an identity whose name claim
// is empty is never authenticated, whatever else it carries. Security
// filters must rely on this rule rather than on the tag alone.
func (id *Identity) IsAuthenticated() bool {
	if id == nil || id.AuthenticationType == "" {
		return false
	}
	name, _ := id.Get(ClaimUserName)
	return name != ""
}

// UserToClaims exports a user as its three claims: name, id and the
// schemes as a compact JSON array. Nil in, nil out.
func (ts *TypeSystem) UserToClaims(u *UserInfo) []Claim {
	if u == nil {
		return nil
	}
	schemes, _ := json.Marshal(schemesToAny(u.Schemes()))
	return []Claim{
		{Type: ClaimUserName, Value: u.UserName()},
		{Type: ClaimUserID, Value: strconv.Itoa(u.UserID())},
		{Type: ClaimSchemes, Value: string(schemes)},
	}
}

// UserFromClaims rebuilds a user from its claims. A user id claim of 0
// short-circuits to the anonymous. Nil claims decode to nil.
func (ts *TypeSystem) UserFromClaims(claims []Claim) (*UserInfo, error) {
	if claims == nil {
		return nil, nil
	}
	id := 0
	name := ""
	var schemes []SchemeUse
	for _, c := range claims {
		switch c.Type {
		case ClaimUserID:
			v, err := strconv.Atoi(c.Value)
			if err != nil {
				return nil, formatErr(c.Value, fmt.Errorf("claim %q: %w", ClaimUserID, err))
			}
			if v == 0 {
				return ts.Anonymous(), nil
			}
			id = v
		case ClaimUserName:
			name = c.Value
		case ClaimSchemes:
			var raw []any
			if err := json.Unmarshal([]byte(c.Value), &raw); err != nil {
				return nil, formatErr(c.Value, err)
			}
			parsed, err := schemesFromAny(raw)
			if err != nil {
				return nil, formatErr(c.Value, err)
			}
			schemes = parsed
		}
	}
	u, err := NewUserInfo(id, name, schemes...)
	if err != nil {
		return nil, formatErr(fmt.Sprintf("id=%d name=%q", id, name), err)
	}
	return u, nil
}

// ToClaimsIdentity exports a snapshot as a claims identity. With
// userInfoOnly the export uses the simple tag and only the safe User's
// claims plus the expirations; otherwise the unsafe user travels on the
// primary identity and, when impersonated, the actual user travels on the
// Actor identity, which then also bears the level and expiration claims.
// Nil in, nil out.
func (ts *TypeSystem) ToClaimsIdentity(a *AuthenticationInfo, userInfoOnly bool) *Identity {
	if a == nil {
		return nil
	}
	var id *Identity
	if userInfoOnly {
		id = &Identity{AuthenticationType: ts.ClaimsAuthenticationTypeSimple(), Claims: ts.UserToClaims(a.User())}
	} else {
		id = &Identity{AuthenticationType: ts.ClaimsAuthenticationType(), Claims: ts.UserToClaims(a.UnsafeUser())}
	}
	bearer := id
	if !userInfoOnly {
		if a.IsImpersonated() {
			bearer = &Identity{AuthenticationType: ts.ClaimsAuthenticationType(), Claims: ts.UserToClaims(a.UnsafeActualUser())}
			id.Actor = bearer
		}
		bearer.add(ClaimLevel, a.Level().String())
	}
	if !a.Expires().IsZero() {
		bearer.add(ClaimExpires, strconv.FormatInt(a.Expires().Unix(), 10))
	}
	if !a.CriticalExpires().IsZero() {
		bearer.add(ClaimCritical, strconv.FormatInt(a.CriticalExpires().Unix(), 10))
	}
	if a.DeviceID() != "" {
		bearer.add(ClaimDeviceID, a.DeviceID())
	}
	return id
}

// FromClaimsIdentity rebuilds a snapshot from a claims identity,
// re-deriving the level against the type system clock. An identity whose
// type tag is neither the full nor the simple tag is not ours: the result
// is nil with a nil error, so callers can tell "not our format" from "our
// format but broken". Expirations have second precision on this codec.
func (ts *TypeSystem) FromClaimsIdentity(id *Identity) (*AuthenticationInfo, error) {
	if id == nil ||
		(id.AuthenticationType != ts.ClaimsAuthenticationType() &&
			id.AuthenticationType != ts.ClaimsAuthenticationTypeSimple()) {
		return nil, nil
	}
	user, err := ts.UserFromClaims(id.Claims)
	if err != nil {
		return nil, err
	}
	var actualUser *UserInfo
	bearer := id
	if id.Actor != nil {
		actualUser, err = ts.UserFromClaims(id.Actor.Claims)
		if err != nil {
			return nil, err
		}
		bearer = id.Actor
	}
	expires, err := unixClaim(bearer, ClaimExpires)
	if err != nil {
		return nil, err
	}
	critical, err := unixClaim(bearer, ClaimCritical)
	if err != nil {
		return nil, err
	}
	deviceID, _ := bearer.Get(ClaimDeviceID)
	return newAuthenticationInfo(ts, actualUser, user, expires, critical, deviceID, ts.Now())
}

func unixClaim(id *Identity, claimType string) (time.Time, error) {
	v, ok := id.Get(claimType)
	if !ok {
		return time.Time{}, nil
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, formatErr(v, fmt.Errorf("claim %q: %w", claimType, err))
	}
	return time.Unix(secs, 0).UTC(), nil
}
