package authinfo

import (
	"time"
)

// AuthenticationInfo is an immutable snapshot of authenticated session
// state. Snapshots are only built by a [TypeSystem]; every update operation
// returns a new snapshot (or the receiver when nothing observable changed)
// and re-derives the level from the expirations. The zero expiration time
// means "no expiration".
//
// The User and ActualUser accessors hide the identity once the level drops
// to Unsafe; the Unsafe accessors expose it regardless, so that an expired
// impersonation can still be audited and cleared.
type AuthenticationInfo struct {
	ts              *TypeSystem
	actualUser      *UserInfo
	user            *UserInfo
	expires         time.Time
	criticalExpires time.Time
	deviceID        string
	level           AuthLevel
	extra           any
}

// newAuthenticationInfo is the single construction path: it owns the level
// derivation. Every factory, codec and update operation funnels here.
func newAuthenticationInfo(ts *TypeSystem, actualUser, user *UserInfo, expires, criticalExpires time.Time, deviceID string, now time.Time) (*AuthenticationInfo, error) {
	now = now.UTC()
	if user == nil {
		if actualUser != nil {
			user = actualUser
		} else {
			user = ts.Anonymous()
			actualUser = user
		}
	} else if actualUser == nil {
		actualUser = user
	}
	var level AuthLevel
	if actualUser.id == 0 {
		user = actualUser
		expires = time.Time{}
		criticalExpires = time.Time{}
		level = LevelNone
	} else {
		if actualUser != user && actualUser.id == user.id {
			user = actualUser
		}
		var err error
		expires, err = normalizeExpiry(expires, now)
		if err != nil {
			return nil, err
		}
		if expires.IsZero() {
			criticalExpires = time.Time{}
			level = LevelUnsafe
		} else {
			criticalExpires, err = normalizeExpiry(criticalExpires, now)
			if err != nil {
				return nil, err
			}
			if criticalExpires.After(expires) {
				criticalExpires = expires
			}
			if criticalExpires.IsZero() {
				level = LevelNormal
			} else {
				level = LevelCritical
			}
		}
	}
	return &AuthenticationInfo{
		ts:              ts,
		actualUser:      actualUser,
		user:            user,
		expires:         expires,
		criticalExpires: criticalExpires,
		deviceID:        deviceID,
		level:           level,
	}, nil
}

// User returns the identity presented to the application when Level is
// Normal or Critical, and the anonymous when Level is Unsafe.
func (a *AuthenticationInfo) User() *UserInfo {
	if a.level == LevelUnsafe {
		return a.ts.Anonymous()
	}
	return a.user
}

// ActualUser returns the real authenticated identity when Level is Normal
// or Critical, and the anonymous when Level is Unsafe.
func (a *AuthenticationInfo) ActualUser() *UserInfo {
	if a.level == LevelUnsafe {
		return a.ts.Anonymous()
	}
	return a.actualUser
}

// UnsafeUser returns the presented identity whatever the Level is.
func (a *AuthenticationInfo) UnsafeUser() *UserInfo { return a.user }

// UnsafeActualUser returns the real identity whatever the Level is. This
// keeps an impersonation effective after expiration so an impersonated
// administrator can still be recognized and the impersonation cleared.
func (a *AuthenticationInfo) UnsafeActualUser() *UserInfo { return a.actualUser }

// Level returns the derived trust level.
func (a *AuthenticationInfo) Level() AuthLevel { return a.level }

// Expires returns the expiration time, zero when absent.
func (a *AuthenticationInfo) Expires() time.Time { return a.expires }

// CriticalExpires returns the critical-level expiration time, zero when
// absent. Never later than Expires.
func (a *AuthenticationInfo) CriticalExpires() time.Time { return a.criticalExpires }

// DeviceID returns the device identifier, empty when no device is bound.
// A device identifier is never trustable on its own: anything sent to a
// device should target the (DeviceID, UserID) pair and challenge the user.
func (a *AuthenticationInfo) DeviceID() string { return a.deviceID }

// IsImpersonated reports whether the presented user is not the actual
// user. The comparison is reference identity on *UserInfo.
func (a *AuthenticationInfo) IsImpersonated() bool { return a.user != a.actualUser }

// IsNullOrNone reports whether this snapshot carries no identity at all
// (nil receiver or Level None).
func (a *AuthenticationInfo) IsNullOrNone() bool { return a == nil || a.level == LevelNone }

// Extra returns the opaque extension state attached by a rebuild hook or
// WithExtra. Nil for plain snapshots.
func (a *AuthenticationInfo) Extra() any { return a.extra }

// WithExtra returns a copy of this snapshot carrying the given extension
// state. This is how rebuild hooks thread specialized fields (a tenant id
// for example) through every update without the base logic knowing them.
func (a *AuthenticationInfo) WithExtra(extra any) *AuthenticationInfo {
	n := *a
	n.extra = extra
	return &n
}

// rebuild funnels every update through the type system's rebuild hook so
// that specializations can carry their extension state into the new value.
func (a *AuthenticationInfo) rebuild(actualUser, user *UserInfo, expires, criticalExpires time.Time, deviceID string, now time.Time) *AuthenticationInfo {
	next, err := newAuthenticationInfo(a.ts, actualUser, user, expires, criticalExpires, deviceID, now)
	if err != nil {
		// All rebuild inputs are already normalized UTC values.
		panic(err)
	}
	return a.ts.rebuild(a, next)
}

// CheckExpiration re-evaluates the level against now. It returns the
// receiver unchanged when the level is below Normal or still within its
// critical window, a Normal clone when only the critical window lapsed,
// and an Unsafe clone (expirations cleared, identities retained unsafely)
// when the expiration lapsed.
func (a *AuthenticationInfo) CheckExpiration(now time.Time) *AuthenticationInfo {
	now = now.UTC()
	if a.level < LevelNormal || (a.level == LevelCritical && a.criticalExpires.After(now)) {
		return a
	}
	if a.expires.After(now) {
		if a.level == LevelNormal {
			return a
		}
		return a.rebuild(a.actualUser, a.user, a.expires, time.Time{}, a.deviceID, now)
	}
	return a.rebuild(a.actualUser, a.user, time.Time{}, time.Time{}, a.deviceID, now)
}

// SetExpires returns a snapshot with the new expiration (re-deriving the
// level), or this one after an expiration check when the value is
// unchanged. A local-location expires is rejected.
func (a *AuthenticationInfo) SetExpires(expires, now time.Time) (*AuthenticationInfo, error) {
	if !expires.IsZero() {
		if expires.Location() == time.Local {
			return nil, ErrLocalTime
		}
		expires = expires.UTC()
	}
	if equalTime(expires, a.expires) {
		return a.CheckExpiration(now), nil
	}
	return a.rebuild(a.actualUser, a.user, expires, a.criticalExpires, a.deviceID, now), nil
}

// SetCriticalExpires returns a snapshot with the new critical expiration.
// When the new critical expiration is later than Expires (or Expires is
// absent), Expires is boosted up to match: critical can never outlive the
// normal expiration.
func (a *AuthenticationInfo) SetCriticalExpires(criticalExpires, now time.Time) (*AuthenticationInfo, error) {
	if !criticalExpires.IsZero() {
		if criticalExpires.Location() == time.Local {
			return nil, ErrLocalTime
		}
		criticalExpires = criticalExpires.UTC()
	}
	if equalTime(criticalExpires, a.criticalExpires) {
		return a.CheckExpiration(now), nil
	}
	expires := a.expires
	if !criticalExpires.IsZero() && (expires.IsZero() || expires.Before(criticalExpires)) {
		expires = criticalExpires
	}
	return a.rebuild(a.actualUser, a.user, expires, criticalExpires, a.deviceID, now), nil
}

// Impersonate presents the given user while keeping the actual user. A nil
// user means the anonymous. Impersonating from the anonymous actual user
// fails with ErrImpersonateAnonymous. When the target is reference-equal
// to the current user this behaves as CheckExpiration.
func (a *AuthenticationInfo) Impersonate(user *UserInfo, now time.Time) (*AuthenticationInfo, error) {
	if user == nil {
		user = a.ts.Anonymous()
	}
	if a.actualUser.id == 0 {
		return nil, ErrImpersonateAnonymous
	}
	if a.user != user {
		return a.rebuild(a.actualUser, user, a.expires, a.criticalExpires, a.deviceID, now), nil
	}
	return a.CheckExpiration(now), nil
}

// ClearImpersonation restores the actual user as the presented user; when
// not impersonated it behaves as CheckExpiration.
func (a *AuthenticationInfo) ClearImpersonation(now time.Time) *AuthenticationInfo {
	if a.IsImpersonated() {
		return a.rebuild(a.actualUser, a.actualUser, a.expires, a.criticalExpires, a.deviceID, now)
	}
	return a.CheckExpiration(now)
}

// SetDeviceID returns a snapshot bound to the new device identifier. The
// empty string is valid and means no device. When unchanged this behaves
// as CheckExpiration.
func (a *AuthenticationInfo) SetDeviceID(deviceID string, now time.Time) *AuthenticationInfo {
	if deviceID == a.deviceID {
		return a.CheckExpiration(now)
	}
	return a.rebuild(a.actualUser, a.user, a.expires, a.criticalExpires, deviceID, now)
}
