package authinfo

import (
	"strings"
	"sync"
	"time"
)

// RebuildFunc is the extension point of the type system. Every update
// operation builds its new snapshot through the configured hook: prev is
// the snapshot being updated, next the freshly constructed base value. The
// hook returns the value the operation hands back to the caller, typically
// next enriched with specialized state copied from prev.
//
// The default hook carries prev's Extra() into next. This is the sole
// customization point of the update pipeline.
type RebuildFunc func(prev, next *AuthenticationInfo) *AuthenticationInfo

// Config configures a [TypeSystem].
type Config struct {
	// ClaimsAuthenticationType is the identity type tag written by the
	// claims codec and checked back on decode. Defaults to "CKA". The safe
	// user-only export tag is always this tag suffixed with "-S".
	ClaimsAuthenticationType string
	// Rebuild is the extension hook called after every update operation.
	// Nil selects the default hook (Extra is carried over unchanged).
	Rebuild RebuildFunc
	// Clock supplies the current time for the factories and codecs. Nil
	// selects time.Now. Update operations always take an explicit now; the
	// clock only covers the paths where the original wall-clock default
	// applies (creation and decoding).
	Clock func() time.Time
}

// TypeSystem owns the process-wide sentinels (the anonymous user and the
// "none" authentication) and centralizes snapshot construction so that
// invariant enforcement and sentinel reuse stay in one place. It is
// immutable after construction and safe for concurrent use.
type TypeSystem struct {
	claimsType string
	rebuild    RebuildFunc
	now        func() time.Time

	anonOnce sync.Once
	anon     *UserInfo
	noneOnce sync.Once
	none     *AuthenticationInfo
}

// NewTypeSystem validates cfg and builds a TypeSystem.
func NewTypeSystem(cfg Config) (*TypeSystem, error) {
	tag := cfg.ClaimsAuthenticationType
	if tag == "" {
		tag = "CKA"
	} else if strings.TrimSpace(tag) == "" {
		return nil, ErrClaimsTypeInvalid
	}
	ts := &TypeSystem{
		claimsType: tag,
		rebuild:    cfg.Rebuild,
		now:        cfg.Clock,
	}
	if ts.rebuild == nil {
		ts.rebuild = func(prev, next *AuthenticationInfo) *AuthenticationInfo {
			next.extra = prev.extra
			return next
		}
	}
	if ts.now == nil {
		ts.now = time.Now
	}
	return ts, nil
}

// ClaimsAuthenticationType returns the full-export identity type tag.
func (ts *TypeSystem) ClaimsAuthenticationType() string { return ts.claimsType }

// ClaimsAuthenticationTypeSimple returns the safe, user-only export tag,
// always the full tag suffixed with "-S".
func (ts *TypeSystem) ClaimsAuthenticationTypeSimple() string { return ts.claimsType + "-S" }

// Now returns the type system's current UTC time.
func (ts *TypeSystem) Now() time.Time { return ts.now().UTC() }

// Anonymous returns the shared anonymous identity (UserID 0, empty name).
// Built exactly once per type system, race-safe.
func (ts *TypeSystem) Anonymous() *UserInfo {
	ts.anonOnce.Do(func() {
		ts.anon = &UserInfo{}
	})
	return ts.anon
}

// None returns the shared "nobody is authenticated" snapshot: anonymous
// user, no expirations, Level None. Built exactly once per type system.
func (ts *TypeSystem) None() *AuthenticationInfo {
	ts.noneOnce.Do(func() {
		none, err := newAuthenticationInfo(ts, nil, nil, time.Time{}, time.Time{}, "", ts.Now())
		if err != nil {
			panic(err)
		}
		ts.none = none
	})
	return ts.none
}

// Create builds a snapshot for the given user. A nil user with an empty
// device id returns the shared None sentinel. Expiration times at or
// before the clock's now collapse to absent (Level Unsafe).
func (ts *TypeSystem) Create(user *UserInfo, expires, criticalExpires time.Time, deviceID string) (*AuthenticationInfo, error) {
	if user == nil && deviceID == "" {
		return ts.None(), nil
	}
	return newAuthenticationInfo(ts, nil, user, expires, criticalExpires, deviceID, ts.Now())
}

// CreateAt builds a snapshot with full control over every field and the
// "current" time used to challenge the expirations. This is the
// constructor the codecs and tests use.
func (ts *TypeSystem) CreateAt(actualUser, user *UserInfo, expires, criticalExpires time.Time, deviceID string, now time.Time) (*AuthenticationInfo, error) {
	return newAuthenticationInfo(ts, actualUser, user, expires, criticalExpires, deviceID, now)
}
