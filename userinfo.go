package authinfo

import (
	"strings"
	"time"
)

// SchemeUse captures one authentication mechanism a user has used and when
// it was last used. The last-used time is always UTC.
type SchemeUse struct {
	name     string
	lastUsed time.Time
}

// NewSchemeUse validates and builds a SchemeUse. The name must not be empty
// or whitespace. A local-location lastUsed is rejected; any other location
// is normalized to UTC.
func NewSchemeUse(name string, lastUsed time.Time) (SchemeUse, error) {
	if strings.TrimSpace(name) == "" {
		return SchemeUse{}, ErrSchemeNameEmpty
	}
	if lastUsed.Location() == time.Local {
		return SchemeUse{}, ErrLocalTime
	}
	return SchemeUse{name: name, lastUsed: lastUsed.UTC()}, nil
}

// Name returns the scheme name.
func (s SchemeUse) Name() string { return s.name }

// LastUsed returns the UTC time the scheme was last used.
func (s SchemeUse) LastUsed() time.Time { return s.lastUsed }

// UserInfo is an immutable identity record.
//
// Identity of a UserInfo is its pointer: the update operations on
// [AuthenticationInfo] compare *UserInfo by reference, not by value, to
// decide whether anything changed. Two distinct instances with the same
// UserID are interchangeable for level computation but are normalized to a
// single instance at construction (no self-impersonation through
// distinct-but-equal objects).
type UserInfo struct {
	id      int
	name    string
	schemes []SchemeUse
}

// NewUserInfo validates and builds a UserInfo. The user id 0 is reserved
// for the anonymous identity and is the only id allowed (and required) to
// carry an empty name.
func NewUserInfo(id int, name string, schemes ...SchemeUse) (*UserInfo, error) {
	if (name == "") != (id == 0) {
		return nil, ErrUserNameMismatch
	}
	var owned []SchemeUse
	if len(schemes) > 0 {
		owned = make([]SchemeUse, len(schemes))
		copy(owned, schemes)
	}
	return &UserInfo{id: id, name: name, schemes: owned}, nil
}

// UserID returns the user identifier. 0 is the anonymous.
func (u *UserInfo) UserID() int { return u.id }

// UserName returns the display name. Empty if and only if UserID is 0.
func (u *UserInfo) UserName() string { return u.name }

// Schemes returns a copy of the authentication schemes this user has used.
// Never nil-sensitive: may be empty.
func (u *UserInfo) Schemes() []SchemeUse {
	if len(u.schemes) == 0 {
		return nil
	}
	out := make([]SchemeUse, len(u.schemes))
	copy(out, u.schemes)
	return out
}

// IsAnonymous reports whether this is the anonymous identity (UserID 0).
func (u *UserInfo) IsAnonymous() bool { return u.id == 0 }

// normalizeExpiry applies the expiration validation rules: zero means
// absent, a local time is an error, anything at or before now collapses to
// absent, and the survivor is normalized to UTC.
func normalizeExpiry(t, now time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, nil
	}
	if t.Location() == time.Local {
		return time.Time{}, ErrLocalTime
	}
	t = t.UTC()
	if !t.After(now) {
		return time.Time{}, nil
	}
	return t, nil
}

// equalTime compares two optional times where the zero value means absent.
func equalTime(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() == b.IsZero()
	}
	return a.Equal(b)
}
