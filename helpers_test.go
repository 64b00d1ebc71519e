package authinfo

import (
	"testing"
	"time"
)

// fixed "current" time shared by the deterministic tests.
var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func newTestTypeSystem(t *testing.T) *TypeSystem {
	t.Helper()
	ts, err := NewTypeSystem(Config{Clock: func() time.Time { return testNow }})
	if err != nil {
		t.Fatalf("NewTypeSystem failed: %v", err)
	}
	return ts
}

func mustUser(t *testing.T, id int, name string, schemes ...SchemeUse) *UserInfo {
	t.Helper()
	u, err := NewUserInfo(id, name, schemes...)
	if err != nil {
		t.Fatalf("NewUserInfo(%d, %q) failed: %v", id, name, err)
	}
	return u
}

func mustScheme(t *testing.T, name string, lastUsed time.Time) SchemeUse {
	t.Helper()
	s, err := NewSchemeUse(name, lastUsed)
	if err != nil {
		t.Fatalf("NewSchemeUse(%q) failed: %v", name, err)
	}
	return s
}

func mustCreate(t *testing.T, ts *TypeSystem, actualUser, user *UserInfo, expires, criticalExpires time.Time, deviceID string) *AuthenticationInfo {
	t.Helper()
	a, err := ts.CreateAt(actualUser, user, expires, criticalExpires, deviceID, testNow)
	if err != nil {
		t.Fatalf("CreateAt failed: %v", err)
	}
	return a
}

func equalUser(a, b *UserInfo) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.UserID() != b.UserID() || a.UserName() != b.UserName() {
		return false
	}
	as, bs := a.Schemes(), b.Schemes()
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i].Name() != bs[i].Name() || !as[i].LastUsed().Equal(bs[i].LastUsed()) {
			return false
		}
	}
	return true
}

// equalInfo compares the observable state of two snapshots: identities by
// value, expirations, device and level.
func equalInfo(a, b *AuthenticationInfo) bool {
	if a == nil || b == nil {
		return a == b
	}
	return equalUser(a.UnsafeUser(), b.UnsafeUser()) &&
		equalUser(a.UnsafeActualUser(), b.UnsafeActualUser()) &&
		equalTime(a.Expires(), b.Expires()) &&
		equalTime(a.CriticalExpires(), b.CriticalExpires()) &&
		a.DeviceID() == b.DeviceID() &&
		a.Level() == b.Level() &&
		a.IsImpersonated() == b.IsImpersonated()
}
