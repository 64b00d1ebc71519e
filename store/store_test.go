package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/arkevia/authinfo"
	"github.com/arkevia/authinfo/wire"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func newStoreTest(t *testing.T, cfg Config) (*authinfo.TypeSystem, *Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ts, err := authinfo.NewTypeSystem(authinfo.Config{Clock: func() time.Time { return testNow }})
	if err != nil {
		mr.Close()
		t.Fatalf("NewTypeSystem failed: %v", err)
	}
	st := NewStore(rdb, wire.NewCodec(ts), cfg)
	cleanup := func() {
		rdb.Close()
		mr.Close()
	}
	return ts, st, mr, cleanup
}

func testInfo(t *testing.T, ts *authinfo.TypeSystem, expires time.Time) *authinfo.AuthenticationInfo {
	t.Helper()
	u, err := authinfo.NewUserInfo(3712, "Albert")
	if err != nil {
		t.Fatalf("NewUserInfo failed: %v", err)
	}
	a, err := ts.CreateAt(nil, u, expires, time.Time{}, "", testNow)
	if err != nil {
		t.Fatalf("CreateAt failed: %v", err)
	}
	return a
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ts, st, _, cleanup := newStoreTest(t, Config{})
	defer cleanup()
	ctx := context.Background()

	a := testInfo(t, ts, testNow.Add(time.Hour))
	id := NewSessionID()
	if id == "" {
		t.Fatalf("expected a non-empty session id")
	}
	if err := st.Save(ctx, id, a, testNow); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	back, err := st.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if back.Level() != authinfo.LevelNormal {
		t.Fatalf("expected LevelNormal, got %v", back.Level())
	}
	if back.UnsafeUser().UserID() != 3712 || !back.Expires().Equal(a.Expires()) {
		t.Fatalf("stored snapshot mismatch")
	}
}

func TestLoadUnknownSession(t *testing.T) {
	_, st, _, cleanup := newStoreTest(t, Config{})
	defer cleanup()

	if _, err := st.Load(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSaveTTLFollowsExpiration(t *testing.T) {
	ts, st, mr, cleanup := newStoreTest(t, Config{})
	defer cleanup()
	ctx := context.Background()

	a := testInfo(t, ts, testNow.Add(10*time.Minute))
	if err := st.Save(ctx, "s1", a, testNow); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got := mr.TTL("authinfo:session:s1"); got != 10*time.Minute {
		t.Fatalf("expected 10m TTL, got %v", got)
	}

	mr.FastForward(11 * time.Minute)
	if _, err := st.Load(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after expiry, got %v", err)
	}
}

func TestSaveDefaultTTLWithoutExpiration(t *testing.T) {
	ts, st, mr, cleanup := newStoreTest(t, Config{DefaultTTL: time.Minute})
	defer cleanup()

	a := testInfo(t, ts, time.Time{})
	if a.Level() != authinfo.LevelUnsafe {
		t.Fatalf("expected LevelUnsafe, got %v", a.Level())
	}
	if err := st.Save(context.Background(), "s1", a, testNow); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got := mr.TTL("authinfo:session:s1"); got != time.Minute {
		t.Fatalf("expected 1m TTL, got %v", got)
	}
}

func TestSaveClampsTinyTTL(t *testing.T) {
	ts, st, mr, cleanup := newStoreTest(t, Config{})
	defer cleanup()

	a := testInfo(t, ts, testNow.Add(time.Hour))
	// Saving close to the expiration still leaves a minimal window.
	if err := st.Save(context.Background(), "s1", a, testNow.Add(time.Hour-100*time.Millisecond)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got := mr.TTL("authinfo:session:s1"); got != time.Second {
		t.Fatalf("expected clamped 1s TTL, got %v", got)
	}
}

func TestKeyPrefix(t *testing.T) {
	ts, st, mr, cleanup := newStoreTest(t, Config{Prefix: "acme"})
	defer cleanup()

	a := testInfo(t, ts, testNow.Add(time.Hour))
	if err := st.Save(context.Background(), "s1", a, testNow); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !mr.Exists("acme:session:s1") {
		t.Fatalf("expected key under the configured prefix")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ts, st, _, cleanup := newStoreTest(t, Config{})
	defer cleanup()
	ctx := context.Background()

	a := testInfo(t, ts, testNow.Add(time.Hour))
	if err := st.Save(ctx, "s1", a, testNow); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := st.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := st.Load(ctx, "s1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
	if err := st.Delete(ctx, "s1"); err != nil {
		t.Fatalf("deleting an absent session must not fail: %v", err)
	}
}

func TestTouchExtendsSession(t *testing.T) {
	ts, st, mr, cleanup := newStoreTest(t, Config{})
	defer cleanup()
	ctx := context.Background()

	a := testInfo(t, ts, testNow.Add(time.Minute))
	if err := st.Save(ctx, "s1", a, testNow); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := st.Touch(ctx, "s1", time.Hour); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}
	if got := mr.TTL("authinfo:session:s1"); got != time.Hour {
		t.Fatalf("expected 1h TTL after Touch, got %v", got)
	}
	if err := st.Touch(ctx, "missing", time.Hour); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestLoadCorruptBlob(t *testing.T) {
	_, st, mr, cleanup := newStoreTest(t, Config{})
	defer cleanup()

	if err := mr.Set("authinfo:session:s1", "\x01\xff\xff"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := st.Load(context.Background(), "s1"); !errors.Is(err, ErrSessionCorrupt) {
		t.Fatalf("expected ErrSessionCorrupt, got %v", err)
	}
}

func TestRedisUnavailable(t *testing.T) {
	ts, st, mr, cleanup := newStoreTest(t, Config{})
	defer cleanup()
	mr.Close()

	a := testInfo(t, ts, testNow.Add(time.Hour))
	if err := st.Save(context.Background(), "s1", a, testNow); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := st.Load(context.Background(), "s1"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
