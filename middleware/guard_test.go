package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arkevia/authinfo"
	"github.com/arkevia/authinfo/token"
)

func newTestStack(t *testing.T) (*authinfo.TypeSystem, *token.Manager) {
	t.Helper()
	ts, err := authinfo.NewTypeSystem(authinfo.Config{})
	if err != nil {
		t.Fatalf("NewTypeSystem failed: %v", err)
	}
	m, err := token.NewManager(ts, token.Config{SigningKey: []byte("0123456789abcdef0123456789abcdef")})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return ts, m
}

func issueToken(t *testing.T, ts *authinfo.TypeSystem, m *token.Manager, expires time.Time) string {
	t.Helper()
	u, err := authinfo.NewUserInfo(3712, "Albert")
	if err != nil {
		t.Fatalf("NewUserInfo failed: %v", err)
	}
	a, err := ts.Create(u, expires, time.Time{}, "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	signed, err := m.Issue(a, false)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	return signed
}

// capture records the snapshot the middleware put on the request context.
func capture(got **authinfo.AuthenticationInfo) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got, _ = authinfo.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireWithoutToken(t *testing.T) {
	ts, m := newTestStack(t)
	var got *authinfo.AuthenticationInfo
	h := Require(ts, m)(capture(&got))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got != nil {
		t.Fatalf("handler must not run on rejection")
	}
}

func TestRequireWithMalformedHeader(t *testing.T) {
	ts, m := newTestStack(t)
	h := Require(ts, m)(capture(new(*authinfo.AuthenticationInfo)))

	for _, header := range []string{"Bearer", "Bearer ", "Basic abc", "garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}

func TestRequireWithTamperedToken(t *testing.T) {
	ts, m := newTestStack(t)
	signed := issueToken(t, ts, m, time.Now().Add(time.Hour).UTC())
	h := Require(ts, m)(capture(new(*authinfo.AuthenticationInfo)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed+"x")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a tampered token, got %d", rec.Code)
	}
}

func TestRequireWithValidToken(t *testing.T) {
	ts, m := newTestStack(t)
	signed := issueToken(t, ts, m, time.Now().Add(time.Hour).UTC())
	var got *authinfo.AuthenticationInfo
	h := Require(ts, m)(capture(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got == nil || got.Level() < authinfo.LevelNormal {
		t.Fatalf("expected an authenticated snapshot on the context, got %v", got)
	}
	if got.User().UserID() != 3712 {
		t.Fatalf("unexpected user %d", got.User().UserID())
	}
}

func TestAttachWithoutToken(t *testing.T) {
	ts, m := newTestStack(t)
	var got *authinfo.AuthenticationInfo
	h := Attach(ts, m)(capture(&got))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got != ts.None() {
		t.Fatalf("expected the None sentinel on the context, got %v", got)
	}
}

func TestAttachWithValidToken(t *testing.T) {
	ts, m := newTestStack(t)
	signed := issueToken(t, ts, m, time.Now().Add(time.Hour).UTC())
	var got *authinfo.AuthenticationInfo
	h := Attach(ts, m)(capture(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got == nil || got.UnsafeUser().UserID() != 3712 {
		t.Fatalf("expected the decoded snapshot on the context, got %v", got)
	}
}

func TestAttachWithBadTokenFallsBackToNone(t *testing.T) {
	ts, m := newTestStack(t)
	var got *authinfo.AuthenticationInfo
	h := Attach(ts, m)(capture(&got))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got != ts.None() {
		t.Fatalf("expected the None sentinel fallback, got %v", got)
	}
}
