package middleware

import (
	"net/http"
	"strings"

	"github.com/arkevia/authinfo"
	"github.com/arkevia/authinfo/token"
)

// Require returns middleware that rejects requests whose bearer token does
// not decode to a snapshot of at least Normal level at the type system's
// current time.
func Require(ts *authinfo.TypeSystem, manager *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := decode(manager, r)
			if info == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			info = info.CheckExpiration(ts.Now())
			if info.Level() < authinfo.LevelNormal {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(authinfo.WithInfo(r.Context(), info)))
		})
	}
}

// Attach returns middleware that always attaches a snapshot to the request
// context: the decoded one when a usable bearer token is present, the None
// sentinel otherwise. It never rejects.
func Attach(ts *authinfo.TypeSystem, manager *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info := decode(manager, r)
			if info == nil {
				info = ts.None()
			} else {
				info = info.CheckExpiration(ts.Now())
			}
			next.ServeHTTP(w, r.WithContext(authinfo.WithInfo(r.Context(), info)))
		})
	}
}

func decode(manager *token.Manager, r *http.Request) *authinfo.AuthenticationInfo {
	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil
	}
	info, err := manager.Parse(raw)
	if err != nil {
		return nil
	}
	return info
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	t := strings.TrimSpace(header[len(prefix):])
	if t == "" {
		return "", false
	}
	return t, true
}
