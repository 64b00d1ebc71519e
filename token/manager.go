package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arkevia/authinfo"
)

// claimAuthType carries the claims-identity type tag inside the token.
const claimAuthType = "aty"

// claimActor carries the actual user's identity when impersonation is
// active, mirroring the subordinate actor identity of the claims export.
const claimActor = "actor"

var (
	// ErrNilInfo is returned by Issue for a nil snapshot.
	ErrNilInfo = errors.New("nil authentication info")
	// ErrTokenInvalid wraps every signature or claim validation failure.
	ErrTokenInvalid = errors.New("invalid token")
)

// registered claim names owned by the JWT layer, excluded from the
// identity claim set on parse.
var registeredClaims = map[string]bool{
	"iss": true,
	"aud": true,
	"iat": true,
	"nbf": true,
	"sub": true,
	"jti": true,
}

// Config configures a [Manager].
type Config struct {
	// SigningKey is the HS256 secret. Required.
	SigningKey []byte
	// Issuer, when set, is stamped on issued tokens and required on parse.
	Issuer string
	// Audience, when set, is stamped on issued tokens and required on parse.
	Audience string
	// Leeway is the clock-skew tolerance applied on parse. At most two
	// minutes.
	Leeway time.Duration
}

// Manager issues and parses snapshot-bearing JWTs for one type system.
type Manager struct {
	ts  *authinfo.TypeSystem
	cfg Config
}

// NewManager validates cfg and builds a Manager.
func NewManager(ts *authinfo.TypeSystem, cfg Config) (*Manager, error) {
	if ts == nil {
		return nil, errors.New("nil type system")
	}
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("hs256 requires a signing key")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{ts: ts, cfg: cfg}, nil
}

// Issue signs a token carrying the snapshot's claims-identity export.
// With userInfoOnly only the safe user claims travel (simple type tag).
// When the snapshot carries an expiration the token expires with it.
func (m *Manager) Issue(info *authinfo.AuthenticationInfo, userInfoOnly bool) (string, error) {
	if info == nil {
		return "", ErrNilInfo
	}
	identity := m.ts.ToClaimsIdentity(info, userInfoOnly)
	claims := identityToClaims(identity)
	now := m.ts.Now()
	claims["iat"] = now.Unix()
	if m.cfg.Issuer != "" {
		claims["iss"] = m.cfg.Issuer
	}
	if m.cfg.Audience != "" {
		claims["aud"] = m.cfg.Audience
	}
	// The bearer of the expiration claims is the actor when impersonation
	// is active; mirror the snapshot expiration at the top level so the
	// JWT layer still enforces it.
	if !info.Expires().IsZero() {
		claims[authinfo.ClaimExpires] = info.Expires().Unix()
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(m.cfg.SigningKey)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Parse verifies the token and rebuilds the snapshot through the type
// system. A verified token whose identity tag is not ours yields nil, nil.
func (m *Manager) Parse(tokenString string) (*authinfo.AuthenticationInfo, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(m.cfg.Leeway),
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}
	if m.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(m.cfg.Audience))
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.cfg.SigningKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	identity, err := claimsToIdentity(map[string]any(claims))
	if err != nil {
		return nil, err
	}
	return m.ts.FromClaimsIdentity(identity)
}

func identityToClaims(id *authinfo.Identity) jwt.MapClaims {
	claims := jwt.MapClaims{claimAuthType: id.AuthenticationType}
	for _, c := range id.Claims {
		switch c.Type {
		case authinfo.ClaimExpires, authinfo.ClaimCritical:
			if secs, err := strconv.ParseInt(c.Value, 10, 64); err == nil {
				claims[c.Type] = secs
				continue
			}
			claims[c.Type] = c.Value
		default:
			claims[c.Type] = c.Value
		}
	}
	if id.Actor != nil {
		claims[claimActor] = map[string]any(identityToClaims(id.Actor))
	}
	return claims
}

func claimsToIdentity(m map[string]any) (*authinfo.Identity, error) {
	id := &authinfo.Identity{}
	for k, v := range m {
		switch {
		case k == claimAuthType:
			tag, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %q is not a string", ErrTokenInvalid, claimAuthType)
			}
			id.AuthenticationType = tag
		case k == claimActor:
			nested, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %q is not an object", ErrTokenInvalid, claimActor)
			}
			actor, err := claimsToIdentity(nested)
			if err != nil {
				return nil, err
			}
			id.Actor = actor
		case registeredClaims[k]:
			// JWT plumbing, not identity state.
		default:
			id.Claims = append(id.Claims, authinfo.Claim{Type: k, Value: claimString(v)})
		}
	}
	return id, nil
}

func claimString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(v)
	}
}
