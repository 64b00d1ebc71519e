package authinfo

import "context"

type infoContextKey struct{}

// WithInfo attaches an authentication snapshot to ctx. Request pipelines
// call this once per request after decoding and expiration-checking the
// incoming identity.
func WithInfo(ctx context.Context, info *AuthenticationInfo) context.Context {
	return context.WithValue(ctx, infoContextKey{}, info)
}

// FromContext returns the snapshot attached by WithInfo, if any.
func FromContext(ctx context.Context) (*AuthenticationInfo, bool) {
	if ctx == nil {
		return nil, false
	}
	info, ok := ctx.Value(infoContextKey{}).(*AuthenticationInfo)
	return info, ok
}
