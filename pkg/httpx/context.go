package httpx

import (
	"context"

	"github.com/aussiebroadwan/tabauth/pkg/jwtx"
)

type claimsKey struct{}

// WithClaims stores validated access token claims in ctx.
func WithClaims(ctx context.Context, c jwtx.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the claims set by AuthnMiddleware. ok is false
// for anonymous requests.
func ClaimsFromContext(ctx context.Context) (jwtx.AccessClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(jwtx.AccessClaims)
	return c, ok
}

// UserIDFromContext returns the authenticated user id or "".
func UserIDFromContext(ctx context.Context) string {
	c, _ := ClaimsFromContext(ctx)
	return c.UserID
}
