package http

import (
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/tabauth/internal/auth/authz"
	"github.com/aussiebroadwan/tabauth/internal/auth/domain"
	"github.com/aussiebroadwan/tabauth/pkg/authsdk"
	"github.com/aussiebroadwan/tabauth/pkg/httpx"
	"github.com/aussiebroadwan/tabauth/pkg/slogx"
)

// AuthzMiddleware applies the policy to every request. It must run after
// httpx.AuthnMiddleware so verified claims are in the context.
func AuthzMiddleware(p *authz.Policy) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var role *domain.Role
			if claims, ok := httpx.ClaimsFromContext(r.Context()); ok {
				rr := domain.Role(claims.Role)
				role = &rr
			}

			d := p.Decide(r.Method, r.URL.Path, role)
			switch d.Err() {
			case nil:
				next.ServeHTTP(w, r)
			case authz.ErrUnauthenticated:
				httpx.WriteBearerError(w, http.StatusUnauthorized, "", authsdk.ErrUnauthorized.Description)
			default:
				slogx.FromContext(r.Context()).Info("authorization denied",
					slog.String("user_id", httpx.UserIDFromContext(r.Context())),
					slog.String("rule", d.Rule),
					slog.Int("required_role", int(d.Required)),
					slog.Int("role", int(*role)),
				)
				authsdk.ErrInsufficientRole.WriteError(w)
			}
		})
	}
}
