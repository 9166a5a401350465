package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tabauth/pkg/jwtx"
	"github.com/aussiebroadwan/tabauth/pkg/slogx"
)

// AccessDecoder verifies an access token. *jwtx.Codec implements it.
type AccessDecoder interface {
	DecodeAccess(token string) (jwtx.AccessClaims, error)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthnMiddleware attaches the claims of a valid bearer token to the request
// context. Requests without a token continue anonymously and are left to the
// authorization layer; a token that fails to decode is rejected outright.
func AuthnMiddleware(dec AccessDecoder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := dec.DecodeAccess(raw)
			if err != nil {
				desc := "token verification failed"
				if errors.Is(err, jwtx.ErrExpired) {
					desc = "token expired"
				} else {
					slogx.FromContext(r.Context()).Warn("access token rejected", slog.Any("error", err))
				}
				WriteBearerError(w, http.StatusUnauthorized, "invalid_token", desc)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WriteBearerError writes an RFC 6750 challenge alongside the JSON error.
// An empty errCode is a bare challenge, used when no credentials were sent.
func WriteBearerError(w http.ResponseWriter, code int, errCode, desc string) {
	challenge := `Bearer`
	body := "unauthorized"
	if errCode != "" {
		challenge += ` error="` + errCode + `"`
		if desc != "" {
			challenge += `, error_description="` + desc + `"`
		}
		body = errCode
	}
	w.Header().Set("WWW-Authenticate", challenge)
	WriteError(w, code, body, desc)
}
