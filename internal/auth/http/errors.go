package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/tabauth/internal/auth/service"
	"github.com/aussiebroadwan/tabauth/pkg/authsdk"
	"github.com/aussiebroadwan/tabauth/pkg/slogx"
)

// writeServiceError maps a service error onto the reply. Refresh denials are
// checked first: their cause may also be an upstream failure, and the caller
// must still only see "refresh denied".
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrRefreshDenied):
		authsdk.ErrRefreshDenied.WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrUpstreamUnavailable):
		w.Header().Set("Retry-After", "1")
		authsdk.ErrUpstreamUnavailable.WriteError(w)
	case errors.Is(err, service.ErrUserNotFound):
		authsdk.ErrUserNotFound.WriteError(w)
	case errors.Is(err, service.ErrInvalidRefreshToken):
		authsdk.ErrInvalidRequest.WriteError(w)
	default:
		slogx.FromContext(r.Context()).Error("unexpected service error", slog.Any("error", err))
		authsdk.ErrServerError.WriteError(w)
	}
}

var errNotConfigured = errors.New("not configured")
