package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/tabauth/internal/auth/service"
	"github.com/aussiebroadwan/tabauth/pkg/authsdk"
	"github.com/aussiebroadwan/tabauth/pkg/httpx"
	"github.com/aussiebroadwan/tabauth/pkg/jwtx"
	"github.com/aussiebroadwan/tabauth/pkg/slogx"
)

// ValidateHandler serves POST /v1/auth/validate.
type ValidateHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Validate an access token
//	@Description	Verifies the signature and expiry of the bearer token. No session lookup is made.
//	@Description	An unusable token is reported with valid=false and a reason, not an HTTP error.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.ValidateResponse	"valid, reason, id, username, role"
//	@Failure		400	{object}	authsdk.ErrorResponse		"No bearer token"
//	@Router			/v1/auth/validate [post].
func (h *ValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, ok := httpx.BearerToken(r)
	if !ok {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	claims, err := h.AuthService.Validate(token)
	if err != nil {
		reason := validationReason(err)
		if reason != authsdk.ReasonExpired {
			slogx.FromContext(r.Context()).Warn("token failed validation",
				slog.String("reason", reason),
				slog.Any("error", err),
			)
		}
		httpx.WriteJSON(w, http.StatusOK, authsdk.ValidateResponse{Valid: false, Reason: reason})
		return
	}

	resp := authsdk.ValidateResponse{
		Valid:    true,
		UserID:   claims.UserID,
		Username: claims.Username(),
		Role:     claims.Role,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.UnixMilli()
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func validationReason(err error) string {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return authsdk.ReasonExpired
	case errors.Is(err, jwtx.ErrInvalidSig):
		return authsdk.ReasonBadSignature
	case errors.Is(err, jwtx.ErrUnsupported):
		return authsdk.ReasonUnsupported
	default:
		return authsdk.ReasonMalformed
	}
}
