package http

import (
	"net/http"

	"github.com/aussiebroadwan/tabauth/internal/auth/service"
	"github.com/aussiebroadwan/tabauth/pkg/authsdk"
	"github.com/aussiebroadwan/tabauth/pkg/httpx"
)

// LogoutHandler serves POST /v1/auth/logout. Logging out of a session that is
// already gone still answers 204.
type LogoutHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Log out
//	@Description	Ends the session the refresh token belongs to. Expired refresh tokens are accepted.
//	@Tags			Auth
//	@Accept			json
//	@Param			body	body	authsdk.RefreshRequest	true	"Refresh token"
//	@Success		204		"Session ended (or was already gone)"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed body or token"
//	@Failure		503		{object}	authsdk.ErrorResponse	"upstream_unavailable"
//	@Router			/v1/auth/logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.AuthService.Logout(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// LogoutAllHandler serves POST /v1/auth/logout-all for the caller.
type LogoutAllHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Log out everywhere
//	@Description	Ends every session of the authenticated user. Access tokens already issued stay valid until they expire.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.LogoutAllResponse	"Number of sessions ended"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Missing or invalid access token"
//	@Failure		503	{object}	authsdk.ErrorResponse		"upstream_unavailable"
//	@Router			/v1/auth/logout-all [post].
func (h *LogoutAllHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())
	if userID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	n, err := h.AuthService.LogoutAll(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutAllResponse{Sessions: n})
}
