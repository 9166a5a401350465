package http

import (
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/tabauth/internal/auth/service"
	"github.com/aussiebroadwan/tabauth/pkg/authsdk"
	"github.com/aussiebroadwan/tabauth/pkg/httpx"
	"github.com/aussiebroadwan/tabauth/pkg/slogx"
)

// MeHandler serves GET /v1/me straight from the verified claims.
type MeHandler struct{}

// ServeHTTP godoc
//
//	@Summary		Describe the caller
//	@Description	Returns the identity carried by the access token. No directory lookup is made.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse		"id, username, email, role, position"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing or invalid access token"
//	@Router			/v1/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	resp := authsdk.MeResponse{
		ID:       claims.UserID,
		Username: claims.Username(),
		Email:    claims.Email,
		Role:     claims.Role,
		Position: claims.Position,
	}
	if claims.IssuedAt != nil {
		resp.IssuedAt = claims.IssuedAt.UnixMilli()
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.UnixMilli()
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// UserSessionsHandler serves DELETE /v1/users/{userId}/sessions, the
// administrative "log this user out everywhere" after a reported compromise.
type UserSessionsHandler struct {
	AuthService *service.AuthService
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		End all sessions of a user
//	@Description	Deletes every session of the named user. Requires moderator or higher.
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Param			userId	path		string						true	"User id"
//	@Success		200		{object}	authsdk.LogoutAllResponse	"Number of sessions ended"
//	@Failure		401		{object}	authsdk.ErrorResponse		"Missing or invalid access token"
//	@Failure		403		{object}	authsdk.ErrorResponse		"insufficient_role"
//	@Failure		404		{object}	authsdk.ErrorResponse		"user_not_found"
//	@Router			/v1/users/{userId}/sessions [delete].
func (h *UserSessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("userId")

	if _, err := h.UserService.GetUserByID(ctx, userID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	n, err := h.AuthService.LogoutAll(ctx, userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Warn("sessions revoked by administrator",
		slog.String("admin_user_id", httpx.UserIDFromContext(ctx)),
		slog.String("user_id", userID),
		slog.Int64("sessions", n),
	)
	httpx.WriteJSON(w, http.StatusOK, authsdk.LogoutAllResponse{Sessions: n})
}
