package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tabauth/internal/auth/service"
	"github.com/aussiebroadwan/tabauth/pkg/authsdk"
	"github.com/aussiebroadwan/tabauth/pkg/httpx"
)

// LoginHandler serves POST /v1/auth/login.
type LoginHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP godoc
//
//	@Summary		Log in
//	@Description	Checks a username and password and opens a new session.
//	@Description	A wrong username and a wrong password produce the same invalid_credentials reply.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.LoginResponse	"Token pair and user summary"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Malformed body"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limit_exceeded"
//	@Failure		503		{object}	authsdk.ErrorResponse	"upstream_unavailable"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/v1/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 1. Decode the body
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	// 2. Authenticate and open the session
	res, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// 3. Hand back both tokens
	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		TokenResponse: tokenResponse(res.Tokens),
		ID:            res.Identity.ID,
		Username:      res.Identity.Username,
		Email:         res.Identity.Email,
		Role:          int(res.Identity.Role),
		Position:      res.Identity.PositionID,
	})
}
