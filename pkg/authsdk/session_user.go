package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// GetMe returns the caller as described by their access token.
func (s *Session) GetMe(ctx context.Context) (*MeResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/v1/me", nil, nil)
	if err != nil {
		return nil, err
	}

	var me MeResponse
	if err := decodeJSON(resp, &me, http.StatusOK); err != nil {
		return nil, err
	}

	return &me, nil
}

// LogoutAll ends every session of the caller, on every device. This Session
// is one of them.
func (s *Session) LogoutAll(ctx context.Context) (*LogoutAllResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodPost, "/v1/auth/logout-all", nil, nil)
	if err != nil {
		return nil, err
	}

	var out LogoutAllResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.refreshToken = ""
	s.mu.Unlock()

	return &out, nil
}

// RevokeUserSessions ends every session of another user. Requires a
// moderator or higher.
func (s *Session) RevokeUserSessions(ctx context.Context, userID string) (*LogoutAllResponse, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/v1/users/"+url.PathEscape(userID)+"/sessions", nil, nil)
	if err != nil {
		return nil, err
	}

	var out LogoutAllResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}

	return &out, nil
}
