package authsdk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aussiebroadwan/tabauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
)

// Session represents a logged-in user with automatic token refresh.
// All Session methods handle access token expiry transparently.
//
// A Session is safe for concurrent use. Refreshes are serialised so two
// goroutines never redeem the same refresh token, which the service would
// treat as token theft and answer by ending the session.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	claims       jwtx.AccessClaims
}

// Logout ends this session on the server. The Session is unusable afterwards.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	refreshToken := s.refreshToken
	s.refreshToken = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	if refreshToken == "" {
		return errors.New("no refresh token to revoke")
	}

	return s.client.Logout(ctx, refreshToken)
}

// newSession creates a new authenticated session from a token response.
func newSession(client *SDKClient, tokenResp *TokenResponse) *Session {
	s := &Session{client: client}
	s.store(tokenResp)
	return s
}

// store replaces the tokens. Callers hold s.mu or own s exclusively.
func (s *Session) store(tokenResp *TokenResponse) {
	s.accessToken = tokenResp.AccessToken
	s.refreshToken = tokenResp.RefreshToken

	// Refresh a little before actual expiry
	s.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - s.client.RefreshSkew)

	// The server verifies the token; here it is only read for display and
	// client-side role checks.
	var claims jwtx.AccessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenResp.AccessToken, &claims); err == nil {
		s.claims = claims
	} else {
		s.claims = jwtx.AccessClaims{}
	}
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	// Token expired, need to refresh
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have refreshed)
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if err := s.refreshLocked(ctx); err != nil {
		return "", err
	}
	return s.accessToken, nil
}

// Refresh forces a rotation regardless of access token expiry.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *Session) refreshLocked(ctx context.Context) error {
	if s.refreshToken == "" {
		return errors.New("access token expired and no refresh token available")
	}

	tokenResp, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshDenied) {
			// The server has forgotten this session; do not retry with the
			// same token.
			s.refreshToken = ""
		}
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	s.store(tokenResp)
	return nil
}

// AccessToken returns the current access token without checking expiration.
// For most use cases, prefer using the Session methods which handle refresh automatically.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// UserID returns the user id carried by the current access token.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims.UserID
}

// Role returns the role rank carried by the current access token.
func (s *Session) Role() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims.Role
}

// HasRole reports whether the current access token carries at least min.
func (s *Session) HasRole(min int) bool {
	return s.Role() >= min
}
