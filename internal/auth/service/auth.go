package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tabauth/internal/auth/domain"
	"github.com/aussiebroadwan/tabauth/pkg/cryptox"
	"github.com/aussiebroadwan/tabauth/pkg/jwtx"
	"github.com/aussiebroadwan/tabauth/pkg/slogx"
)

// LoginResult is a fresh token pair plus who it was issued to.
type LoginResult struct {
	Tokens   domain.TokenPair
	Identity domain.Identity
}

// AuthService is the external contract: login, refresh and validate, plus
// the logout operations that end sessions early.
type AuthService struct {
	Verifier  CredentialVerifier
	Sessions  *SessionManager
	Codec     *jwtx.Codec
	AccessTTL time.Duration
}

// Login checks the credentials and opens a new session. Every credential
// rejection is the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	l := slogx.FromContext(ctx)

	identity, err := s.Verifier.Verify(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrUpstreamUnavailable) {
			l.Error("login: directory unavailable", slog.Any("error", err))
			return LoginResult{}, err
		}
		l.Info("login rejected", slog.String("username", username))
		return LoginResult{}, ErrInvalidCredentials
	}

	sess, err := s.Sessions.CreateSession(ctx, identity)
	if err != nil {
		l.Error("login: create session failed",
			slog.String("user_id", identity.ID),
			slog.Any("error", err),
		)
		return LoginResult{}, err
	}

	pair, err := s.issuePair(identity, sess)
	if err != nil {
		return LoginResult{}, err
	}

	l.Info("login succeeded",
		slog.String("user_id", identity.ID),
		slog.String("session_id", sess.ID),
	)
	return LoginResult{Tokens: pair, Identity: identity}, nil
}

// Refresh rotates the session behind refreshToken and returns a new pair.
// Rejections come back as *RefreshDeniedError; ErrUpstreamUnavailable is
// returned unwrapped so callers can answer with a retryable status.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx).With(slog.String("token_fp", cryptox.FingerprintToken(refreshToken)))

	sess, identity, err := s.Sessions.Rotate(ctx, refreshToken)
	switch {
	case err == nil:
	case errors.Is(err, ErrReuseDetected):
		l.Error("refresh token reuse detected, session revoked",
			slog.Bool("security_alert", true),
			slog.Any("error", err),
		)
		return domain.TokenPair{}, &RefreshDeniedError{Cause: err}
	case errors.Is(err, ErrUpstreamUnavailable):
		l.Error("refresh: store unavailable", slog.Any("error", err))
		return domain.TokenPair{}, err
	default:
		l.Info("refresh denied", slog.Any("reason", err))
		return domain.TokenPair{}, &RefreshDeniedError{Cause: err}
	}

	return s.issuePair(identity, sess)
}

// Validate decodes an access token. No session lookup is made; the codec
// error is returned as is so callers can tell expiry from tampering.
func (s *AuthService) Validate(accessToken string) (jwtx.AccessClaims, error) {
	return s.Codec.DecodeAccess(accessToken)
}

// Logout ends the session a refresh token belongs to. Expired tokens are
// accepted so a client can always sign out; repeating it is harmless.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.Codec.DecodeRefreshIgnoringExpiry(refreshToken)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}

	err = s.Sessions.Invalidate(ctx, domain.Session{
		UserID:           claims.UserID,
		LoginSessionUUID: claims.LoginSessionUUID,
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("logout", slog.String("user_id", claims.UserID))
	return nil
}

// LogoutAll ends every session of the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.Sessions.InvalidateAll(ctx, domain.Identity{ID: userID})
	if err != nil {
		return 0, err
	}

	slogx.FromContext(ctx).Info("logout everywhere",
		slog.String("user_id", userID),
		slog.Int64("sessions", n),
	)
	return n, nil
}

func (s *AuthService) issuePair(identity domain.Identity, sess domain.Session) (domain.TokenPair, error) {
	ttl := s.AccessTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}

	access, err := s.Codec.IssueAccess(jwtx.NewAccessClaims(
		identity.ID,
		identity.Username,
		identity.Email,
		int(identity.Role),
		identity.PositionID,
	), ttl)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("service: sign access token: %w", err)
	}

	refresh, err := s.Sessions.IssueRefreshToken(identity, sess)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("service: sign refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    ttl,
	}, nil
}
