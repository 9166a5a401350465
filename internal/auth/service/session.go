package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/tabauth/internal/auth/domain"
	"github.com/aussiebroadwan/tabauth/internal/auth/store"
	"github.com/aussiebroadwan/tabauth/pkg/idx"
	"github.com/aussiebroadwan/tabauth/pkg/jwtx"
	"github.com/aussiebroadwan/tabauth/pkg/slogx"
	"github.com/google/uuid"
)

// SessionManager owns the refresh rotation state machine. A session is
// either Active(v) or absent; the only transitions are v -> v+1 on a
// legitimate refresh and Active -> absent on logout or detected reuse.
type SessionManager struct {
	Sessions   store.Sessions
	Directory  CredentialVerifier
	Codec      *jwtx.Codec
	RefreshTTL time.Duration
	Timeout    time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// CreateSession starts a new login session at version 1.
func (m *SessionManager) CreateSession(ctx context.Context, identity domain.Identity) (domain.Session, error) {
	lsu, err := uuid.NewRandom()
	if err != nil {
		return domain.Session{}, fmt.Errorf("service: login session uuid: %w", err)
	}

	now := m.now()
	sess := domain.Session{
		ID:               idx.NewAt(now).String(),
		UserID:           identity.ID,
		LoginSessionUUID: lsu.String(),
		Version:          domain.InitialSessionVersion,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	ctx, cancel := m.bound(ctx)
	defer cancel()

	if err := m.Sessions.Insert(ctx, sess); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Session{}, fmt.Errorf("service: session collision: %w", err)
		}
		return domain.Session{}, upstream(err)
	}
	return sess, nil
}

// IssueRefreshToken signs a refresh token bound to the session's current
// version.
func (m *SessionManager) IssueRefreshToken(identity domain.Identity, session domain.Session) (string, error) {
	claims := jwtx.NewRefreshClaims(identity.ID, identity.Username, session.LoginSessionUUID, session.Version)
	return m.Codec.IssueRefresh(claims, m.refreshTTL())
}

// Rotate redeems a refresh token. On success the stored session has moved to
// the next version and is returned with the owner's current identity.
//
// A token from an earlier generation deletes the session and fails with
// ErrReuseDetected. Losing a race against a concurrent rotation of the same
// token fails with ErrRotationConflict and leaves the session alone.
func (m *SessionManager) Rotate(ctx context.Context, refreshToken string) (domain.Session, domain.Identity, error) {
	claims, err := m.Codec.DecodeRefresh(refreshToken)
	if err != nil {
		return domain.Session{}, domain.Identity{}, fmt.Errorf("%w: %w", ErrInvalidRefreshToken, err)
	}

	identity, err := m.Directory.Lookup(ctx, claims.UserID)
	if err != nil {
		return domain.Session{}, domain.Identity{}, err
	}

	sess, err := m.find(ctx, claims.UserID, claims.LoginSessionUUID)
	if err != nil {
		return domain.Session{}, domain.Identity{}, err
	}

	switch {
	case claims.SessionVersion < sess.Version:
		if err := m.Invalidate(ctx, sess); err != nil {
			return domain.Session{}, domain.Identity{}, fmt.Errorf("%w: %w", ErrReuseDetected, err)
		}
		return domain.Session{}, domain.Identity{}, fmt.Errorf("%w: token v%d, session v%d",
			ErrReuseDetected, claims.SessionVersion, sess.Version)

	case claims.SessionVersion > sess.Version:
		return domain.Session{}, domain.Identity{}, fmt.Errorf("%w: token v%d ahead of session v%d",
			ErrInvalidRefreshToken, claims.SessionVersion, sess.Version)
	}

	next := sess.Next(m.now())
	if err := m.updateVersion(ctx, sess.ID, sess.Version, next.Version); err != nil {
		return domain.Session{}, domain.Identity{}, err
	}

	slogx.FromContext(ctx).Debug("session rotated",
		slog.String("session_id", sess.ID),
		slog.Int64("version", next.Version),
	)
	return next, identity, nil
}

// Invalidate deletes the session. Deleting an absent session succeeds.
func (m *SessionManager) Invalidate(ctx context.Context, session domain.Session) error {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	if err := m.Sessions.DeleteByUserAndUUID(ctx, session.UserID, session.LoginSessionUUID); err != nil {
		return upstream(err)
	}
	return nil
}

// InvalidateAll deletes every session of the user and reports how many were
// removed.
func (m *SessionManager) InvalidateAll(ctx context.Context, identity domain.Identity) (int64, error) {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	n, err := m.Sessions.DeleteAllByUser(ctx, identity.ID)
	if err != nil {
		return 0, upstream(err)
	}
	return n, nil
}

func (m *SessionManager) find(ctx context.Context, userID, loginSessionUUID string) (domain.Session, error) {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	sess, err := m.Sessions.FindByUserAndUUID(ctx, userID, loginSessionUUID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, upstream(err)
	}
	return sess, nil
}

func (m *SessionManager) updateVersion(ctx context.Context, sessionID string, expected, next int64) error {
	ctx, cancel := m.bound(ctx)
	defer cancel()

	err := m.Sessions.UpdateVersion(ctx, sessionID, expected, next)
	if errors.Is(err, store.ErrVersionConflict) {
		return fmt.Errorf("%w: session %s moved past v%d", ErrRotationConflict, sessionID, expected)
	}
	if err != nil {
		return upstream(err)
	}
	return nil
}

func (m *SessionManager) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	t := m.Timeout
	if t <= 0 {
		t = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, t)
}

func (m *SessionManager) refreshTTL() time.Duration {
	if m.RefreshTTL > 0 {
		return m.RefreshTTL
	}
	return jwtx.DefaultRefreshTokenTTL
}

func (m *SessionManager) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}
