package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/tabauth/internal/auth/domain"
	"github.com/aussiebroadwan/tabauth/internal/auth/store"
	"github.com/aussiebroadwan/tabauth/pkg/cryptox"
	"github.com/aussiebroadwan/tabauth/pkg/slogx"
)

// DefaultStoreTimeout bounds every directory and session store call.
const DefaultStoreTimeout = 3 * time.Second

// CredentialVerifier checks a username and password against the user
// directory.
type CredentialVerifier interface {
	// Verify returns ErrInvalidCredentials for any rejection, whichever
	// half of the pair was wrong.
	Verify(ctx context.Context, username, password string) (domain.Identity, error)

	// Lookup returns ErrUserNotFound when the id is unknown.
	Lookup(ctx context.Context, userID string) (domain.Identity, error)
}

// DirectoryVerifier is the CredentialVerifier backed by store.Users.
type DirectoryVerifier struct {
	Users   store.Users
	Timeout time.Duration

	// Rehash upgrades legacy bcrypt hashes to argon2id after a successful
	// verification.
	Rehash bool
}

var _ CredentialVerifier = (*DirectoryVerifier)(nil)

func (v *DirectoryVerifier) Verify(ctx context.Context, username, password string) (domain.Identity, error) {
	l := slogx.FromContext(ctx)

	username = strings.TrimSpace(username)
	if username == "" {
		_ = cryptox.VerifyPassword(password, cryptox.DummyHash())
		return domain.Identity{}, ErrInvalidCredentials
	}

	user, err := v.getByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		// Same work as a real check so response time does not reveal
		// which usernames exist.
		_ = cryptox.VerifyPassword(password, cryptox.DummyHash())
		return domain.Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.Identity{}, upstream(err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			l.Error("stored password hash unusable",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		}
		return domain.Identity{}, ErrInvalidCredentials
	}

	if v.Rehash && cryptox.NeedsRehash(user.PasswordHash) {
		v.rehash(ctx, user.ID, password)
	}

	return user.Identity(), nil
}

func (v *DirectoryVerifier) Lookup(ctx context.Context, userID string) (domain.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout())
	defer cancel()

	user, err := v.Users.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Identity{}, ErrUserNotFound
	}
	if err != nil {
		return domain.Identity{}, upstream(err)
	}
	return user.Identity(), nil
}

func (v *DirectoryVerifier) getByUsername(ctx context.Context, username string) (domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout())
	defer cancel()
	return v.Users.GetUserByUsername(ctx, username)
}

func (v *DirectoryVerifier) rehash(ctx context.Context, userID, password string) {
	l := slogx.FromContext(ctx)

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		l.Warn("password rehash failed", slog.String("user_id", userID), slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout())
	defer cancel()
	if err := v.Users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		l.Warn("password rehash not stored", slog.String("user_id", userID), slog.Any("error", err))
		return
	}
	l.Info("password hash upgraded", slog.String("user_id", userID))
}

func (v *DirectoryVerifier) timeout() time.Duration {
	if v.Timeout > 0 {
		return v.Timeout
	}
	return DefaultStoreTimeout
}
