package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/tabauth/internal/auth/domain"
	"github.com/aussiebroadwan/tabauth/pkg/cryptox"
	"github.com/aussiebroadwan/tabauth/pkg/slogx"
)

var ErrBootstrapFailedToCreateAdmin = errors.New("failed to create admin user")

// BootstrapService seeds the first administrator into an empty directory.
type BootstrapService struct {
	Users *UserService
}

// BootstrapResult describes what EnsureAdmin did. GeneratedPassword is only
// set when no password was configured and one had to be made up.
type BootstrapResult struct {
	Created           bool
	UserID            string
	GeneratedPassword string
}

// EnsureAdmin creates an admin user when the directory is empty. A populated
// directory is left untouched.
func (s *BootstrapService) EnsureAdmin(ctx context.Context, username, password, email string) (BootstrapResult, error) {
	l := slogx.FromContext(ctx)

	// 1. Only an empty directory gets bootstrapped
	empty, err := s.Users.Users.IsEmpty(ctx)
	if err != nil {
		return BootstrapResult{}, fmt.Errorf("bootstrap: %w", err)
	}
	if !empty {
		l.Debug("bootstrap skipped, directory already populated")
		return BootstrapResult{}, nil
	}
	if username == "" {
		l.Warn("directory is empty and no bootstrap username is configured")
		return BootstrapResult{}, nil
	}

	// 2. Make up a password if none was configured
	var res BootstrapResult
	if password == "" {
		if password, err = cryptox.GeneratePassword(); err != nil {
			return BootstrapResult{}, fmt.Errorf("bootstrap: %w", err)
		}
		res.GeneratedPassword = password
	}

	// 3. Create the admin
	u, err := s.Users.CreateUser(ctx, NewUser{
		Username: username,
		Password: password,
		Email:    email,
		Role:     domain.RoleAdmin,
	})
	if errors.Is(err, ErrUsernameTaken) {
		// another instance won the race
		return BootstrapResult{}, nil
	}
	if err != nil {
		l.Error("failed to create admin user", slog.String("username", username), slog.Any("error", err))
		return BootstrapResult{}, fmt.Errorf("%w: %w", ErrBootstrapFailedToCreateAdmin, err)
	}

	res.Created = true
	res.UserID = u.ID
	l.Info("bootstrapped admin user", slog.String("admin_user_id", u.ID), slog.String("username", u.Username))
	return res, nil
}
