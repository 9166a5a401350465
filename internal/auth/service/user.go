package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/tabauth/internal/auth/domain"
	"github.com/aussiebroadwan/tabauth/internal/auth/store"
	"github.com/aussiebroadwan/tabauth/pkg/cryptox"
	"github.com/aussiebroadwan/tabauth/pkg/idx"
)

var (
	ErrUsernameTaken   = errors.New("username_taken")
	ErrInvalidUsername = errors.New("invalid_username")
	ErrInvalidRole     = errors.New("invalid_role")
)

// NewUser is the input for UserService.CreateUser.
type NewUser struct {
	Username   string
	Password   string
	Email      string
	Role       domain.Role
	PositionID *int64
}

type UserService struct {
	Users store.Users

	// Timeout bounds directory lookups. Default: DefaultStoreTimeout
	Timeout time.Duration
}

// GetUserByID fetches a user by id. Store failures and timeouts come back
// as ErrUpstreamUnavailable.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u, err := s.Users.GetUserByID(ctx, userID)
	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, store.ErrNotFound):
		return domain.User{}, ErrUserNotFound
	default:
		return domain.User{}, upstream(err)
	}
}

// CreateUser hashes the password and stores a new user.
func (s *UserService) CreateUser(ctx context.Context, in NewUser) (domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return domain.User{}, ErrInvalidUsername
	}
	if !in.Role.Valid() {
		return domain.User{}, fmt.Errorf("%w: %d", ErrInvalidRole, in.Role)
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("service: hash password: %w", err)
	}

	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Role:         in.Role,
		PositionID:   in.PositionID,
	}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, err
	}
	return u, nil
}
