package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabauth/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteStore(t)
	svc := &BootstrapService{Users: &UserService{Users: db.Users()}}

	res, err := svc.EnsureAdmin(ctx, "root", "", "root@example.com")
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Len(t, res.GeneratedPassword, 16)

	u, err := db.Users().GetUserByUsername(ctx, "root")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, u.Role)

	v := &DirectoryVerifier{Users: db.Users()}
	id, err := v.Verify(ctx, "root", res.GeneratedPassword)
	require.NoError(t, err)
	require.Equal(t, res.UserID, id.ID)

	again, err := svc.EnsureAdmin(ctx, "other", "pw", "")
	require.NoError(t, err)
	require.False(t, again.Created)
}

func TestEnsureAdmin_NoUsername(t *testing.T) {
	db := newSQLiteStore(t)
	svc := &BootstrapService{Users: &UserService{Users: db.Users()}}

	res, err := svc.EnsureAdmin(context.Background(), "", "", "")
	require.NoError(t, err)
	require.False(t, res.Created)
}

func TestCreateUser_Validation(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteStore(t)
	svc := &UserService{Users: db.Users()}

	_, err := svc.CreateUser(ctx, NewUser{Username: " ", Password: "pw", Role: domain.RoleUser})
	require.ErrorIs(t, err, ErrInvalidUsername)

	_, err = svc.CreateUser(ctx, NewUser{Username: "x", Password: "pw", Role: domain.RolePublic})
	require.ErrorIs(t, err, ErrInvalidRole)

	u, err := svc.CreateUser(ctx, NewUser{Username: "x", Password: "pw", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, NewUser{Username: "x", Password: "pw", Role: domain.RoleUser})
	require.ErrorIs(t, err, ErrUsernameTaken)

	got, err := svc.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "x", got.Username)

	_, err = svc.GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUserByID_UpstreamUnavailable(t *testing.T) {
	db := newSQLiteStore(t)
	svc := &UserService{Users: blockingUsers{Users: db.Users()}, Timeout: 20 * time.Millisecond}

	start := time.Now()
	_, err := svc.GetUserByID(context.Background(), "someone")
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotErrorIs(t, err, ErrUserNotFound)
	require.Less(t, time.Since(start), 5*time.Second)
}
