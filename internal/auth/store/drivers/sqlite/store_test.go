package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabauth/internal/auth/domain"
	"github.com/aussiebroadwan/tabauth/internal/auth/store"
	"github.com/aussiebroadwan/tabauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tabauth/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedUser(t *testing.T, st store.Store, username string) domain.User {
	t.Helper()

	pos := int64(12)
	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$placeholder",
		Role:         domain.RoleSupervisor,
		PositionID:   &pos,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func newSession(userID string) domain.Session {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return domain.Session{
		ID:               idx.New().String(),
		UserID:           userID,
		LoginSessionUUID: idx.New().String(),
		Version:          domain.InitialSessionVersion,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.ApplyMigrations())

	v, dirty, err := st.SchemaVersion()
	require.NoError(t, err)
	require.False(t, dirty)
	require.Equal(t, uint(2), v)
}

func TestMemoryDSN(t *testing.T) {
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.ApplyMigrations())

	empty, err := st.Users().IsEmpty(context.Background())
	require.NoError(t, err)
	require.True(t, empty)
}

func TestUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)

	u := seedUser(t, st, "alice")

	t.Run("lookup by id and username", func(t *testing.T) {
		byID, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "alice", byID.Username)
		require.Equal(t, domain.RoleSupervisor, byID.Role)
		require.NotNil(t, byID.PositionID)
		require.Equal(t, int64(12), *byID.PositionID)

		byName, err := st.Users().GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, u.ID, byName.ID)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := st.Users().GetUserByUsername(ctx, "nobody")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate username", func(t *testing.T) {
		dup := u
		dup.ID = idx.New().String()
		require.ErrorIs(t, st.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("update password hash", func(t *testing.T) {
		require.NoError(t, st.Users().UpdatePasswordHash(ctx, u.ID, "$argon2id$new"))
		got, err := st.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "$argon2id$new", got.PasswordHash)

		require.ErrorIs(t, st.Users().UpdatePasswordHash(ctx, "missing", "x"), store.ErrNotFound)
	})

	t.Run("not empty", func(t *testing.T) {
		empty, err := st.Users().IsEmpty(ctx)
		require.NoError(t, err)
		require.False(t, empty)
	})
}

func TestSessions_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)
	u := seedUser(t, st, "bob")

	s := newSession(u.ID)
	require.NoError(t, st.Sessions().Insert(ctx, s))

	t.Run("duplicate login uuid rejected", func(t *testing.T) {
		dup := s
		dup.ID = idx.New().String()
		require.ErrorIs(t, st.Sessions().Insert(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("find", func(t *testing.T) {
		got, err := st.Sessions().FindByUserAndUUID(ctx, u.ID, s.LoginSessionUUID)
		require.NoError(t, err)
		require.Equal(t, s.ID, got.ID)
		require.Equal(t, int64(1), got.Version)
		require.True(t, s.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("conditional version update", func(t *testing.T) {
		require.NoError(t, st.Sessions().UpdateVersion(ctx, s.ID, 1, 2))
		require.ErrorIs(t, st.Sessions().UpdateVersion(ctx, s.ID, 1, 2), store.ErrVersionConflict)

		got, err := st.Sessions().FindByUserAndUUID(ctx, u.ID, s.LoginSessionUUID)
		require.NoError(t, err)
		require.Equal(t, int64(2), got.Version)
	})

	t.Run("update of missing session conflicts", func(t *testing.T) {
		require.ErrorIs(t, st.Sessions().UpdateVersion(ctx, "gone", 1, 2), store.ErrVersionConflict)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, st.Sessions().DeleteByUserAndUUID(ctx, u.ID, s.LoginSessionUUID))
		require.NoError(t, st.Sessions().DeleteByUserAndUUID(ctx, u.ID, s.LoginSessionUUID))

		_, err := st.Sessions().FindByUserAndUUID(ctx, u.ID, s.LoginSessionUUID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestSessions_ConcurrentUpdateVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)
	u := seedUser(t, st, "carol")

	s := newSession(u.ID)
	require.NoError(t, st.Sessions().Insert(ctx, s))

	const racers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := st.Sessions().UpdateVersion(ctx, s.ID, 1, 2)
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				wins++
			case store.ErrVersionConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins)
	require.Equal(t, racers-1, conflicts)

	got, err := st.Sessions().FindByUserAndUUID(ctx, u.ID, s.LoginSessionUUID)
	require.NoError(t, err)
	require.Equal(t, int64(2), got.Version)
}

func TestSessions_DeleteAllAndStale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)
	u := seedUser(t, st, "dave")
	other := seedUser(t, st, "erin")

	old := newSession(u.ID)
	old.CreatedAt = old.CreatedAt.Add(-48 * time.Hour)
	old.UpdatedAt = old.CreatedAt
	require.NoError(t, st.Sessions().Insert(ctx, old))
	require.NoError(t, st.Sessions().Insert(ctx, newSession(u.ID)))
	require.NoError(t, st.Sessions().Insert(ctx, newSession(other.ID)))

	n, err := st.Sessions().DeleteStale(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = st.Sessions().DeleteAllByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = st.Sessions().DeleteAllByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	u := seedUser(t, st, "frank")
	s := newSession(u.ID)

	err := st.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().Insert(ctx, s); err != nil {
			return err
		}
		return store.ErrVersionConflict
	})
	require.ErrorIs(t, err, store.ErrVersionConflict)

	_, err = st.Sessions().FindByUserAndUUID(ctx, u.ID, s.LoginSessionUUID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessions_ForeignKeyEnforced(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	s := newSession("no-such-user")
	require.Error(t, st.Sessions().Insert(ctx, s), "foreign key enforced")
}
