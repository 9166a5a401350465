package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/tabauth/internal/auth/domain"
)

var (
	ErrNotFound        = errors.New("store: not found")
	ErrAlreadyExists   = errors.New("store: already exists")
	ErrVersionConflict = errors.New("store: version conflict")
)

// Store is the root data access interface implemented by the SQL drivers. It
// exposes sub-repositories so a Tx can hand out the same repos bound to the
// transaction.
type Store interface {
	Users() Users
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

// Users is the credential directory.
type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash replaces the stored hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

// Sessions persists login sessions. Implementations must make UpdateVersion a
// single atomic compare-and-set.
type Sessions interface {
	// Insert stores a new session. A second live session for the same
	// (user, login session uuid) pair is ErrAlreadyExists.
	Insert(ctx context.Context, s domain.Session) error

	// FindByUserAndUUID returns the session or ErrNotFound.
	FindByUserAndUUID(ctx context.Context, userID, loginSessionUUID string) (domain.Session, error)

	// UpdateVersion sets version=next only if the stored version is still
	// expected. Anything else, including a session deleted in the meantime,
	// is ErrVersionConflict.
	UpdateVersion(ctx context.Context, sessionID string, expected, next int64) error

	// DeleteByUserAndUUID removes one session. Deleting an absent session is
	// not an error.
	DeleteByUserAndUUID(ctx context.Context, userID, loginSessionUUID string) error

	// DeleteAllByUser removes every session of a user and reports how many.
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)

	// DeleteStale removes sessions not rotated since before.
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}
