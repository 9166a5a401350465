package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/tabauth/internal/auth/domain"
	"github.com/aussiebroadwan/tabauth/internal/auth/store"
)

type sessionsRepo struct {
	db  dbtx
	now func() time.Time
}

func (r *sessionsRepo) Insert(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_sessions (id, user_id, login_session_uuid, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.UserID,
		s.LoginSessionUUID,
		s.Version,
		toMillis(s.CreatedAt),
		toMillis(s.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) FindByUserAndUUID(
	ctx context.Context,
	userID, loginSessionUUID string,
) (domain.Session, error) {
	var (
		s                    domain.Session
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, login_session_uuid, version, created_at, updated_at
		   FROM user_sessions
		  WHERE user_id = ? AND login_session_uuid = ?`,
		userID, loginSessionUUID,
	).Scan(&s.ID, &s.UserID, &s.LoginSessionUUID, &s.Version, &createdAt, &updatedAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}

	s.CreatedAt = fromMillis(createdAt)
	s.UpdatedAt = fromMillis(updatedAt)
	return s, nil
}

// UpdateVersion is a single conditional UPDATE; the WHERE on version makes
// concurrent rotations of the same generation resolve to exactly one winner.
func (r *sessionsRepo) UpdateVersion(ctx context.Context, sessionID string, expected, next int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions SET version = ?, updated_at = ? WHERE id = ? AND version = ?`,
		next, toMillis(r.now()), sessionID, expected,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrVersionConflict
	}
	return nil
}

func (r *sessionsRepo) DeleteByUserAndUUID(ctx context.Context, userID, loginSessionUUID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_sessions WHERE user_id = ? AND login_session_uuid = ?`,
		userID, loginSessionUUID,
	)
	return err
}

func (r *sessionsRepo) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE updated_at < ?`, toMillis(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
