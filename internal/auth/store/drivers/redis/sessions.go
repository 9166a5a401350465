// Package redis keeps login sessions in Redis. Users stay in the SQL store;
// only the hot rotation path moves here.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aussiebroadwan/tabauth/internal/auth/domain"
	"github.com/aussiebroadwan/tabauth/internal/auth/store"
	goredis "github.com/redis/go-redis/v9"
)

// ErrUnavailable wraps any transport or server failure.
var ErrUnavailable = errors.New("redis: unavailable")

const (
	// DefaultPrefix namespaces every key written by the store.
	DefaultPrefix = "tabauth:sess"

	// DefaultRetention matches the refresh token lifetime.
	DefaultRetention = 7 * 24 * time.Hour
)

const (
	statusMissing int64 = 0
	statusOK      int64 = 1
)

// KEYS[1] session hash, KEYS[2] lookup, KEYS[3] user set
// ARGV: id, user_id, uuid, version, created_at, updated_at, retention_ms
const insertScript = `
if redis.call("EXISTS", KEYS[2]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1],
  "user_id", ARGV[2],
  "uuid", ARGV[3],
  "version", ARGV[4],
  "created_at", ARGV[5],
  "updated_at", ARGV[6])
redis.call("SET", KEYS[2], ARGV[1])
redis.call("SADD", KEYS[3], ARGV[1])
redis.call("PEXPIRE", KEYS[1], ARGV[7])
redis.call("PEXPIRE", KEYS[2], ARGV[7])
redis.call("PEXPIRE", KEYS[3], ARGV[7])
return 1
`

// KEYS[1] session hash
// ARGV: expected, next, updated_at, retention_ms, key prefix
const updateVersionScript = `
local current = redis.call("HGET", KEYS[1], "version")
if not current or tonumber(current) ~= tonumber(ARGV[1]) then
  return 0
end
redis.call("HSET", KEYS[1], "version", ARGV[2], "updated_at", ARGV[3])

local user_id = redis.call("HGET", KEYS[1], "user_id")
local uuid = redis.call("HGET", KEYS[1], "uuid")
redis.call("PEXPIRE", KEYS[1], ARGV[4])
redis.call("PEXPIRE", ARGV[5] .. ":lookup:" .. user_id .. ":" .. uuid, ARGV[4])
redis.call("PEXPIRE", ARGV[5] .. ":user:" .. user_id, ARGV[4])
return 1
`

// KEYS[1] lookup, KEYS[2] user set
// ARGV: key prefix
const deleteScript = `
local id = redis.call("GET", KEYS[1])
if not id then
  return 0
end
redis.call("DEL", ARGV[1] .. ":" .. id)
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], id)
return 1
`

// KEYS[1] user set
// ARGV: key prefix, user_id
const deleteAllScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local removed = 0
for _, id in ipairs(ids) do
  local key = ARGV[1] .. ":" .. id
  local uuid = redis.call("HGET", key, "uuid")
  if uuid then
    redis.call("DEL", ARGV[1] .. ":lookup:" .. ARGV[2] .. ":" .. uuid)
    removed = removed + redis.call("DEL", key)
  end
end
redis.call("DEL", KEYS[1])
return removed
`

var (
	insertLua        = goredis.NewScript(insertScript)
	updateVersionLua = goredis.NewScript(updateVersionScript)
	deleteLua        = goredis.NewScript(deleteScript)
	deleteAllLua     = goredis.NewScript(deleteAllScript)
)

// Sessions implements store.Sessions on top of a Redis client. Every write
// is a single Lua script so the compare-and-set on version is atomic.
type Sessions struct {
	client    goredis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

var _ store.Sessions = (*Sessions)(nil)

// Option configures a Sessions store.
type Option func(*Sessions)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Sessions) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRetention sets how long an idle session survives. Each successful
// rotation restarts the clock.
func WithRetention(d time.Duration) Option {
	return func(s *Sessions) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithClock replaces time.Now for updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sessions) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSessions returns a session store using client. The caller owns the
// client unless Close is called.
func NewSessions(client goredis.UniversalClient, opts ...Option) *Sessions {
	s := &Sessions{
		client:    client,
		prefix:    DefaultPrefix,
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the server is reachable.
func (s *Sessions) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Sessions) Close() error { return s.client.Close() }

func (s *Sessions) sessionKey(id string) string { return s.prefix + ":" + id }

func (s *Sessions) lookupKey(userID, uuid string) string {
	return s.prefix + ":lookup:" + userID + ":" + uuid
}

func (s *Sessions) userKey(userID string) string { return s.prefix + ":user:" + userID }

func (s *Sessions) Insert(ctx context.Context, sess domain.Session) error {
	res, err := insertLua.Run(ctx, s.client,
		[]string{
			s.sessionKey(sess.ID),
			s.lookupKey(sess.UserID, sess.LoginSessionUUID),
			s.userKey(sess.UserID),
		},
		sess.ID,
		sess.UserID,
		sess.LoginSessionUUID,
		sess.Version,
		sess.CreatedAt.UnixMilli(),
		sess.UpdatedAt.UnixMilli(),
		s.retention.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res != statusOK {
		return store.ErrAlreadyExists
	}
	return nil
}

func (s *Sessions) FindByUserAndUUID(ctx context.Context, userID, loginSessionUUID string) (domain.Session, error) {
	id, err := s.client.Get(ctx, s.lookupKey(userID, loginSessionUUID)).Result()
	if errors.Is(err, goredis.Nil) {
		return domain.Session{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	fields, err := s.client.HGetAll(ctx, s.sessionKey(id)).Result()
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		// lookup outlived the hash
		return domain.Session{}, store.ErrNotFound
	}
	return decodeSession(id, fields)
}

func (s *Sessions) UpdateVersion(ctx context.Context, sessionID string, expected, next int64) error {
	res, err := updateVersionLua.Run(ctx, s.client,
		[]string{s.sessionKey(sessionID)},
		expected,
		next,
		s.now().UnixMilli(),
		s.retention.Milliseconds(),
		s.prefix,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res == statusMissing {
		return store.ErrVersionConflict
	}
	return nil
}

func (s *Sessions) DeleteByUserAndUUID(ctx context.Context, userID, loginSessionUUID string) error {
	err := deleteLua.Run(ctx, s.client,
		[]string{s.lookupKey(userID, loginSessionUUID), s.userKey(userID)},
		s.prefix,
	).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Sessions) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	n, err := deleteAllLua.Run(ctx, s.client,
		[]string{s.userKey(userID)},
		s.prefix,
		userID,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

// DeleteStale is a no-op: idle sessions expire through key TTLs.
func (s *Sessions) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func decodeSession(id string, fields map[string]string) (domain.Session, error) {
	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return domain.Session{}, fmt.Errorf("redis: session %s: bad version: %w", id, err)
	}
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return domain.Session{}, fmt.Errorf("redis: session %s: bad created_at: %w", id, err)
	}
	updatedAt, err := strconv.ParseInt(fields["updated_at"], 10, 64)
	if err != nil {
		return domain.Session{}, fmt.Errorf("redis: session %s: bad updated_at: %w", id, err)
	}

	return domain.Session{
		ID:               id,
		UserID:           fields["user_id"],
		LoginSessionUUID: fields["uuid"],
		Version:          version,
		CreatedAt:        time.UnixMilli(createdAt).UTC(),
		UpdatedAt:        time.UnixMilli(updatedAt).UTC(),
	}, nil
}
