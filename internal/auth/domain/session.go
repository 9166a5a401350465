package domain

import "time"

// InitialSessionVersion is the version a session starts at on login.
const InitialSessionVersion int64 = 1

// Session is one login event. Version is bumped by exactly one on every
// successful refresh; a refresh token carrying an older version is evidence
// the token was copied.
type Session struct {
	ID               string
	UserID           string
	LoginSessionUUID string
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Next returns the session as it looks after one successful rotation.
func (s Session) Next(now time.Time) Session {
	s.Version++
	s.UpdatedAt = now
	return s
}
