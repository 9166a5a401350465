package domain

import "time"

// User is the stored directory record.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string // argon2id PHC string or legacy bcrypt
	Role         Role
	PositionID   *int64 // Optional org position; nil when unassigned
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is what a successful credential check yields. It is immutable for
// the duration of a request.
type Identity struct {
	ID         string
	Username   string
	Email      string
	Role       Role
	PositionID *int64
}

// Identity strips the credential material from a User.
func (u User) Identity() Identity {
	return Identity{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		PositionID: u.PositionID,
	}
}
