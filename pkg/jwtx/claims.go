package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func init() {
	// The codec stamps whole milliseconds. Parsing goes through float64, so
	// keep sub-millisecond digits on the way in and round them off after
	// decoding (see normalizeTimes).
	jwt.TimePrecision = time.Microsecond
}

// Default token TTL constants. These can be overridden per-service.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token kinds carried in the "typ" claim. A refresh token is never accepted
// where an access token is expected and vice versa.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// AccessClaims are the claims of a short-lived access token. The subject is
// the username.
type AccessClaims struct {
	jwt.RegisteredClaims

	Type     string `json:"typ"`
	UserID   string `json:"id"`
	Role     int    `json:"role"`
	Email    string `json:"email,omitempty"`
	Position *int64 `json:"position,omitempty"`
}

// Username returns the subject of the token.
func (c AccessClaims) Username() string { return c.Subject }

// RefreshClaims bind a refresh token to one login session generation.
type RefreshClaims struct {
	jwt.RegisteredClaims

	Type             string `json:"typ"`
	UserID           string `json:"userId"`
	LoginSessionUUID string `json:"loginSessionUuid"`
	SessionVersion   int64  `json:"sessionVersion"`
}

// NewAccessClaims builds the identity part of an access token. Registered
// time claims are stamped by the Codec at issue time.
func NewAccessClaims(userID, username, email string, role int, position *int64) AccessClaims {
	return AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: username},
		Type:             TypeAccess,
		UserID:           userID,
		Role:             role,
		Email:            email,
		Position:         position,
	}
}

// NewRefreshClaims builds refresh claims embedding the session version
// snapshot.
func NewRefreshClaims(userID, username, loginSessionUUID string, version int64) RefreshClaims {
	return RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: username},
		Type:             TypeRefresh,
		UserID:           userID,
		LoginSessionUUID: loginSessionUUID,
		SessionVersion:   version,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim. Two tokens
// issued within the same millisecond for the same session still differ.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
