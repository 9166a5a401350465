package domain

import "time"

// TokenPair is what login and refresh hand back: a short-lived access token
// and the refresh token bound to the current session version.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string        // always "Bearer"
	ExpiresIn    time.Duration // access token lifetime
}
