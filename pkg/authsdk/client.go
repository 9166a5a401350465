package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the tabauth service. It covers the
// unauthenticated operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// RefreshSkew is how long before access token expiry a Session refreshes.
	// Default: 30s
	RefreshSkew time.Duration
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		RefreshSkew: 30 * time.Second,
	}
}

// AuthenticateWithPassword logs in and wraps the tokens in a Session that
// refreshes itself.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, username, password string) (*Session, error) {
	loginResp, err := c.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	return newSession(c, &loginResp.TokenResponse), nil
}

// NewSessionFromTokens creates a Session from tokens obtained elsewhere,
// for example ones restored from disk.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int) *Session {
	return newSession(c, &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	})
}
