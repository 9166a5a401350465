package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Login exchanges a username and password for a token pair.
func (c *SDKClient) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	resp, err := c.postJSON(ctx, "/v1/auth/login", LoginRequest{Username: username, Password: password}, nil)
	if err != nil {
		return nil, err
	}

	var loginResp LoginResponse
	if err := decodeJSON(resp, &loginResp, http.StatusOK); err != nil {
		return nil, err
	}

	return &loginResp, nil
}

// Refresh redeems a refresh token for a new pair. The old refresh token must
// not be used again: presenting it a second time ends the whole session.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	resp, err := c.postJSON(ctx, "/v1/auth/refresh", RefreshRequest{RefreshToken: refreshToken}, nil)
	if err != nil {
		return nil, err
	}

	var tokenResp TokenResponse
	if err := decodeJSON(resp, &tokenResp, http.StatusOK); err != nil {
		return nil, err
	}

	return &tokenResp, nil
}

// Validate asks the service whether an access token is currently valid.
func (c *SDKClient) Validate(ctx context.Context, accessToken string) (*ValidateResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/validate", nil, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		return nil, err
	}

	var validateResp ValidateResponse
	if err := decodeJSON(resp, &validateResp, http.StatusOK); err != nil {
		return nil, err
	}

	return &validateResp, nil
}

// Logout ends the session a refresh token belongs to. It succeeds for
// sessions that are already gone.
func (c *SDKClient) Logout(ctx context.Context, refreshToken string) error {
	resp, err := c.postJSON(ctx, "/v1/auth/logout", RefreshRequest{RefreshToken: refreshToken}, nil)
	if err != nil {
		return err
	}

	return checkStatusNoContent(resp)
}

func (c *SDKClient) postJSON(ctx context.Context, path string, body any, headers map[string]string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}

	return c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(payload), h)
}
