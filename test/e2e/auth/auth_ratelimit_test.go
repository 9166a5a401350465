package auth_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/tabauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitLoginEndpoint verifies that the login endpoint is rate limited
// per username. The strict limit is 5 req/min.
func TestRateLimitLoginEndpoint(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthContainerWithDefaultRateLimits(t))
	ctx := context.Background()

	for i := range 5 {
		_, err := client.Login(ctx, "wronguser", "wrongpass")
		assertAPIError(t, err, authsdk.ErrInvalidCredentials, "attempt before the limit")
		require.NotContains(t, err.Error(), "429", "Should not be rate limited yet (request %d)", i+1)
	}

	_, err := client.Login(ctx, "wronguser", "wrongpass")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429", "Should be rate limited after 5 requests")

	// The limit is keyed on the username, so the admin can still log in
	_, err = client.Login(ctx, adminUsername, adminPassword)
	require.NoError(t, err)
}

// TestRateLimitRefreshEndpoint verifies refresh has the moderate limit.
func TestRateLimitRefreshEndpoint(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthContainerWithDefaultRateLimits(t))
	ctx := context.Background()

	var lastErr error
	for range 21 {
		_, lastErr = client.Refresh(ctx, "not-a-token")
		require.Error(t, lastErr)
	}
	require.Contains(t, lastErr.Error(), "429", "Should be rate limited after 20 requests")
}
