/*
Package authsdk provides a client SDK for the tabauth session service.

# Overview

The service issues short-lived access tokens and single-use refresh tokens.
The SDK offers unauthenticated operations through SDKClient and
authenticated operations through Session, which rotates its tokens on its
own.

# SDKClient vs Session

Create an SDKClient to talk to public endpoints and to log in:

	client := authsdk.NewSDKClient("https://auth.example.com")

	// Check service health
	health, err := client.GetLiveness(ctx)

	// Log in to create a session
	session, err := client.AuthenticateWithPassword(ctx, username, password)

Use a Session for authenticated operations:

	me, err := session.GetMe(ctx)

	// End every session of this user
	_, err = session.LogoutAll(ctx)

# Refresh Rotation

Every refresh returns a new refresh token and retires the old one. Presenting
a retired refresh token is treated as theft: the service ends the whole
session and every later refresh fails with ErrRefreshDenied. A Session
serialises its refreshes so concurrent callers never trip this by accident.
Programs that persist tokens must store the newest refresh token after every
call:

	tokens, err := client.Refresh(ctx, saved.RefreshToken)
	if errors.Is(err, authsdk.ErrRefreshDenied) {
		// log in again
	}
	saved = tokens

# Validation

Validate reports why a token is unusable instead of failing:

	res, err := client.Validate(ctx, accessToken)
	if err == nil && !res.Valid && res.Reason == authsdk.ReasonExpired {
		// refresh and retry
	}

# Errors

Every error reply decodes into an *APIError. Compare with errors.Is against
the predefined values (ErrInvalidCredentials, ErrRefreshDenied,
ErrInsufficientRole, ...), which match on the error code.
*/
package authsdk
