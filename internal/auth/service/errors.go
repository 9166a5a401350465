package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrInvalidRefreshToken = errors.New("invalid_refresh_token")
	ErrSessionNotFound     = errors.New("session_not_found")
	ErrReuseDetected       = errors.New("refresh_token_reuse_detected")
	ErrRotationConflict    = errors.New("rotation_conflict")
	ErrUserNotFound        = errors.New("user_not_found")
	ErrUpstreamUnavailable = errors.New("upstream_unavailable")
	ErrRefreshDenied       = errors.New("refresh denied, please re-authenticate")
)

// RefreshDeniedError is what callers of Refresh see for every rejected
// rotation. The message never says which check failed; Cause does, for logs
// and alerting.
type RefreshDeniedError struct {
	Cause error
}

func (e *RefreshDeniedError) Error() string { return ErrRefreshDenied.Error() }

func (e *RefreshDeniedError) Unwrap() error { return e.Cause }

func (e *RefreshDeniedError) Is(target error) bool { return target == ErrRefreshDenied }

// SecurityAlert reports whether the denial was caused by a replayed token.
func (e *RefreshDeniedError) SecurityAlert() bool {
	return errors.Is(e.Cause, ErrReuseDetected)
}

func upstream(err error) error {
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}
