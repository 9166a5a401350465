package authsdk

// ============================================================================
// Internal Response Types (used for JSON unmarshaling)
// ============================================================================

// ErrorResponse is the body of every error reply from the service.
// Client code should use the APIError type from errors.go instead.
type ErrorResponse struct {
	// Error is the machine readable code (e.g. "invalid_credentials")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description,omitempty"`
}

// ============================================================================
// Token Types
// ============================================================================

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /v1/auth/refresh and /v1/auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenResponse is returned by refresh, and embedded in the login response.
type TokenResponse struct {
	// AccessToken is the short-lived signed token sent as a Bearer credential
	AccessToken string `json:"accessToken"`

	// RefreshToken redeems exactly once for a new pair
	RefreshToken string `json:"refreshToken"`

	// TokenType is always "Bearer"
	TokenType string `json:"tokenType"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expiresIn"`
}

// LoginResponse is a token pair plus a summary of the authenticated user.
type LoginResponse struct {
	TokenResponse

	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     int    `json:"role"`
	Position *int64 `json:"position,omitempty"`
}

// ValidateResponse is returned by POST /v1/auth/validate. An invalid token is
// not an HTTP error; Reason says why it was rejected.
type ValidateResponse struct {
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason,omitempty"` // expired, malformed, bad_signature, unsupported
	UserID    string `json:"id,omitempty"`
	Username  string `json:"username,omitempty"`
	Role      int    `json:"role,omitempty"`
	ExpiresAt int64  `json:"expiresAt,omitempty"` // milliseconds since epoch
}

// Reasons reported by ValidateResponse.
const (
	ReasonExpired      = "expired"
	ReasonMalformed    = "malformed"
	ReasonBadSignature = "bad_signature"
	ReasonUnsupported  = "unsupported"
)

// ============================================================================
// User Types
// ============================================================================

// MeResponse describes the caller as seen through their access token.
type MeResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Role      int    `json:"role"`
	Position  *int64 `json:"position,omitempty"`
	IssuedAt  int64  `json:"issuedAt"`  // milliseconds since epoch
	ExpiresAt int64  `json:"expiresAt"` // milliseconds since epoch
}

// LogoutAllResponse reports how many sessions were ended.
type LogoutAllResponse struct {
	Sessions int64 `json:"sessions"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks is the per-dependency status in a readiness response.
type HealthChecks struct {
	Database string `json:"database"`
	Sessions string `json:"sessions"`
	Signer   string `json:"signer"`
}
