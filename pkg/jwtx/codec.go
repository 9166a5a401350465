package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the smallest HS256 secret the Codec accepts.
const MinSecretLength = 32

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrUnsupported = errors.New("jwtx: unsupported token")

	ErrWeakSecret = errors.New("jwtx: signing secret too short")
)

// Codec issues and decodes HS256 tokens signed with a shared secret. It holds
// no mutable state and is safe for concurrent use.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithIssuer stamps and enforces the "iss" claim.
func WithIssuer(issuer string) Option {
	return func(c *Codec) { c.issuer = issuer }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec returns a Codec for the given secret.
func NewCodec(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrWeakSecret, MinSecretLength, len(secret))
	}

	c := &Codec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IssueAccess signs an access token valid for ttl from now.
func (c *Codec) IssueAccess(claims AccessClaims, ttl time.Duration) (string, error) {
	claims.Type = TypeAccess
	c.stamp(&claims.RegisteredClaims, ttl)
	return c.sign(claims)
}

// IssueRefresh signs a refresh token valid for ttl from now.
func (c *Codec) IssueRefresh(claims RefreshClaims, ttl time.Duration) (string, error) {
	claims.Type = TypeRefresh
	c.stamp(&claims.RegisteredClaims, ttl)
	return c.sign(claims)
}

// DecodeAccess verifies signature, issuer and expiry of an access token.
func (c *Codec) DecodeAccess(token string) (AccessClaims, error) {
	var claims AccessClaims
	if err := c.decode(token, &claims, &claims.RegisteredClaims, true); err != nil {
		return AccessClaims{}, err
	}
	if claims.Type != TypeAccess {
		return AccessClaims{}, fmt.Errorf("%w: expected %s token, got %q", ErrUnsupported, TypeAccess, claims.Type)
	}
	return claims, nil
}

// DecodeRefresh verifies signature, issuer and expiry of a refresh token.
func (c *Codec) DecodeRefresh(token string) (RefreshClaims, error) {
	return c.decodeRefresh(token, true)
}

// DecodeRefreshIgnoringExpiry verifies only the signature and kind of a
// refresh token. Logout accepts genuine tokens after they expire so the
// session they name can still be removed.
func (c *Codec) DecodeRefreshIgnoringExpiry(token string) (RefreshClaims, error) {
	return c.decodeRefresh(token, false)
}

func (c *Codec) decodeRefresh(token string, validate bool) (RefreshClaims, error) {
	var claims RefreshClaims
	if err := c.decode(token, &claims, &claims.RegisteredClaims, validate); err != nil {
		return RefreshClaims{}, err
	}
	if claims.Type != TypeRefresh {
		return RefreshClaims{}, fmt.Errorf("%w: expected %s token, got %q", ErrUnsupported, TypeRefresh, claims.Type)
	}
	if claims.UserID == "" || claims.LoginSessionUUID == "" {
		return RefreshClaims{}, fmt.Errorf("%w: missing session binding", ErrMalformed)
	}
	return claims, nil
}

func (c *Codec) stamp(rc *jwt.RegisteredClaims, ttl time.Duration) {
	now := c.now().Truncate(time.Millisecond)
	rc.Issuer = c.issuer
	rc.IssuedAt = jwt.NewNumericDate(now)
	rc.ExpiresAt = jwt.NewNumericDate(now.Add(ttl).Truncate(time.Millisecond))
	rc.ID = NewJTI()
}

func (c *Codec) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// decode verifies the signature, then checks expiry and issuer itself on
// millisecond-exact times. rc is the registered part of claims.
func (c *Codec) decode(token string, claims jwt.Claims, rc *jwt.RegisteredClaims, validate bool) error {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, err := parser.ParseWithClaims(token, claims, c.keyFunc); err != nil {
		return classify(err)
	}
	normalizeTimes(rc)

	if !validate {
		return nil
	}
	if rc.ExpiresAt == nil {
		return fmt.Errorf("%w: missing exp claim", ErrMalformed)
	}
	// Strict: a token is expired at its exp instant.
	if !c.now().Before(rc.ExpiresAt.Time) {
		return fmt.Errorf("%w: at %s", ErrExpired, rc.ExpiresAt.UTC().Format(time.RFC3339Nano))
	}
	if c.issuer != "" && rc.Issuer != c.issuer {
		return fmt.Errorf("%w: issuer %q", ErrUnsupported, rc.Issuer)
	}
	return nil
}

// normalizeTimes rounds parsed time claims back onto the millisecond grid.
// A NumericDate read from JSON can land a few hundred nanoseconds below the
// value that was written.
func normalizeTimes(rc *jwt.RegisteredClaims) {
	for _, d := range []*jwt.NumericDate{rc.IssuedAt, rc.ExpiresAt, rc.NotBefore} {
		if d != nil {
			d.Time = d.Round(time.Millisecond)
		}
	}
}

// keyFunc only hands out the secret for HS256. Anything else, including
// "none" and the other HMAC sizes, is rejected before verification.
func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("%w: alg %v", ErrUnsupported, t.Header["alg"])
	}
	return c.secret, nil
}

// classify maps parser failures onto the four decode outcomes. The parser
// verifies the signature before any claim, so a genuine token past its
// expiry always lands on ErrExpired.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnsupported):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSig, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
