package http_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabauth/internal/auth/authz"
	"github.com/aussiebroadwan/tabauth/internal/auth/domain"
	httpapi "github.com/aussiebroadwan/tabauth/internal/auth/http"
	"github.com/aussiebroadwan/tabauth/internal/auth/service"
	"github.com/aussiebroadwan/tabauth/internal/auth/store"
	"github.com/aussiebroadwan/tabauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/tabauth/pkg/authsdk"
	"github.com/aussiebroadwan/tabauth/pkg/cryptox"
	"github.com/aussiebroadwan/tabauth/pkg/httpx"
	"github.com/aussiebroadwan/tabauth/pkg/jwtx"
	"github.com/aussiebroadwan/tabauth/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testPassword = "correct horse battery staple"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "http-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type testServer struct {
	*httptest.Server
	client *authsdk.SDKClient
	users  *service.UserService
	codec  *jwtx.Codec
}

type serverOption func(r *httpapi.Router)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	db, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	require.NoError(t, db.ApplyMigrations())
	t.Cleanup(func() { _ = db.Close() })

	codec, err := jwtx.NewCodec([]byte(testSecret), jwtx.WithIssuer("tabauth-test"))
	require.NoError(t, err)

	verifier := &service.DirectoryVerifier{Users: db.Users()}
	mgr := &service.SessionManager{
		Sessions:  db.Sessions(),
		Directory: verifier,
		Codec:     codec,
	}
	users := &service.UserService{Users: db.Users()}

	router := httpapi.NewRouter(codec, authz.NewPolicy(httpapi.ServiceRules()...), "test", slogx.Discard())
	router.AuthService = &service.AuthService{Verifier: verifier, Sessions: mgr, Codec: codec}
	router.UserService = users
	router.Database = db
	router.Sessions = db
	router.StrictLimit = httpx.RateLimitConfig{Requests: 1000, Window: time.Minute, Burst: 1000}
	router.ModerateLimit = httpx.RateLimitConfig{Requests: 1000, Window: time.Minute, Burst: 1000}
	for _, opt := range opts {
		opt(router)
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{
		Server: srv,
		client: authsdk.NewSDKClient(srv.URL),
		users:  users,
		codec:  codec,
	}
}

func (s *testServer) createUser(t *testing.T, username string, role domain.Role) domain.User {
	t.Helper()

	u, err := s.users.CreateUser(context.Background(), service.NewUser{
		Username: username,
		Password: testPassword,
		Email:    username + "@example.com",
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func requireAPIError(t *testing.T, err error, want *authsdk.APIError) {
	t.Helper()

	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr), "want *APIError, got %v", err)
	require.Equal(t, want.StatusCode, apiErr.StatusCode)
	require.Equal(t, want.Code, apiErr.Code)
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)
	u := srv.createUser(t, "alice", domain.RoleSupervisor)

	resp, err := srv.client.Login(t.Context(), "alice", testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, int(jwtx.DefaultAccessTokenTTL.Seconds()), resp.ExpiresIn)
	require.Equal(t, u.ID, resp.ID)
	require.Equal(t, int(domain.RoleSupervisor), resp.Role)
}

func TestLogin_SameReplyForUnknownUserAndWrongPassword(t *testing.T) {
	srv := newTestServer(t)
	srv.createUser(t, "alice", domain.RoleUser)

	post := func(body string) (int, string) {
		resp, err := http.Post(srv.URL+"/v1/auth/login", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(raw)
	}

	codeA, bodyA := post(`{"username":"nobody","password":"whatever"}`)
	codeB, bodyB := post(`{"username":"alice","password":"wrong password"}`)

	require.Equal(t, http.StatusUnauthorized, codeA)
	require.Equal(t, codeA, codeB)
	require.Equal(t, bodyA, bodyB)
	require.Contains(t, bodyA, authsdk.ErrorCodeInvalidCredentials)
}

func TestLogin_BadRequest(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{``, `{`, `{"username":"","password":"x"}`, `{"username":"a","password":"x","extra":1}`} {
		resp, err := http.Post(srv.URL+"/v1/auth/login", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %q", body)
	}
}

func TestRefresh_RotationAndReuse(t *testing.T) {
	srv := newTestServer(t)
	srv.createUser(t, "alice", domain.RoleUser)
	ctx := t.Context()

	login, err := srv.client.Login(ctx, "alice", testPassword)
	require.NoError(t, err)

	rotated, err := srv.client.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	v2, err := srv.codec.DecodeRefresh(rotated.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, int64(2), v2.SessionVersion)

	// Replaying the first token ends the session
	_, err = srv.client.Refresh(ctx, login.RefreshToken)
	requireAPIError(t, err, authsdk.ErrRefreshDenied)

	_, err = srv.client.Refresh(ctx, rotated.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrRefreshDenied)
}

func TestRefresh_GarbageTokenDenied(t *testing.T) {
	srv := newTestServer(t)

	_, err := srv.client.Refresh(t.Context(), "not-a-token")
	requireAPIError(t, err, authsdk.ErrRefreshDenied)
}

func TestValidate(t *testing.T) {
	srv := newTestServer(t)
	u := srv.createUser(t, "alice", domain.RoleModerator)
	ctx := t.Context()

	login, err := srv.client.Login(ctx, "alice", testPassword)
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		res, err := srv.client.Validate(ctx, login.AccessToken)
		require.NoError(t, err)
		require.True(t, res.Valid)
		require.Equal(t, u.ID, res.UserID)
		require.Equal(t, "alice", res.Username)
		require.Equal(t, int(domain.RoleModerator), res.Role)
		require.Positive(t, res.ExpiresAt)
	})

	t.Run("expired", func(t *testing.T) {
		past := func() time.Time { return time.Now().Add(-time.Hour) }
		old, err := jwtx.NewCodec([]byte(testSecret), jwtx.WithIssuer("tabauth-test"), jwtx.WithClock(past))
		require.NoError(t, err)
		tok, err := old.IssueAccess(jwtx.NewAccessClaims(u.ID, "alice", "", 3, nil), time.Minute)
		require.NoError(t, err)

		res, err := srv.client.Validate(ctx, tok)
		require.NoError(t, err)
		require.False(t, res.Valid)
		require.Equal(t, authsdk.ReasonExpired, res.Reason)
	})

	t.Run("tampered", func(t *testing.T) {
		parts := strings.Split(login.AccessToken, ".")
		require.Len(t, parts, 3)
		first := "A"
		if parts[2][0] == 'A' {
			first = "B"
		}
		parts[2] = first + parts[2][1:]

		res, err := srv.client.Validate(ctx, strings.Join(parts, "."))
		require.NoError(t, err)
		require.False(t, res.Valid)
		require.Equal(t, authsdk.ReasonBadSignature, res.Reason)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		res, err := srv.client.Validate(ctx, login.RefreshToken)
		require.NoError(t, err)
		require.False(t, res.Valid)
		require.Equal(t, authsdk.ReasonUnsupported, res.Reason)
	})

	t.Run("no bearer", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/v1/auth/validate", "application/json", nil)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestMe(t *testing.T) {
	srv := newTestServer(t)
	u := srv.createUser(t, "alice", domain.RoleUser)

	session, err := srv.client.AuthenticateWithPassword(t.Context(), "alice", testPassword)
	require.NoError(t, err)

	me, err := session.GetMe(t.Context())
	require.NoError(t, err)
	require.Equal(t, u.ID, me.ID)
	require.Equal(t, "alice", me.Username)
	require.Equal(t, "alice@example.com", me.Email)
	require.Less(t, me.IssuedAt, me.ExpiresAt)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/me")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), `error="invalid_token"`)
}

func TestLogout_Idempotent(t *testing.T) {
	srv := newTestServer(t)
	srv.createUser(t, "alice", domain.RoleUser)
	ctx := t.Context()

	login, err := srv.client.Login(ctx, "alice", testPassword)
	require.NoError(t, err)

	require.NoError(t, srv.client.Logout(ctx, login.RefreshToken))
	require.NoError(t, srv.client.Logout(ctx, login.RefreshToken))

	_, err = srv.client.Refresh(ctx, login.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrRefreshDenied)

	err = srv.client.Logout(ctx, "garbage")
	requireAPIError(t, err, authsdk.ErrInvalidRequest)
}

func TestLogoutAll(t *testing.T) {
	srv := newTestServer(t)
	srv.createUser(t, "alice", domain.RoleUser)
	ctx := t.Context()

	phone, err := srv.client.Login(ctx, "alice", testPassword)
	require.NoError(t, err)
	laptop, err := srv.client.AuthenticateWithPassword(ctx, "alice", testPassword)
	require.NoError(t, err)

	out, err := laptop.LogoutAll(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), out.Sessions)

	_, err = srv.client.Refresh(ctx, phone.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrRefreshDenied)
}

func TestRevokeUserSessions_RoleGate(t *testing.T) {
	srv := newTestServer(t)
	victim := srv.createUser(t, "alice", domain.RoleUser)
	srv.createUser(t, "mod", domain.RoleModerator)
	ctx := t.Context()

	victimLogin, err := srv.client.Login(ctx, "alice", testPassword)
	require.NoError(t, err)

	userSession, err := srv.client.AuthenticateWithPassword(ctx, "alice", testPassword)
	require.NoError(t, err)
	_, err = userSession.RevokeUserSessions(ctx, victim.ID)
	requireAPIError(t, err, authsdk.ErrInsufficientRole)

	modSession, err := srv.client.AuthenticateWithPassword(ctx, "mod", testPassword)
	require.NoError(t, err)

	_, err = modSession.RevokeUserSessions(ctx, "01UNKNOWNUSER0000000000000")
	requireAPIError(t, err, authsdk.ErrUserNotFound)

	out, err := modSession.RevokeUserSessions(ctx, victim.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), out.Sessions)

	_, err = srv.client.Refresh(ctx, victimLogin.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrRefreshDenied)
}

// failingUsers answers every id lookup with a broken database.
type failingUsers struct {
	store.Users
}

func (failingUsers) GetUserByID(context.Context, string) (domain.User, error) {
	return domain.User{}, errors.New("sql: database is closed")
}

func TestRevokeUserSessions_DirectoryDown(t *testing.T) {
	srv := newTestServer(t, func(r *httpapi.Router) {
		r.UserService = &service.UserService{Users: failingUsers{Users: r.UserService.Users}}
	})
	srv.createUser(t, "mod", domain.RoleModerator)

	modSession, err := srv.client.AuthenticateWithPassword(t.Context(), "mod", testPassword)
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodDelete, srv.URL+"/v1/users/someone/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+modSession.AccessToken())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)

	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "1", resp.Header.Get("Retry-After"))
	require.Contains(t, string(body), authsdk.ErrorCodeUpstreamUnavailable)
}

func TestLogin_RateLimited(t *testing.T) {
	srv := newTestServer(t, func(r *httpapi.Router) {
		r.StrictLimit = httpx.RateLimitConfig{Requests: 1, Window: time.Hour, Burst: 1}
	})
	srv.createUser(t, "alice", domain.RoleUser)

	_, err := srv.client.Login(t.Context(), "alice", "wrong")
	requireAPIError(t, err, authsdk.ErrInvalidCredentials)

	_, err = srv.client.Login(t.Context(), "alice", testPassword)
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, authsdk.ErrorCodeRateLimitExceeded, apiErr.Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	live, err := srv.client.GetLiveness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := srv.client.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Sessions)
	require.Equal(t, "ok", ready.Checks.Signer)
}

func TestReadyz_Degraded(t *testing.T) {
	srv := newTestServer(t, func(r *httpapi.Router) {
		r.Sessions = nil
	})

	_, err := srv.client.GetReadiness(t.Context())
	var apiErr *authsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}
