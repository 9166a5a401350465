package httpx_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/tabauth/pkg/httpx"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIPKeyExtractor(t *testing.T) {
	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(req))
	})

	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")
		require.Equal(t, "203.0.113.1", httpx.IPKeyExtractor(req))
	})

	t.Run("uses X-Real-IP if X-Forwarded-For absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Real-IP", "203.0.113.2")
		require.Equal(t, "203.0.113.2", httpx.IPKeyExtractor(req))
	})
}

func TestJSONFieldKeyExtractor(t *testing.T) {
	extract := httpx.JSONFieldKeyExtractor("username")

	t.Run("reads field and restores body", func(t *testing.T) {
		body := `{"username":" Alice ","password":"pw"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

		require.Equal(t, "alice", extract(req))
		rest, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.Equal(t, body, string(rest))
	})

	t.Run("missing or non-string field", func(t *testing.T) {
		for _, body := range []string{`{}`, `{"username":5}`, `not json`, ``} {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			require.Empty(t, extract(req), body)
		}
	})
}

func TestCompositeKeyExtractor(t *testing.T) {
	a := func(*http.Request) string { return "a" }
	empty := func(*http.Request) string { return "" }
	b := func(*http.Request) string { return "b" }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Equal(t, "a:b", httpx.CompositeKeyExtractor(":", a, empty, b)(req))
	require.Empty(t, httpx.CompositeKeyExtractor(":", empty)(req))
}

func TestRateLimiter_Allow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cfg := httpx.RateLimitConfig{Requests: 2, Window: time.Minute, Burst: 2}
	l := httpx.NewRateLimiter(cfg, httpx.IPKeyExtractor, httpx.WithLimiterClock(clock.Now))

	for range 2 {
		ok, _ := l.Allow("k")
		require.True(t, ok)
	}
	ok, wait := l.Allow("k")
	require.False(t, ok)
	require.InDelta(t, float64(30*time.Second), float64(wait), float64(time.Second))

	ok, _ = l.Allow("other")
	require.True(t, ok, "keys are independent")

	clock.Advance(30 * time.Second)
	ok, _ = l.Allow("k")
	require.True(t, ok)
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	l := httpx.NewRateLimiter(httpx.StrictLimit, httpx.IPKeyExtractor,
		httpx.WithLimiterClock(clock.Now),
		httpx.WithIdleTTL(time.Minute),
	)

	l.Allow("a")
	l.Allow("b")
	require.Equal(t, 2, l.Len())

	clock.Advance(2 * time.Minute)
	l.Allow("c")
	require.Equal(t, 1, l.Len())
}

func TestRateLimitMiddleware(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	cfg := httpx.RateLimitConfig{Requests: 3, Window: time.Minute, Burst: 3}
	h := httpx.NewRateLimiter(cfg, httpx.IPKeyExtractor, httpx.WithLimiterClock(clock.Now)).Middleware()(okHandler())

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for range 3 {
		require.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	}

	rec := send("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "20", rec.Header().Get("Retry-After"))
	require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
	require.Contains(t, rec.Body.String(), "rate_limit_exceeded")

	require.Equal(t, http.StatusOK, send("10.0.0.2").Code)
}

func TestRateLimitMiddleware_EmptyKeyPasses(t *testing.T) {
	l := httpx.NewRateLimiter(httpx.RateLimitConfig{Requests: 1, Window: time.Hour, Burst: 1},
		func(*http.Request) string { return "" })
	h := l.Middleware()(okHandler())

	for range 5 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.Zero(t, l.Len())
}

func TestRateLimitByIPAndJSONField(t *testing.T) {
	cfg := httpx.RateLimitConfig{Requests: 1, Window: time.Hour, Burst: 1}
	h := httpx.RateLimitByIPAndJSONField(cfg, "username")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.Contains(t, string(body), "username")
		w.WriteHeader(http.StatusOK)
	}))

	send := func(user string) int {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"`+user+`"}`))
		req.RemoteAddr = "10.0.0.1:1"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send("alice"))
	require.Equal(t, http.StatusTooManyRequests, send("alice"))
	require.Equal(t, http.StatusOK, send("bob"))
}

func TestRateLimitConfig_Unlimited(t *testing.T) {
	l := httpx.NewRateLimiter(httpx.RateLimitConfig{}, httpx.IPKeyExtractor)
	for range 100 {
		ok, _ := l.Allow("k")
		require.True(t, ok)
	}
}

func BenchmarkRateLimitMiddleware(b *testing.B) {
	h := httpx.RateLimitByIP(httpx.RateLimitConfig{Requests: 1_000_000, Window: time.Second, Burst: 1_000_000})(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	b.ResetTimer()
	for range b.N {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
