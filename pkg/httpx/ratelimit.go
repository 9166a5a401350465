package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/tabauth/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket: Requests per Window on average, with up
// to Burst at once.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
}

var (
	// StrictLimit guards credential endpoints against brute force.
	StrictLimit = RateLimitConfig{Requests: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit suits token refresh, which well-behaved clients call
	// once per access token lifetime.
	ModerateLimit = RateLimitConfig{Requests: 20, Window: time.Minute, Burst: 20}
)

func (c RateLimitConfig) limit() rate.Limit {
	if c.Requests <= 0 || c.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.Requests) / c.Window.Seconds())
}

func (c RateLimitConfig) burst() int {
	if c.Burst > 0 {
		return c.Burst
	}
	return max(c.Requests, 1)
}

// KeyExtractor groups requests into rate limit buckets. An empty key skips
// limiting for that request.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor uses the first X-Forwarded-For hop, then X-Real-IP, then
// the connection address. Only deploy it behind a proxy that overwrites
// those headers.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// UserIDKeyExtractor keys by the authenticated user.
func UserIDKeyExtractor(r *http.Request) string {
	return UserIDFromContext(r.Context())
}

// JSONFieldKeyExtractor keys by a top-level string field of a JSON body,
// e.g. the username of a login attempt. The body is restored for the next
// handler.
func JSONFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err != nil {
			return ""
		}

		var fields map[string]json.RawMessage
		if json.Unmarshal(raw, &fields) != nil {
			return ""
		}
		var v string
		if json.Unmarshal(fields[field], &v) != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(v))
	}
}

// CompositeKeyExtractor joins the non-empty keys of several extractors.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key. Buckets idle for longer than
// IdleTTL are swept on later calls.
type RateLimiter struct {
	cfg     RateLimitConfig
	key     KeyExtractor
	name    string
	idleTTL time.Duration
	now     func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithLimiterName tags log lines, e.g. "login".
func WithLimiterName(name string) RateLimiterOption {
	return func(l *RateLimiter) { l.name = name }
}

// WithLimiterClock replaces time.Now.
func WithLimiterClock(now func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) { l.now = now }
}

// WithIdleTTL sets how long an unused bucket is kept.
func WithIdleTTL(d time.Duration) RateLimiterOption {
	return func(l *RateLimiter) {
		if d > 0 {
			l.idleTTL = d
		}
	}
}

func NewRateLimiter(cfg RateLimitConfig, key KeyExtractor, opts ...RateLimiterOption) *RateLimiter {
	l := &RateLimiter{
		cfg:     cfg,
		key:     key,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastSweep = l.now()
	return l
}

// Allow takes one token for key. When refused it reports how long until a
// token is available.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.cfg.limit(), l.cfg.burst())}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, l.cfg.Window
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len reports the number of live buckets.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.idleTTL {
			delete(l.buckets, k)
		}
	}
}

// Middleware answers 429 with Retry-After once a key runs out of tokens.
func (l *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := l.key(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := l.Allow(key)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int((wait + time.Second - 1) / time.Second), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Requests))
			w.Header().Set("X-RateLimit-Window", l.cfg.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				slog.String("limiter", l.name),
				slog.String("key", key),
				slog.Int("retry_after", retryAfter),
			)
			WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests. Please try again later.")
		})
	}
}

// RateLimitByIP limits by client address.
func RateLimitByIP(cfg RateLimitConfig, opts ...RateLimiterOption) Middleware {
	return NewRateLimiter(cfg, IPKeyExtractor, opts...).Middleware()
}

// RateLimitByIPAndJSONField limits by client address plus a body field, so
// one address cannot hammer one account.
func RateLimitByIPAndJSONField(cfg RateLimitConfig, field string, opts ...RateLimiterOption) Middleware {
	return NewRateLimiter(cfg, CompositeKeyExtractor(":", IPKeyExtractor, JSONFieldKeyExtractor(field)), opts...).Middleware()
}
