package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tabauth/internal/auth/authz"
	"github.com/aussiebroadwan/tabauth/internal/auth/domain"
	"github.com/aussiebroadwan/tabauth/internal/auth/service"
	"github.com/aussiebroadwan/tabauth/pkg/httpx"
	"github.com/aussiebroadwan/tabauth/pkg/jwtx"
	"github.com/aussiebroadwan/tabauth/pkg/slogx"

	_ "github.com/aussiebroadwan/tabauth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// ServiceRules is the rule table for this service's own protected routes.
// Anything not listed needs an authenticated caller of any role.
func ServiceRules() []authz.Rule {
	return []authz.Rule{
		{Pattern: "/v1/users/{userId}/sessions", Method: http.MethodDelete, MinRole: domain.RoleModerator},
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec        *jwtx.Codec
	policy       *authz.Policy
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	AuthService *service.AuthService
	UserService *service.UserService

	// Readiness probes. Sessions may be the same store as Database.
	Database Pinger
	Sessions Pinger

	StrictLimit   httpx.RateLimitConfig
	ModerateLimit httpx.RateLimitConfig
}

func NewRouter(
	codec *jwtx.Codec,
	policy *authz.Policy,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		codec:         codec,
		policy:        policy,
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		logger:        logger,
		StrictLimit:   httpx.StrictLimit,
		ModerateLimit: httpx.ModerateLimit,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recoverer,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			tabauth Session Service API
//	@version		0.1.0
//	@description	First-party login, access token validation and refresh token rotation.
//	@description
//	@description				Refresh tokens are single use. Presenting a retired refresh token ends the whole session.
//
//	@contact.name				AussieBroadWAN Team
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// protected verifies the bearer token and applies the rule table.
func (r *Router) protected(h http.Handler, mws ...httpx.Middleware) http.Handler {
	chain := append([]httpx.Middleware{
		httpx.AuthnMiddleware(r.codec),
		AuthzMiddleware(r.policy),
	}, mws...)
	return httpx.Chain(h, chain...)
}

func (r *Router) registerAuth() {
	// POST /login - strict rate limit by IP + username (brute force)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(&LoginHandler{AuthService: r.AuthService},
			httpx.RateLimitByIPAndJSONField(r.StrictLimit, "username", httpx.WithLimiterName("login")),
		),
	)

	// POST /refresh - moderate; clients call it once per access token lifetime
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(&RefreshHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(r.ModerateLimit, httpx.WithLimiterName("refresh")),
		),
	)

	// POST /validate - not behind AuthnMiddleware, an invalid token is the
	// answer rather than an error
	r.Mux.Handle("POST /v1/auth/validate",
		httpx.Chain(&ValidateHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(r.ModerateLimit, httpx.WithLimiterName("validate")),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(&LogoutHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(r.ModerateLimit, httpx.WithLimiterName("logout")),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout-all",
		r.protected(&LogoutAllHandler{AuthService: r.AuthService},
			httpx.NewRateLimiter(r.ModerateLimit, httpx.UserIDKeyExtractor, httpx.WithLimiterName("logout-all")).Middleware(),
		),
	)
}

func (r *Router) registerUsers() {
	r.Mux.Handle("GET /v1/me", r.protected(&MeHandler{}))

	h := &UserSessionsHandler{
		AuthService: r.AuthService,
		UserService: r.UserService,
	}
	r.Mux.Handle("DELETE /v1/users/{userId}/sessions", r.protected(h))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.Database, r.Sessions, r.codec != nil))
}
