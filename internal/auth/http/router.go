package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/learnhub/internal/auth/domain"
	"github.com/aussiebroadwan/learnhub/internal/auth/service"
	"github.com/aussiebroadwan/learnhub/pkg/httpx"
	"github.com/aussiebroadwan/learnhub/pkg/obs"
	"github.com/aussiebroadwan/learnhub/pkg/slogx"

	_ "github.com/aussiebroadwan/learnhub/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig carries what the router needs besides the services.
type RouterConfig struct {
	BuildVersion string
	Logger       *slog.Logger
	Metrics      *obs.Metrics
	Limits       httpx.RateLimitProfiles

	// TrustProxy makes client IPs come from X-Forwarded-For / X-Real-IP.
	// Only enable behind a proxy that overwrites those headers.
	TrustProxy bool

	// ReadyChecks are run by /readyz.
	ReadyChecks map[string]ReadyCheck
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *obs.Metrics
	limits       httpx.RateLimitProfiles
	trustProxy   bool
	readyChecks  map[string]ReadyCheck

	Gate           *service.Gate
	AccountService *service.AccountService
}

func NewRouter(cfg RouterConfig) *Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Limits == (httpx.RateLimitProfiles{}) {
		cfg.Limits = httpx.RateLimitProfiles{
			Strict:   httpx.StrictLimit,
			Moderate: httpx.ModerateLimit,
			Lenient:  httpx.LenientLimit,
			Public:   httpx.PublicLimit,
		}
	}

	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: cfg.BuildVersion,
		startTime:    time.Now(),
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		limits:       cfg.Limits,
		trustProxy:   cfg.TrustProxy,
		readyChecks:  cfg.ReadyChecks,
	}

	// Instrument must wrap the mux directly so it sees the matched pattern.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		r.metrics.Instrument,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSessions()
	r.registerAccounts()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			LearnHub Authentication Service API
//	@version		0.1.0
//	@description	Login, refresh-token rotation, logout and session management for LearnHub.
//	@description
//	@description				Access and refresh tokens are HS256-signed JWTs. Refresh tokens are single use.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/learnhub
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
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) byIP() httpx.KeyExtractor {
	return httpx.IPKeyExtractor(r.trustProxy)
}

// byIdentity falls back to the client IP if no identity is in context.
func (r *Router) byIdentity() httpx.KeyExtractor {
	return httpx.FirstKeyExtractor(httpx.IdentityKeyExtractor, r.byIP())
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Gate: r.Gate, TrustProxy: r.trustProxy}
	authn := authenticate(r.Gate)

	// POST /login - strict per IP+email against guessing one password, and
	// moderate per IP against spraying many accounts
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitMiddleware(r.limits.Moderate, r.byIP()),
			httpx.RateLimitMiddleware(r.limits.Strict,
				httpx.CompositeKeyExtractor("|", r.byIP(), httpx.JSONFieldKeyExtractor("email"))),
		),
	)

	// POST /refresh - strict rate limit by IP
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitMiddleware(r.limits.Strict, r.byIP()),
		),
	)

	// POST /logout - moderate rate limit by IP, no authentication
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitMiddleware(r.limits.Moderate, r.byIP()),
		),
	)

	r.Mux.Handle("GET /v1/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			authn,
			httpx.RateLimitMiddleware(r.limits.Lenient, r.byIdentity()),
		),
	)

	r.Mux.Handle("GET /v1/auth/status",
		httpx.Chain(http.HandlerFunc(h.HandleStatus),
			httpx.RateLimitMiddleware(r.limits.Lenient, r.byIP()),
		),
	)
}

func (r *Router) registerSessions() {
	h := &SessionsHandler{Gate: r.Gate}
	authn := authenticate(r.Gate)
	limit := httpx.RateLimitMiddleware(r.limits.Moderate, r.byIdentity())

	r.Mux.Handle("GET /v1/auth/sessions", httpx.Chain(http.HandlerFunc(h.HandleList), authn, limit))
	r.Mux.Handle("DELETE /v1/auth/sessions/{id}", httpx.Chain(http.HandlerFunc(h.HandleRevoke), authn, limit))
}

func (r *Router) registerAccounts() {
	h := &AccountsHandler{Accounts: r.AccountService}

	// Admin endpoints share one limiter per identity. It runs before the role
	// check so rejected callers are throttled too.
	authn := authenticate(r.Gate)
	admin := requireRole(domain.RoleAdmin)
	limit := httpx.RateLimitMiddleware(r.limits.Moderate, r.byIdentity())
	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, authn, limit, admin)
	}

	r.Mux.Handle("PATCH /v1/accounts/{id}/role", secured(h.HandleChangeRole))
	r.Mux.Handle("POST /v1/accounts/{id}/deactivate", secured(h.HandleDeactivate))
	r.Mux.Handle("DELETE /v1/accounts/{id}", secured(h.HandleDelete))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitMiddleware(r.limits.Lenient, r.byIP()),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.readyChecks),
			httpx.RateLimitMiddleware(r.limits.Lenient, r.byIP()),
		),
	)

	if r.metrics != nil {
		r.Mux.Handle("GET /metrics", r.metrics.Handler())
	}
}
