package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/passage/internal/auth/federation"
	"github.com/aussiebroadwan/passage/internal/auth/metrics"
	"github.com/aussiebroadwan/passage/internal/auth/service"
	"github.com/aussiebroadwan/passage/internal/auth/store"
	"github.com/aussiebroadwan/passage/pkg/httpx"
	"github.com/aussiebroadwan/passage/pkg/jwtx"
	"github.com/aussiebroadwan/passage/pkg/slogx"

	_ "github.com/aussiebroadwan/passage/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig carries the values handlers need from configuration.
type RouterConfig struct {
	BuildVersion string
	Cookies      CookieConfig
	CORS         httpx.CORSConfig

	// RedirectURI receives ?code= or ?error= after a federated login.
	RedirectURI string

	// Metrics records request latency; nil disables it.
	Metrics metrics.Recorder

	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cfg       RouterConfig
	verifier  jwtx.Verifier
	startTime time.Time
	logger    *slog.Logger
	store     store.Store

	AuthService      *service.AuthService
	FederatedService *service.FederatedService
	UserService      *service.UserService
	Providers        *federation.Registry
}

func NewRouter(cfg RouterConfig, verifier jwtx.Verifier, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		cfg:       cfg,
		verifier:  verifier,
		startTime: time.Now(),
		logger:    logger,
		store:     st,
	}

	// The metrics middleware must sit directly around the mux so it can read
	// the matched pattern from the request.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORS(cfg.CORS),
		metrics.Middleware(metrics.OrNop(cfg.Metrics)),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerFederated()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Passage Authentication Service API
//	@version		0.1.0
//	@description	Password and federated login issuing short-lived HS256 access tokens and rotating refresh tokens.
//	@description
//	@description				The refresh token is only ever sent as the HttpOnly refreshToken cookie, scoped to /auth/refresh.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/passage
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

func (r *Router) registerAuth() {
	h := &AuthHandler{
		AuthService: r.AuthService,
		Cookies:     r.cfg.Cookies,
	}

	// Password endpoints: strict, keyed by IP and the email being tried.
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)

	// Token endpoints: moderate, keyed by IP.
	r.Mux.Handle("POST "+RefreshPath,
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE "+RefreshPath,
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /auth/oauth2/exchange",
		httpx.Chain(http.HandlerFunc(h.HandleExchange),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	me := &MeHandler{UserService: r.UserService}
	r.Mux.Handle("GET /auth/me",
		httpx.Chain(me,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerFederated() {
	h := &FederatedHandler{
		Providers:        r.Providers,
		FederatedService: r.FederatedService,
		Cookies:          r.cfg.Cookies,
		RedirectURI:      r.cfg.RedirectURI,
	}

	r.Mux.Handle("GET /oauth2/authorization/{provider}",
		httpx.Chain(http.HandlerFunc(h.HandleStart),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /login/oauth2/code/{provider}",
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.cfg.BuildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.cfg.BuildVersion, r.store),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	if r.cfg.MetricsHandler != nil {
		r.Mux.Handle("GET /metrics", r.cfg.MetricsHandler)
	}
}
