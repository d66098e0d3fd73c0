package server

import (
	"log/slog"
	"net/http"

	"dashboard-server/internal/auth"
	authHandlers "dashboard-server/internal/auth/handlers"
	"dashboard-server/internal/middleware"
	"dashboard-server/internal/pages"
	serverHandlers "dashboard-server/internal/server/handlers"
	"dashboard-server/internal/shared/config"
	"dashboard-server/internal/shared/cookies"
)

const DashboardPath = config.DashboardPath

type Routes struct {
	cfg         *config.Config
	policy      *auth.Policy
	states      *auth.StateManager
	authService *auth.Service
	resolver    *auth.Resolver
	health      *serverHandlers.HealthHandler
	rateLimiter *middleware.RateLimiter
}

func NewRoutes(
	cfg *config.Config,
	policy *auth.Policy,
	states *auth.StateManager,
	authService *auth.Service,
	resolver *auth.Resolver,
	health *serverHandlers.HealthHandler,
	rateLimiter *middleware.RateLimiter,
) *Routes {
	return &Routes{
		cfg:         cfg,
		policy:      policy,
		states:      states,
		authService: authService,
		resolver:    resolver,
		health:      health,
		rateLimiter: rateLimiter,
	}
}

// Setup registers every route and returns the fully wrapped handler.
func (r *Routes) Setup() http.Handler {
	logger := slog.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	cookieOpts := cookies.NewOptions(r.cfg)
	routeMap := r.policy.Routes()

	oauthHandler := authHandlers.NewOAuthHandler(r.policy, r.states, r.authService, cookieOpts, DashboardPath)
	sessionHandler := authHandlers.NewSessionHandler(r.resolver, r.policy, cookieOpts, r.cfg.Server.URL)
	dashboardHandler := pages.NewDashboardHandler(r.resolver, routeMap)
	authPages := pages.NewAuthPages(r.resolver, r.policy, DashboardPath)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/auth/signin/{provider}", oauthHandler.HandleSignIn)
	api.HandleFunc("GET /api/auth/callback/{provider}", oauthHandler.HandleCallback)
	api.HandleFunc("GET /api/auth/session", sessionHandler.HandleSession)
	api.HandleFunc("GET /api/auth/providers", sessionHandler.HandleProviders)
	api.HandleFunc("/api/auth/signout", sessionHandler.HandleSignOut)

	cors := middleware.NewCORS(r.cfg.Frontend)
	crossOrigin := middleware.NewCrossOrigin(r.cfg.Frontend)

	mux := http.NewServeMux()
	mux.Handle("/api/auth/", middleware.Chain(api, cors.Middleware, crossOrigin.Middleware, r.rateLimiter.Middleware))
	mux.Handle("GET /api/health", r.health)

	mux.Handle("GET "+DashboardPath, dashboardHandler)
	mux.HandleFunc("GET "+routeMap.SignInPath, authPages.HandleLogin)
	mux.HandleFunc("GET "+routeMap.ErrorPath, authPages.HandleError)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, DashboardPath, http.StatusTemporaryRedirect)
	})

	logger.Info("Routes configured successfully",
		"page_endpoints", []string{DashboardPath, routeMap.SignInPath, routeMap.ErrorPath},
		"auth_endpoints", []string{"/api/auth/signin/{provider}", "/api/auth/callback/{provider}", "/api/auth/session", "/api/auth/providers", "/api/auth/signout"},
		"providers", len(r.policy.Providers()),
	)

	return middleware.Chain(mux, middleware.Recover, middleware.Logging, middleware.SecurityHeaders)
}
