package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RequestRecorder receives finished HTTP requests for metrics. The metrics
// package provides the implementation.
type RequestRecorder interface {
	RecordRequest(method, route string, status int, duration time.Duration)
}

// Router assembles the API routes and middleware.
type Router struct {
	authHandler     *AuthHandler
	userHandler     *UserHandler
	teamHandler     *TeamHandler
	categoryHandler *CategoryHandler
	itemHandler     *ItemHandler
	authMiddleware  func(http.Handler) http.Handler
	recorder        RequestRecorder
	health          func() error
	logger          zerolog.Logger
}

// RouterConfig contains configuration for the router. Recorder and Health
// may be nil.
type RouterConfig struct {
	AuthHandler     *AuthHandler
	UserHandler     *UserHandler
	TeamHandler     *TeamHandler
	CategoryHandler *CategoryHandler
	ItemHandler     *ItemHandler
	AuthMiddleware  func(http.Handler) http.Handler
	Recorder        RequestRecorder
	Health          func() error
	Logger          zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	return &Router{
		authHandler:     config.AuthHandler,
		userHandler:     config.UserHandler,
		teamHandler:     config.TeamHandler,
		categoryHandler: config.CategoryHandler,
		itemHandler:     config.ItemHandler,
		authMiddleware:  config.AuthMiddleware,
		recorder:        config.Recorder,
		health:          config.Health,
		logger:          config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if rt.recorder != nil {
		r.Use(rt.metricsMiddleware)
	}
	r.Use(rt.authMiddleware)

	r.Get("/health", rt.handleHealth)

	rt.authHandler.RegisterRoutes(r)
	rt.userHandler.RegisterRoutes(r)
	rt.teamHandler.RegisterRoutes(r)
	rt.categoryHandler.RegisterRoutes(r)
	rt.itemHandler.RegisterRoutes(r)

	return r
}

// handleHealth reports liveness, including database reachability when a
// health probe is configured.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if rt.health != nil {
		if err := rt.health(); err != nil {
			rt.logger.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// metricsMiddleware records request counts and latency per route pattern.
func (rt *Router) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		rt.recorder.RecordRequest(r.Method, route, ww.Status(), time.Since(start))
	})
}
