// Package api provides the HTTP API server and handlers for the Roadbook application.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/roadbook/roadbook-server/internal/http/response"
	"github.com/roadbook/roadbook-server/internal/validation"
)

// Options configures the HTTP server.
type Options struct {
	Version           string
	CORSOrigins       []string
	GeneratePerMinute int // per-client generation requests per minute
	GenerateBurst     int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services        *Services
	router          *chi.Mux
	api             huma.API
	validator       *validation.Validator
	generateLimiter *RateLimiter
	logger          *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options, logger *slog.Logger) *Server {
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if opts.GeneratePerMinute <= 0 {
		opts.GeneratePerMinute = 30
	}
	if opts.GenerateBurst <= 0 {
		opts.GenerateBurst = max(1, opts.GeneratePerMinute/3)
	}

	s := &Server{
		services:        services,
		router:          chi.NewRouter(),
		validator:       validation.New(),
		generateLimiter: NewRateLimiter(opts.GeneratePerMinute, time.Minute, opts.GenerateBurst),
		logger:          logger,
	}

	s.setupMiddleware(opts)

	humaConfig := huma.DefaultConfig("Roadbook API", opts.Version)
	humaConfig.Info.Description = "Itinerary documents and generation"
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "no route for "+r.URL.Path, s.logger)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.MethodNotAllowed(w, s.logger)
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, mainly for OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases background resources.
func (s *Server) Close() {
	s.generateLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(opts Options) {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", OwnerHeader},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	s.router.Use(RateLimitMiddleware(s.generateLimiter, s.logger, isGenerateRequest))
}

// registerRoutes registers every API operation.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerGenerateRoutes()
	s.registerTripRoutes()
	s.registerBlockRoutes()
}

// isGenerateRequest matches the generation endpoints, which are rate limited per client.
func isGenerateRequest(r *http.Request) bool {
	return r.Method == http.MethodPost && strings.HasSuffix(strings.TrimSuffix(r.URL.Path, "/"), "/generate")
}
