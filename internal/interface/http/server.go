// Package http implements the REST API of the learning hub: watch sessions,
// progress, feedback, statistics and health endpoints.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kidlearn/learning-hub/config"
	"github.com/kidlearn/learning-hub/internal/application/command"
	"github.com/kidlearn/learning-hub/internal/application/query"
	"github.com/kidlearn/learning-hub/internal/interface/http/handlers"
	"github.com/kidlearn/learning-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodyBytes   int64

	AllowedOrigins []string
	EnableMetrics  bool

	// RateLimitPerMinute - requests per minute per caller (0 = disabled).
	RateLimitPerMinute int
	// RateLimiterCapacity - clients tracked by the in-process limiter.
	RateLimiterCapacity int

	// AdminKeyHashes - bcrypt hashes of admin API keys.
	AdminKeyHashes []string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:                "0.0.0.0",
		Port:                8080,
		ReadTimeout:         15 * time.Second,
		WriteTimeout:        15 * time.Second,
		IdleTimeout:         60 * time.Second,
		MaxHeaderBytes:      1 << 20,
		MaxBodyBytes:        64 << 10,
		EnableMetrics:       true,
		RateLimitPerMinute:  120,
		RateLimiterCapacity: 10000,
	}
}

// ConfigFrom builds the server configuration from the service config.
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	c.Host = cfg.HTTP.Host
	c.Port = cfg.HTTP.Port
	c.ReadTimeout = cfg.HTTP.ReadTimeout
	c.WriteTimeout = cfg.HTTP.WriteTimeout
	c.IdleTimeout = cfg.HTTP.IdleTimeout
	c.AllowedOrigins = cfg.HTTP.AllowedOrigins
	c.EnableMetrics = cfg.Observability.MetricsEnabled
	c.RateLimitPerMinute = cfg.HTTP.RateLimit
	c.RateLimiterCapacity = cfg.HTTP.RateLimiterCapacity
	c.AdminKeyHashes = cfg.HTTP.AdminKeyHashes
	return c
}

// Address returns the server address string.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains all dependencies required by HTTP handlers.
type Dependencies struct {
	// Command Handlers (CQRS Write Side)
	StartSession     *command.StartSessionHandler
	EndSession       *command.EndSessionHandler
	RecordProgress   *command.RecordProgressHandler
	RateLesson       *command.RateLessonHandler
	BookmarkLesson   *command.BookmarkLessonHandler
	UpdateEngagement *command.UpdateEngagementHandler
	RecordActivity   *command.RecordActivityHandler

	// Query Handlers (CQRS Read Side)
	GetStatistics *query.GetStatisticsHandler
	GetProgress   *query.GetProgressHandler
	ListBookmarks *query.ListBookmarksHandler
	GetProfile    *query.GetProfileHandler

	// Limiter overrides the in-process limiter, e.g. with Redis.
	Limiter Limiter

	HealthChecker handlers.HealthChecker
	Logger        *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server represents the HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	router     chi.Router
	httpServer *http.Server
	logger     *logger.Logger
	limiter    Limiter
	auth       *handlers.AdminKeyAuth

	mu        sync.RWMutex
	running   bool
	startedAt time.Time
}

// NewServer creates a new HTTP server with the given configuration and dependencies.
func NewServer(cfg Config, deps Dependencies) *Server {
	s := &Server{
		config: cfg,
		deps:   deps,
		logger: deps.Logger,
		auth:   handlers.NewAdminKeyAuth(handlers.HeaderAPIKey, cfg.AdminKeyHashes),
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.With(logger.Component("http"))

	switch {
	case deps.Limiter != nil:
		s.limiter = deps.Limiter
	case cfg.RateLimitPerMinute > 0:
		s.limiter = NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute, cfg.RateLimiterCapacity)
	}

	s.router = s.routes()
	s.httpServer = &http.Server{
		Addr:           cfg.Address(),
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(s.requestIDMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(handlers.SecurityHeadersMiddleware)
	if len(s.config.AllowedOrigins) > 0 {
		r.Use(s.corsMiddleware)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Health & Status Endpoints
	// ─────────────────────────────────────────────────────────────────────────
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleHealth)
	r.Get("/live", s.handleLive)
	if s.config.EnableMetrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// API v1
	// ─────────────────────────────────────────────────────────────────────────
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.metricsMiddleware)
		if s.limiter != nil {
			r.Use(s.rateLimitMiddleware)
		}
		if s.config.MaxBodyBytes > 0 {
			r.Use(handlers.RequestSizeLimitMiddleware(s.config.MaxBodyBytes))
		}
		r.Use(s.auth.Middleware)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Use(s.ownerMiddleware)

			r.Get("/profile", s.handleGetProfile)
			r.Get("/statistics", s.handleGetStatistics)
			r.Get("/bookmarks", s.handleListBookmarks)
			r.Post("/activity", s.handleRecordActivity)

			r.Route("/lessons/{lessonID}", func(r chi.Router) {
				r.Get("/progress", s.handleGetProgress)
				r.Put("/progress", s.handleRecordProgress)
				r.Post("/sessions", s.handleStartSession)
				r.Post("/sessions/end", s.handleEndSession)
				r.Put("/rating", s.handleRate)
				r.Put("/bookmark", s.handleBookmark)
				r.Put("/engagement", s.handleEngagement)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, r, http.StatusNotFound, &APIError{Code: "not_found", Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, r, http.StatusMethodNotAllowed, &APIError{Code: "method_not_allowed", Message: "method not allowed"})
	})
	return r
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", logger.String("address", s.config.Address()))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Uptime returns the server uptime.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}
