// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer: it connects the store, services,
// handlers, middleware, and routes. It decides
//   - which URL patterns map to which handler functions
//   - which routes sit behind which role
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config ─► sqlstore.Store ─► AuthService / StudentService / CourseService
//	                                        │
//	                                        ▼
//	                                 handlers + auth.RequireRole ─► chi routes
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pravara/school-backend/internal/auth"
	"github.com/pravara/school-backend/internal/config"
	"github.com/pravara/school-backend/internal/handler"
	"github.com/pravara/school-backend/internal/middleware"
	"github.com/pravara/school-backend/internal/model"
	"github.com/pravara/school-backend/internal/repository/sqlstore"
	"github.com/pravara/school-backend/internal/service"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store. Start closes it after the HTTP server has
// drained, so in-flight requests never see a closed pool.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  *sqlstore.Store
}

// New opens the configured database, applies migrations when AutoMigrate is
// set, and wires every route.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := store.MigrateUp(); err != nil {
			store.Close()
			return nil, fmt.Errorf("applying migrations: %w", err)
		}
	}

	s, err := NewWithStore(cfg, logger, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// OpenStore opens the database described by db, creating the directory of a
// SQLite file if needed.
func OpenStore(ctx context.Context, db config.DatabaseConfig) (*sqlstore.Store, error) {
	if db.Driver == sqlstore.DriverSQLite && db.Path != ":memory:" {
		// os.MkdirAll is like `mkdir -p`.
		if err := os.MkdirAll(filepath.Dir(db.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	store, err := sqlstore.Open(ctx, sqlstore.Options{Driver: db.Driver, DSN: db.DSN()})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return store, nil
}

// NewWithStore builds a Server around an already opened and migrated store.
// Tests use it with an in-memory SQLite store.
func NewWithStore(cfg config.Config, logger *slog.Logger, store *sqlstore.Store) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, e.g. for httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /start                 → welcome message
// GET    /healthz               → database ping
// POST   /register              → register a student
// POST   /register_teacher      → register a teacher (shared code)
// POST   /token                 → username/password → bearer token
// GET    /courses               → list courses
// POST   /course                → add a course              [Teacher]
// PUT    /teacher/update-marks  → set marks                 [Teacher]
// PUT    /attendence            → set attendance            [Teacher]
// DELETE /students/{id}         → delete a student          [Teacher]
// GET    /student/profile       → own profile               [student]
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (logged by Logger)
// 2. RealIP: extracts the real client IP from proxy headers
// 3. StripSlashes: /course/ and /course reach the same route
// 4. Logger: logs each request with timing info
// 5. Recoverer: catches panics and returns 500 instead of crashing
// 6. Timeout: cancels the request context after requestTimeout
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.Issuer, s.config.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService(s.config.Auth.BcryptCost)

	// === Services ===
	// The store implements every repository interface.
	authService := service.NewAuthService(s.store, tokens, passwords, s.config.Auth.TeacherAuthCode, s.logger)
	studentService := service.NewStudentService(s.store, s.store, s.logger)
	courseService := service.NewCourseService(s.store, s.logger)

	// === Handlers ===
	systemHandler := handler.NewSystemHandler(s.config.WelcomeMessage, s.store, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)
	courseHandler := handler.NewCourseHandler(courseService, s.logger)
	studentHandler := handler.NewStudentHandler(studentService, s.logger)

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.StripSlashes)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(chimiddleware.Timeout(requestTimeout))

	// === Public Routes ===
	s.router.Get("/start", systemHandler.HandleStart)
	s.router.Get("/healthz", systemHandler.HandleHealth)
	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Post("/register_teacher", authHandler.HandleRegisterTeacher)
	s.router.Post("/token", authHandler.HandleToken)
	s.router.Get("/courses", courseHandler.HandleList)

	// === Teacher Routes ===
	// Every route in this group shares one role gate; a valid token with
	// another role gets 403, an invalid one 401.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(authService, model.RoleTeacher, s.logger))

		r.Post("/course", courseHandler.HandleCreate)
		r.Put("/teacher/update-marks", studentHandler.HandleUpdateMarks)
		r.Put("/attendence", studentHandler.HandleUpdateAttendance)
		r.Delete("/students/{id}", studentHandler.HandleDelete)
	})

	// === Student Routes ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(authService, model.RoleStudent, s.logger))

		r.Get("/student/profile", studentHandler.HandleProfile)
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (shutdownTimeout)
// 3. Close the store (flushes the SQLite WAL, releases pooled connections)
func (s *Server) Start() error {
	defer func() {
		if err := s.store.Close(); err != nil {
			s.logger.Error("closing database", slog.String("error", err.Error()))
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("driver", s.store.Driver()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
