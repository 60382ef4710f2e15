// Package server wires storage, services and handlers into one chi router and
// runs the HTTP server.
//
// Routes under the auth gate receive the resolved principal in the request
// context; everything else is public:
//
//	POST   /auth/register, /auth/login          rate limited per client IP
//	GET    /auth/github/login, /auth/github/callback   when GitHub is configured
//	GET    /posts/user/{userId}, /posts/{postId}, /users/{userId}
//	GET    /healthz, /metrics
//
// Graceful shutdown drains in-flight requests before the database is closed.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/skillshare/internal/auth"
	"github.com/sakif/skillshare/internal/clock"
	"github.com/sakif/skillshare/internal/config"
	"github.com/sakif/skillshare/internal/executor"
	"github.com/sakif/skillshare/internal/handler"
	"github.com/sakif/skillshare/internal/middleware"
	"github.com/sakif/skillshare/internal/ratelimit"
	sqliteRepo "github.com/sakif/skillshare/internal/repository/sqlite"
	"github.com/sakif/skillshare/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the router and the database connection.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB

	exec    executor.Executor
	rlStore ratelimit.Store
	clock   clock.Clock
}

type Option func(*Server)

// WithExecutor enables the code sandbox. Without it code runs answer 503.
func WithExecutor(exec executor.Executor) Option {
	return func(s *Server) { s.exec = exec }
}

// WithRateLimitStore shares rate-limit counters through store. The default
// counts in process.
func WithRateLimitStore(store ratelimit.Store) Option {
	return func(s *Server) { s.rlStore = store }
}

func WithClock(clk clock.Clock) Option {
	return func(s *Server) { s.clock = clk }
}

// New opens the database, runs migrations and builds the router.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		clock:  clock.NewReal(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rlStore == nil {
		s.rlStore = ratelimit.NewMemoryStore()
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func (s *Server) setupRoutes() error {
	cfg := s.config

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL, s.clock)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if cfg.GitHubEnabled() {
		github = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}

	// s.db implements every repository interface
	notifier := service.NewNotificationService(s.db, s.clock, s.logger)
	authSvc := service.NewAuthService(s.db, tokens, passwords, s.clock, s.logger)
	userSvc := service.NewUserService(s.db, tokens, passwords, notifier, s.clock, s.logger)
	postSvc := service.NewPostService(s.db, s.clock, s.logger)
	feed := service.NewFeedComposer(s.db)
	engagement := service.NewEngagementService(s.db, notifier, s.clock, s.logger)
	runs := service.NewCodeRunService(s.exec, s.db, s.logger)
	plans := service.NewPlanService(s.db, s.clock, s.logger)
	uploads := service.NewUploadService(cfg.UploadBaseURL, cfg.UploadMaxBytes, s.logger)

	authHandler := handler.NewAuthHandler(authSvc, github, s.logger)
	userHandler := handler.NewUserHandler(userSvc, s.logger)
	postHandler := handler.NewPostHandler(postSvc, feed, engagement, runs, s.logger)
	planHandler := handler.NewPlanHandler(plans, s.logger)
	notificationHandler := handler.NewNotificationHandler(notifier, s.logger)
	uploadHandler := handler.NewUploadHandler(uploads, s.logger)
	executeHandler := handler.NewExecuteHandler(runs, s.logger)

	authLimiter := ratelimit.NewLimiter(s.rlStore, "auth", cfg.AuthRateLimit, cfg.AuthRateWindow, s.logger)
	requireAuth := auth.RequireAuth(tokens, s.db, s.logger)

	// === Global middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Metrics)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// === Operational ===
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	// === Auth ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(authLimiter, "auth"))
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	// === Public reads ===
	s.router.Group(func(r chi.Router) {
		r.Get("/posts/user/{userId}", postHandler.HandleListByUser)
		r.Get("/posts/{postId}", postHandler.HandleGet)
		r.Get("/users/{userId}", userHandler.HandleGetUser)
	})

	// === Protected ===
	s.router.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/posts", postHandler.HandleCreate)
		r.Get("/posts", postHandler.HandleFeed)
		r.Delete("/posts/{postId}", postHandler.HandleDelete)
		r.Post("/posts/{postId}/like", postHandler.HandleLike)
		r.Post("/posts/{postId}/comment", postHandler.HandleComment)
		r.Post("/posts/{postId}/run", postHandler.HandleRun)

		r.Get("/users/profile", userHandler.HandleGetProfile)
		r.Put("/users/profile", userHandler.HandleUpdateProfile)
		r.Post("/users/{userId}/follow", userHandler.HandleFollow)
		r.Delete("/users/{userId}/follow", userHandler.HandleUnfollow)

		r.Route("/learning-plan", func(r chi.Router) {
			r.Post("/", planHandler.HandleCreate)
			r.Get("/", planHandler.HandleList)
			r.Get("/user/{userId}", planHandler.HandleListByUser)
			r.Get("/{planId}", planHandler.HandleGet)
			r.Put("/{planId}", planHandler.HandleUpdate)
			r.Delete("/{planId}", planHandler.HandleDelete)
		})

		r.Get("/notifications", notificationHandler.HandleList)
		r.Post("/notifications/{notificationId}/read", notificationHandler.HandleMarkRead)

		r.Post("/upload", uploadHandler.HandleUpload)
		r.Post("/code/run", executeHandler.HandleExecute)
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"unavailable"}` + "\n"))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until ctx is cancelled, then drains in-flight requests and
// closes the database.
func (s *Server) Start(ctx context.Context) error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// code runs can take most of the sandbox timeout
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("env", s.config.Env),
			slog.String("database", s.config.DBPath),
			slog.Bool("sandbox", s.exec != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
