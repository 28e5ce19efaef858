// Package server wires storage, services, handlers and middleware into the
// HTTP API and runs it with graceful shutdown.
//
// DEPENDENCY FLOW:
//
//	cmd/yamdb opens sqlite.DB ─┐
//	                           ▼
//	server.New: services (business rules) → handlers (HTTP) → chi routes
//
// This is the composition root: nothing else constructs services.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/yamdb/internal/auth"
	"github.com/sakif/yamdb/internal/handler"
	"github.com/sakif/yamdb/internal/middleware"
	"github.com/sakif/yamdb/internal/policy"
	sqliteRepo "github.com/sakif/yamdb/internal/repository/sqlite"
	"github.com/sakif/yamdb/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port      int
	JWTSecret string
	TokenTTL  time.Duration

	// CodeCost is the bcrypt cost for confirmation codes; 0 uses the default.
	CodeCost int
	// Sender delivers confirmation codes; nil logs them.
	Sender auth.CodeSender
	// Now overrides the service clock; nil uses the system clock.
	Now service.Clock
}

// Server is the HTTP API over one database.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New builds the router. The caller owns db and closes it after Start
// returns.
func New(cfg Config, db *sqliteRepo.DB, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("server: creating token service: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens)
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts every endpoint under /api/v1.
//
// MIDDLEWARE ORDER:
//  1. RequestID    → X-Request-Id, picked up by the access log
//  2. RealIP       → client address from proxy headers
//  3. Logger       → one line per request
//  4. Recoverer    → panics become 500s
//  5. Authenticate → Bearer token to *model.User in the context (or anonymous)
//
// Route groups then apply the collection-level permission for their
// resource; item-level rules run in the services.
func (s *Server) setupRoutes(tokens *auth.TokenService) {
	now := s.config.Now
	if now == nil {
		now = service.SystemClock
	}

	codes := auth.NewCodeService()
	if s.config.CodeCost > 0 {
		codes = auth.NewCodeServiceWithCost(s.config.CodeCost)
	}
	sender := s.config.Sender
	if sender == nil {
		sender = auth.LogSender{Logger: s.logger}
	}

	// === Services ===
	authService := service.NewAuthService(s.db, codes, tokens, sender, s.logger)
	userService := service.NewUserService(s.db, s.logger)
	categoryService := service.NewCategoryService(s.db, s.logger)
	genreService := service.NewGenreService(s.db, s.logger)
	titleService := service.NewTitleService(s.db, s.db, s.db, now, s.logger)
	reviewService := service.NewReviewService(s.db, s.db, now, s.logger)
	commentService := service.NewCommentService(s.db, s.db, now, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	catalogHandler := handler.NewCatalogHandler(categoryService, genreService, s.logger)
	titleHandler := handler.NewTitleHandler(titleService, s.logger)
	reviewHandler := handler.NewReviewHandler(reviewService, commentService, s.logger)

	// === Global middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Authenticate(tokens, userService, s.logger))

		r.Post("/auth/signup/", authHandler.HandleSignup)
		r.Post("/auth/token/", authHandler.HandleToken)

		r.Route("/users", func(r chi.Router) {
			r.With(handler.RequirePermission(handler.Authenticated{})).Get("/me/", userHandler.HandleMe)
			r.With(handler.RequirePermission(handler.Authenticated{})).Patch("/me/", userHandler.HandleUpdateMe)
			// Without these chi would route the remaining methods to /{username}/.
			meNotAllowed := handler.MethodNotAllowed(http.MethodGet, http.MethodPatch)
			r.With(handler.RequirePermission(handler.Authenticated{})).Post("/me/", meNotAllowed)
			r.With(handler.RequirePermission(handler.Authenticated{})).Put("/me/", meNotAllowed)
			r.With(handler.RequirePermission(handler.Authenticated{})).Delete("/me/", meNotAllowed)

			r.Group(func(r chi.Router) {
				r.Use(handler.RequirePermission(policy.AdminOnly{}))
				r.Get("/", userHandler.HandleList)
				r.Post("/", userHandler.HandleCreate)
				r.Get("/{username}/", userHandler.HandleGet)
				r.Patch("/{username}/", userHandler.HandleUpdate)
				r.Delete("/{username}/", userHandler.HandleDelete)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(handler.RequirePermission(policy.AdminOrReadOnly{}))

			r.Get("/categories/", catalogHandler.HandleListCategories)
			r.Post("/categories/", catalogHandler.HandleCreateCategory)
			r.Delete("/categories/{slug}/", catalogHandler.HandleDeleteCategory)

			r.Get("/genres/", catalogHandler.HandleListGenres)
			r.Post("/genres/", catalogHandler.HandleCreateGenre)
			r.Delete("/genres/{slug}/", catalogHandler.HandleDeleteGenre)

			r.Get("/titles/", titleHandler.HandleList)
			r.Post("/titles/", titleHandler.HandleCreate)
			r.Get("/titles/{title_id}/", titleHandler.HandleGet)
			r.Patch("/titles/{title_id}/", titleHandler.HandleUpdate)
			r.Delete("/titles/{title_id}/", titleHandler.HandleDelete)
		})

		r.Route("/titles/{title_id}/reviews", func(r chi.Router) {
			r.Use(handler.RequirePermission(policy.AdminModeratorAuthorOrReadOnly{}))

			r.Get("/", reviewHandler.HandleListReviews)
			r.Post("/", reviewHandler.HandleCreateReview)
			r.Get("/{review_id}/", reviewHandler.HandleGetReview)
			r.Patch("/{review_id}/", reviewHandler.HandleUpdateReview)
			r.Delete("/{review_id}/", reviewHandler.HandleDeleteReview)

			r.Get("/{review_id}/comments/", reviewHandler.HandleListComments)
			r.Post("/{review_id}/comments/", reviewHandler.HandleCreateComment)
			r.Get("/{review_id}/comments/{comment_id}/", reviewHandler.HandleGetComment)
			r.Patch("/{review_id}/comments/{comment_id}/", reviewHandler.HandleUpdateComment)
			r.Delete("/{review_id}/comments/{comment_id}/", reviewHandler.HandleDeleteComment)
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Start serves until SIGINT/SIGTERM, then gives in-flight requests 30
// seconds to finish.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d/api/v1/", s.config.Port)),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
