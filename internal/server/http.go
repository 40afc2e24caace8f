package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/config"
	httphandler "github.com/windfall/speakcoach_service/internal/handler/http"
	"github.com/windfall/speakcoach_service/internal/middleware"
	"github.com/windfall/speakcoach_service/internal/observe"
)

// Authenticator validates bearer tokens and the admin token.
type Authenticator interface {
	middleware.TokenValidator
	middleware.AdminChecker
}

// Handlers groups the HTTP handlers mounted by the server.
type Handlers struct {
	Health     *httphandler.HealthHandler
	Assessment *httphandler.AssessmentHandler
	Coach      *httphandler.CoachHandler
	TTS        *httphandler.TTSHandler
	Progress   *httphandler.ProgressHandler
	Exercise   *httphandler.ExerciseHandler
	Profile    *httphandler.ProfileHandler
	Admin      *httphandler.AdminHandler
}

// HTTPServer represents the HTTP server.
type HTTPServer struct {
	server *http.Server
	router chi.Router
	log    zerolog.Logger
}

// NewHTTPServer creates a new HTTP server.
func NewHTTPServer(
	cfg *config.Config,
	log zerolog.Logger,
	metrics *observe.Metrics,
	auth Authenticator,
	h Handlers,
) *HTTPServer {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(observe.Middleware(metrics))
	r.Use(chimiddleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (public)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Get("/live", h.Health.Live)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Admin endpoints (require X-Admin-Token)
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminOnly(auth))

			r.Post("/exercises", h.Exercise.Create)
			r.Delete("/exercises/{id}", h.Exercise.Delete)
			r.Get("/attempts.csv", h.Admin.ExportAttempts)
			r.Get("/overview", h.Admin.Overview)
		})

		// Learner endpoints (require JWT)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(auth))

			// Pronunciation assessment
			r.Post("/assessments", h.Assessment.Create)
			r.Get("/assessments", h.Assessment.List)
			r.Get("/assessments/{id}", h.Assessment.Get)
			r.Post("/assessments/{id}/feedback", h.Assessment.Feedback)

			// Conversation coach
			r.Get("/coach/catalog", h.Coach.Catalog)
			r.Post("/coach/conversations", h.Coach.Start)
			r.Get("/coach/conversations/{id}", h.Coach.Get)
			r.Post("/coach/conversations/{id}/messages", h.Coach.Reply)

			// Text to speech
			r.Post("/tts", h.TTS.Synthesize)

			// Progress
			r.Get("/progress", h.Progress.Get)

			// Exercises
			r.Get("/exercises", h.Exercise.List)
			r.Get("/exercises/{id}", h.Exercise.Get)

			// Profile
			r.Get("/profile", h.Profile.Get)
			r.Put("/profile", h.Profile.Update)
		})
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddress(),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &HTTPServer{
		server: server,
		router: r,
		log:    log,
	}
}

// Handler returns the root router.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
