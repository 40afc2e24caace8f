package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/windfall/speakcoach_service/internal/client"
	"github.com/windfall/speakcoach_service/internal/config"
	"github.com/windfall/speakcoach_service/internal/handler/http"
	"github.com/windfall/speakcoach_service/internal/logger"
	"github.com/windfall/speakcoach_service/internal/observe"
	"github.com/windfall/speakcoach_service/internal/repository"
	"github.com/windfall/speakcoach_service/internal/server"
	"github.com/windfall/speakcoach_service/internal/service"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.LogOutputFormat())
	log.Info().Str("env", cfg.Environment).Str("version", version).Msg("Starting speakcoach_service")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize metrics
	meterProvider, shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "speakcoach_service",
		ServiceVersion: version,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics provider")
	}
	metrics, err := observe.NewMetrics(meterProvider)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create metric instruments")
	}

	// Initialize LLM providers, in fallback order
	var providers []client.ChatCompleter
	switch {
	case cfg.AzureOpenAIEndpoint != "" && cfg.AzureOpenAIAPIKey != "":
		deployment := cfg.AzureOpenAIDeployment
		if deployment == "" {
			deployment = cfg.OpenAIModel
		}
		providers = append(providers, client.NewAzureOpenAIClient(
			cfg.AzureOpenAIEndpoint, cfg.AzureOpenAIAPIKey, cfg.AzureOpenAIAPIVersion, deployment,
		))
		log.Info().Str("deployment", deployment).Msg("Azure OpenAI client initialized")
	case cfg.OpenAIAPIKey != "":
		providers = append(providers, client.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel))
		log.Info().Str("model", cfg.OpenAIModel).Msg("OpenAI client initialized")
	default:
		log.Warn().Msg("OPENAI_API_KEY not set, skipping OpenAI initialization")
	}

	var geminiClient *client.GeminiClient
	if cfg.GeminiAPIKey != "" {
		geminiClient, err = client.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			providers = append(providers, geminiClient)
			log.Info().Str("model", cfg.GeminiModel).Msg("Gemini client initialized")
		}
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, skipping Gemini initialization")
	}

	// Initialize Azure Speech client
	var assessor service.Assessor
	var synthesizer service.Synthesizer
	if cfg.AzureAISpeechKey != "" && cfg.AzureServiceRegion != "" {
		speechClient := client.NewAzureSpeechClient(cfg.AzureAISpeechKey, cfg.AzureServiceRegion, cfg.AzureSpeechTimeout)
		assessor, synthesizer = speechClient, speechClient
		log.Info().Str("region", cfg.AzureServiceRegion).Msg("Azure Speech client initialized")
	} else {
		log.Warn().Msg("Azure Speech configuration missing, assessment and TTS are disabled")
	}

	// Initialize Redis client
	var redisClient *client.RedisClient
	var audioCache service.AudioCache
	if cfg.RedisURL != "" {
		redisClient, err = client.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Redis client")
		} else {
			audioCache = redisClient
			log.Info().Msg("Redis client initialized")
		}
	} else {
		log.Warn().Msg("REDIS_URL not set, TTS cache disabled")
	}

	// Initialize Cloudflare R2 client (S3 protocol)
	var objectStore service.ObjectStore
	if cfg.CloudflareAccessKeyID != "" && cfg.CloudflareSecretKey != "" && cfg.CloudflareR2Endpoint != "" && cfg.CloudflareBucketName != "" {
		cloudflareClient, err := client.NewCloudflareClient(ctx,
			cfg.CloudflareAccessKeyID,
			cfg.CloudflareSecretKey,
			cfg.CloudflareR2Endpoint,
			cfg.CloudflareBucketName,
			cfg.CloudflarePublicURL,
		)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Cloudflare client")
		} else {
			objectStore = cloudflareClient
			log.Info().Msg("Cloudflare R2 client initialized")
		}
	} else {
		log.Warn().Msg("Cloudflare configuration missing, recordings will not be stored")
	}

	// Initialize Postgres client
	var postgresClient *client.PostgresClient
	if cfg.DatabaseURL != "" {
		postgresClient, err = client.NewPostgresClient(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize Postgres client")
		} else {
			log.Info().Msg("Postgres client initialized")
		}
	} else {
		log.Warn().Msg("DATABASE_URL not set, skipping Postgres initialization")
	}

	var checks []http.ReadinessCheck
	if postgresClient != nil {
		checks = append(checks, http.ReadinessCheck{Name: "postgres", Ping: postgresClient.Ping})
	}
	if redisClient != nil {
		checks = append(checks, http.ReadinessCheck{Name: "redis", Ping: redisClient.Ping})
	}

	// Initialize repositories
	profileRepo := repository.NewPostgresProfileRepository(postgresClient)
	exerciseRepo := repository.NewPostgresExerciseRepository(postgresClient)
	attemptRepo := repository.NewPostgresAttemptRepository(postgresClient)
	conversationRepo := repository.NewPostgresConversationRepository(postgresClient)

	// Initialize services
	llmService := service.NewLLMService(metrics, logger.Component(log, "llm"), providers...)
	assessmentService := service.NewAssessmentService(
		assessor, objectStore, attemptRepo, exerciseRepo, llmService, metrics, cfg.MaxAudioBytes,
		logger.Component(log, "assessment"),
	).WithDefaultLanguage(cfg.AzureDefaultLanguage)
	coachService := service.NewCoachService(conversationRepo, profileRepo, llmService, cfg.HistoryLimit, logger.Component(log, "coach"))
	ttsService := service.NewTTSService(synthesizer, audioCache, cfg.TTSCacheTTL, metrics, logger.Component(log, "tts")).
		WithDefaultLanguage(cfg.AzureDefaultLanguage)
	progressService := service.NewProgressService(attemptRepo, cfg.StatsWindow, logger.Component(log, "progress"))
	exerciseService := service.NewExerciseService(exerciseRepo, logger.Component(log, "exercise"))
	profileService := service.NewProfileService(profileRepo)
	adminService := service.NewAdminService(attemptRepo, logger.Component(log, "admin"))
	authService := service.NewAuthService(cfg.JWTSecret, cfg.AdminToken)

	if !llmService.Configured() {
		log.Warn().Msg("No LLM provider configured, coaching and feedback are disabled")
	}

	// Initialize handlers
	handlers := server.Handlers{
		Health:     http.NewHealthHandler(log, checks...),
		Assessment: http.NewAssessmentHandler(assessmentService, cfg.MaxAudioBytes, log),
		Coach:      http.NewCoachHandler(coachService, log),
		TTS:        http.NewTTSHandler(ttsService, log),
		Progress:   http.NewProgressHandler(progressService, log),
		Exercise:   http.NewExerciseHandler(exerciseService, log),
		Profile:    http.NewProfileHandler(profileService, log),
		Admin:      http.NewAdminHandler(adminService, log),
	}

	// Initialize HTTP server
	httpServer := server.NewHTTPServer(cfg, log, metrics, authService, handlers)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server error")
			cancel()
		}
	}()

	log.Info().
		Str("http_addr", cfg.HTTPAddress()).
		Msg("Server started")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Metrics provider shutdown error")
	}

	// Close clients
	if redisClient != nil {
		redisClient.Close()
	}
	if postgresClient != nil {
		postgresClient.Close()
	}

	log.Info().Msg("Server stopped")
}
