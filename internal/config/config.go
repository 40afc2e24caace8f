package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Host     string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	HTTPPort int    `envconfig:"SERVER_HTTP_PORT" default:"8080"`

	Environment string `envconfig:"SERVER_ENV" default:"development"`

	// Timeouts
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT"`

	// Azure AI Speech
	AzureAISpeechKey     string        `envconfig:"AZURE_AI_SPEECH_KEY"`
	AzureServiceRegion   string        `envconfig:"AZURE_SERVICE_REGION"`
	AzureDefaultLanguage string        `envconfig:"AZURE_DEFAULT_LANGUAGE" default:"en-US"`
	AzureSpeechTimeout   time.Duration `envconfig:"AZURE_SPEECH_TIMEOUT" default:"30s"`

	// OpenAI (or Azure OpenAI when AzureOpenAIEndpoint is set)
	OpenAIAPIKey          string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel           string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	AzureOpenAIEndpoint   string `envconfig:"AZURE_OPENAI_ENDPOINT"`
	AzureOpenAIAPIKey     string `envconfig:"AZURE_OPENAI_API_KEY"`
	AzureOpenAIDeployment string `envconfig:"AZURE_OPENAI_DEPLOYMENT"`
	AzureOpenAIAPIVersion string `envconfig:"AZURE_OPENAI_API_VERSION" default:"2024-06-01"`

	// Gemini (fallback LLM)
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`

	// Redis
	RedisURL    string        `envconfig:"REDIS_URL"`
	TTSCacheTTL time.Duration `envconfig:"TTS_CACHE_TTL" default:"24h"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Cloudflare R2
	CloudflareAccessKeyID string `envconfig:"CLOUDFLARE_ACCESS_KEY_ID"`
	CloudflareSecretKey   string `envconfig:"CLOUDFLARE_SECRET_ACCESS_KEY"`
	CloudflareR2Endpoint  string `envconfig:"CLOUDFLARE_R2_ENDPOINT"`
	CloudflarePublicURL   string `envconfig:"CLOUDFLARE_PUBLIC_URL"`
	CloudflareBucketName  string `envconfig:"CLOUDFLARE_BUCKET_NAME"`

	// Auth
	JWTSecret  string `envconfig:"JWT_SECRET"`
	AdminToken string `envconfig:"ADMIN_TOKEN"`

	// Coaching
	HistoryLimit  int   `envconfig:"COACH_HISTORY_LIMIT" default:"20"`
	StatsWindow   int   `envconfig:"STATS_WINDOW" default:"5"`
	MaxAudioBytes int64 `envconfig:"MAX_AUDIO_BYTES" default:"10485760"`

	// CORS
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	CORSAllowedMethods []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,PUT,DELETE,OPTIONS"`
	CORSAllowedHeaders []string `envconfig:"CORS_ALLOWED_HEADERS" default:"Accept,Authorization,Content-Type,X-Request-ID,X-Admin-Token"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 {
		return fmt.Errorf("invalid SERVER_HTTP_PORT: %d", c.HTTPPort)
	}
	if c.StatsWindow <= 0 {
		return fmt.Errorf("invalid STATS_WINDOW: %d", c.StatsWindow)
	}
	if c.MaxAudioBytes <= 0 {
		return fmt.Errorf("invalid MAX_AUDIO_BYTES: %d", c.MaxAudioBytes)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("invalid COACH_HISTORY_LIMIT: %d", c.HistoryLimit)
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when SERVER_ENV=production")
	}
	return nil
}

// LogOutputFormat returns LOG_FORMAT, or console in development and json
// elsewhere when it is unset.
func (c *Config) LogOutputFormat() string {
	if c.LogFormat != "" {
		return c.LogFormat
	}
	if c.IsDevelopment() {
		return "console"
	}
	return "json"
}

// HTTPAddress returns the HTTP server address.
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
