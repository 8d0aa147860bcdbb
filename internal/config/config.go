// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Notifier backends.
const (
	NotifierLog  = "log"
	NotifierSES  = "ses"
	NotifierAMQP = "amqp"
)

// minJWTSecretLength rejects trivially guessable signing keys.
const minJWTSecretLength = 16

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	// Redis, used only for rate limiting. Empty disables it.
	RedisURL string `env:"REDIS_URL" envDefault:""`

	// Tokens
	JWTSecret      string        `env:"JWT_SECRET,required"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"30m"`

	// Bootstrap data
	FirstAdminEmail    string `env:"FIRST_ADMIN_EMAIL"`
	FirstAdminPassword string `env:"FIRST_ADMIN_PASSWORD"`
	SeedDemoProducts   bool   `env:"SEED_DEMO_PRODUCTS" envDefault:"false"`

	// Notifications
	Notifier        string        `env:"NOTIFIER" envDefault:"log"`
	NotifyFrom      string        `env:"NOTIFY_FROM"`
	NotifyTemplate  string        `env:"NOTIFY_TEMPLATE" envDefault:"catalog-notification-template"`
	NotifyTimeout   time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
	NotifyAMQPURL   string        `env:"NOTIFY_AMQP_URL"`
	NotifyAMQPQueue string        `env:"NOTIFY_AMQP_QUEUE" envDefault:"catalog.notifications"`

	// AWS SES
	AWSRegion          string `env:"AWS_REGION"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	SESEndpoint        string `env:"SES_ENDPOINT"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting of anonymous catalog reads and token issuance
	RateLimitPublicEnabled bool `env:"RATE_LIMIT_PUBLIC_ENABLED" envDefault:"true"`
	RateLimitPublicRPS     int  `env:"RATE_LIMIT_PUBLIC_RPS" envDefault:"20"`
	RateLimitPublicBurst   int  `env:"RATE_LIMIT_PUBLIC_BURST" envDefault:"40"`

	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// RateLimitEnabled reports whether public throttling is active.
func (c *Config) RateLimitEnabled() bool {
	return c.RateLimitPublicEnabled && c.RedisURL != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength))
	}
	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}

	switch c.Notifier {
	case NotifierLog:
	case NotifierSES:
		if c.NotifyFrom == "" {
			errs = append(errs, errors.New("NOTIFY_FROM is required when NOTIFIER=ses"))
		}
	case NotifierAMQP:
		if c.NotifyAMQPURL == "" {
			errs = append(errs, errors.New("NOTIFY_AMQP_URL is required when NOTIFIER=amqp"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFIER must be one of log, ses, amqp; got %q", c.Notifier))
	}

	if (c.FirstAdminEmail == "") != (c.FirstAdminPassword == "") {
		errs = append(errs, errors.New("FIRST_ADMIN_EMAIL and FIRST_ADMIN_PASSWORD must be set together"))
	}

	return errors.Join(errs...)
}

// Load reads an optional .env file, parses environment variables and validates the result.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
