// Package main is the entrypoint for the catalog API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/productcatalog/catalog/internal/auth"
	"github.com/productcatalog/catalog/internal/cache"
	"github.com/productcatalog/catalog/internal/config"
	"github.com/productcatalog/catalog/internal/handler"
	"github.com/productcatalog/catalog/internal/metrics"
	"github.com/productcatalog/catalog/internal/middleware"
	"github.com/productcatalog/catalog/internal/notify"
	"github.com/productcatalog/catalog/internal/repository"
	"github.com/productcatalog/catalog/internal/server"
	"github.com/productcatalog/catalog/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", sanitizeError(err, cfg.DatabaseURL, cfg.RedisURL, cfg.NotifyAMQPURL))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.AutoMigrate {
		if err := repository.Migrate(ctx, cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database migrations applied")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database",
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return err
	}
	defer repo.Close()
	logger.Info("connected to database")

	recorder := metrics.NewInMemory()

	var redisClient *redis.Client
	var limiter middleware.IPLimiter
	if cfg.RedisURL != "" {
		redisClient, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to Redis",
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			return err
		}
		defer redisClient.Close()
		limiter = cache.NewLimiter(redisClient, logger)
		logger.Info("connected to Redis")
	} else {
		logger.Warn("REDIS_URL not set, public rate limiting disabled")
	}

	hasher, err := auth.NewPasswordHasher(auth.DefaultArgon2Params)
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	sender, closeSender, err := newSender(ctx, cfg, logger)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(sender, cfg.NotifyTimeout, logger, recorder)

	userService := service.NewUserService(repo, hasher, logger, recorder)
	productService := service.NewProductService(repo, repo, dispatcher, logger, recorder)
	authService := service.NewAuthService(repo, hasher, tokens, logger, recorder)

	if err := bootstrap(ctx, cfg, userService, productService, logger); err != nil {
		_ = closeSender()
		return err
	}

	health := map[string]handler.HealthChecker{"postgres": repo}
	if redisClient != nil {
		health["redis"] = redisPinger{redisClient}
	}

	router := handler.NewRouter(handler.RouterConfig{
		Logger:         logger,
		Users:          userService,
		Products:       productService,
		Auth:           authService,
		Metrics:        recorder,
		Snapshotter:    recorder,
		Health:         health,
		Limiter:        limiter,
		RateLimitOn:    cfg.RateLimitEnabled(),
		RateLimitRPS:   cfg.RateLimitPublicRPS,
		RateLimitBurst: cfg.RateLimitPublicBurst,
		IsDevelopment:  cfg.IsDevelopment(),
		AllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxBodySize:    cfg.MaxRequestBodySize,
	})

	srv := server.New(router, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Stopped in reverse: the dispatcher drains before its sender closes.
	// Postgres and Redis close when run returns.
	srv.OnShutdown("notify-sender", func(context.Context) error { return closeSender() })
	srv.OnShutdown("notify-dispatcher", dispatcher.Shutdown)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"notifier", cfg.Notifier,
	)

	return srv.Run(ctx)
}

// newSender builds the notification backend selected by NOTIFIER.
// The returned close func releases its connections.
func newSender(ctx context.Context, cfg *config.Config, logger *slog.Logger) (notify.Sender, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Notifier {
	case config.NotifierSES:
		client, err := notify.NewSESClient(ctx, notify.SESConfig{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Endpoint:        cfg.SESEndpoint,
		})
		if err != nil {
			return nil, nil, err
		}
		sender, err := notify.NewSESSender(client, cfg.NotifyFrom, cfg.NotifyTemplate)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("notifications via SES", "template", cfg.NotifyTemplate)
		return sender, noop, nil

	case config.NotifierAMQP:
		sender, err := notify.DialAMQP(cfg.NotifyAMQPURL, cfg.NotifyAMQPQueue)
		if err != nil {
			return nil, nil, fmt.Errorf("dial amqp: %w", err)
		}
		logger.Info("notifications via AMQP",
			"broker", redactURL(cfg.NotifyAMQPURL),
			"queue", cfg.NotifyAMQPQueue,
		)
		return sender, sender.Close, nil

	default:
		logger.Info("notifications are logged only")
		return notify.NewLogSender(logger), noop, nil
	}
}

// bootstrap creates the first admin and the demo products when configured.
func bootstrap(ctx context.Context, cfg *config.Config, users *service.UserService, products *service.ProductService, logger *slog.Logger) error {
	created, err := users.EnsureFirstAdmin(ctx, cfg.FirstAdminEmail, cfg.FirstAdminPassword)
	if err != nil {
		return fmt.Errorf("create first admin: %w", err)
	}
	if created {
		logger.Info("bootstrap admin ready", "email", cfg.FirstAdminEmail)
	}

	if cfg.SeedDemoProducts {
		if _, err := products.SeedProducts(ctx, service.DemoProducts); err != nil {
			return fmt.Errorf("seed products: %w", err)
		}
	}
	return nil
}

// redisPinger adapts the redis client to the readiness check.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s&]+`)

// redactURL strips the password from a connection URL.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		if username := parsed.User.Username(); username != "" {
			parsed.User = url.User(username)
		} else {
			parsed.User = url.User("redacted")
		}
	}

	return parsed.String()
}

// sanitizeError replaces connection secrets in err's message.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
