package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"fundi/api/routes"
	"fundi/internal/notifications"
	"fundi/internal/payments"
	"fundi/internal/shared/config"
	"fundi/internal/shared/database"
	"fundi/pkg/logger"
	"fundi/pkg/ratelimit"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	// Load config
	cfg := config.Load()

	// Set Gin mode (debug/release)
	gin.SetMode(cfg.GinMode)

	// Initialize DB
	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:          cfg.RateLimit.Enabled,
			WindowDuration:   cfg.RateLimit.WindowDuration,
			DefaultRequests:  cfg.RateLimit.DefaultRequests,
			PublicRequests:   cfg.RateLimit.PublicRequests,
			BookingRequests:  cfg.RateLimit.BookingRequests,
			PaymentRequests:  cfg.RateLimit.PaymentRequests,
			CallbackRequests: cfg.RateLimit.CallbackRequests,
			AdminRequests:    cfg.RateLimit.AdminRequests,
			WhitelistedIPs:   cfg.RateLimit.WhitelistedIPs,
		}

		rateLimiter = ratelimit.NewRateLimiter(db.GetRedis(), rateLimiterConfig)
		appLogger.Info("Rate limiter initialized",
			slog.Bool("enabled", cfg.RateLimit.Enabled),
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("payment_requests", cfg.RateLimit.PaymentRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Settlement event bus: Kafka when enabled, structured log otherwise
	var publisher payments.SettlementPublisher
	var kafkaPublisher *notifications.KafkaPublisher
	var consumer *notifications.Consumer

	if cfg.Kafka.Enabled {
		kafkaPublisher, err = notifications.NewKafkaPublisher(cfg.Kafka, appLogger)
		if err != nil {
			appLogger.Error("Failed to initialize Kafka publisher, falling back to log publisher", slog.Any("error", err))
			publisher = notifications.NewLogPublisher(appLogger)
		} else {
			publisher = kafkaPublisher
			defer func() {
				if err := kafkaPublisher.Close(); err != nil {
					appLogger.Error("Error closing Kafka publisher", slog.Any("error", err))
				}
			}()

			// The email consumer only makes sense with a working bus and SMTP
			emailService, emailErr := notifications.NewSMTPEmailService(cfg.Email)
			if emailErr != nil {
				appLogger.Info("Email service not configured, settlement emails disabled", slog.Any("reason", emailErr))
			} else {
				resolver := notifications.NewRecipientResolver(db.GetPostgreSQL())
				consumer, err = notifications.NewConsumer(cfg.Kafka, emailService, resolver, appLogger)
				if err != nil {
					appLogger.Error("Failed to initialize settlement consumer", slog.Any("error", err))
				} else {
					consumer.Start()
					defer func() {
						appLogger.Info("Stopping settlement consumer...")
						if err := consumer.Stop(); err != nil {
							appLogger.Error("Error stopping settlement consumer", slog.Any("error", err))
						}
					}()
				}
			}
		}
	} else {
		publisher = notifications.NewLogPublisher(appLogger)
		appLogger.Info("Kafka disabled, settlement events go to the log")
	}

	// Setup router with rate limiter
	router := setupRouter(cfg, db, rateLimiter, publisher)

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("api_base", cfg.GetAPIBasePath()),
			slog.String("version", cfg.APIVersion),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
			slog.Bool("kafka", cfg.Kafka.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupRouter(cfg *config.Config, db *database.DB, rateLimiter *ratelimit.RateLimiter, publisher payments.SettlementPublisher) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	// Built-in middleware: logs requests + recovers from panics
	engine.Use(requestLoggerMiddleware(appLogger), gin.Recovery())

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true // allow every origin dynamically
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Initialize and setup routes
	appRouter := routes.NewRouter(cfg, db, rateLimiter, publisher)
	appRouter.SetupRoutes(engine)

	return engine
}

func requestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
	}
}
