package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// JWT configuration
	JWT JWTConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Payment rails
	Stripe     StripeConfig
	Mpesa      MpesaConfig
	Settlement SettlementConfig

	// Kafka settlement event bus
	Kafka KafkaConfig

	// Logging
	LogLevel string

	// Email
	Email EmailConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret       string
	JWTExpiresIn time.Duration
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled          bool          `json:"enabled"`
	WindowDuration   time.Duration `json:"window_duration"`
	DefaultRequests  int           `json:"default_requests"`
	PublicRequests   int           `json:"public_requests"`
	BookingRequests  int           `json:"booking_requests"`
	PaymentRequests  int           `json:"payment_requests"`
	CallbackRequests int           `json:"callback_requests"`
	AdminRequests    int           `json:"admin_requests"`
	WhitelistedIPs   []string      `json:"whitelisted_ips"`
}

// StripeConfig holds card-rail gateway configuration
type StripeConfig struct {
	SecretKey string
}

// MpesaConfig holds Daraja (M-Pesa) configuration
type MpesaConfig struct {
	BaseURL           string
	ConsumerKey       string
	ConsumerSecret    string
	BusinessShortCode string
	Passkey           string
	CallbackURL       string
	TransactionType   string
	HTTPTimeout       time.Duration
}

// SettlementConfig tunes the settlement reconciler
type SettlementConfig struct {
	// Fixed base -> settlement currency rate (e.g. USD -> KES)
	Rate         float64
	BaseCurrency string
	Currency     string

	// Mobile-money polling loop
	PollInterval time.Duration
	Timeout      time.Duration

	// How long correlation entries survive in Redis
	CorrelationTTL time.Duration

	// Retries for the authoritative booking write after money has moved
	CommitRetries      int
	CommitRetryBackoff time.Duration
}

// KafkaConfig holds settlement event bus configuration
type KafkaConfig struct {
	Enabled          bool
	Brokers          []string
	SettlementTopic  string
	AlertTopic       string
	ConsumerGroup    string
	ProducerRetryMax int
}

// EmailConfig holds email configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	OpsEmail     string
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		// Database configuration
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "fundi_db"),
			User:     getEnv("DB_USER", "fundi_user"),
			Password: getEnv("DB_PASSWORD", "fundi_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		// Redis configuration
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},

		// JWT configuration
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
			JWTExpiresIn: getDurationEnv("JWT_EXPIRES_IN", 15*time.Minute),
		},

		// Rate limiting
		RateLimit: RateLimitConfig{
			Enabled:          getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:   getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:  getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			PublicRequests:   getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 100),
			BookingRequests:  getIntEnv("RATE_LIMIT_BOOKING_REQUESTS", 20),
			PaymentRequests:  getIntEnv("RATE_LIMIT_PAYMENT_REQUESTS", 10),
			CallbackRequests: getIntEnv("RATE_LIMIT_CALLBACK_REQUESTS", 120),
			AdminRequests:    getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			WhitelistedIPs:   getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		// Stripe (card rail)
		Stripe: StripeConfig{
			SecretKey: getEnv("STRIPE_SECRET_KEY", ""),
		},

		// M-Pesa Daraja (mobile-money rail)
		Mpesa: MpesaConfig{
			BaseURL:           getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
			ConsumerKey:       getEnv("MPESA_CONSUMER_KEY", ""),
			ConsumerSecret:    getEnv("MPESA_CONSUMER_SECRET", ""),
			BusinessShortCode: getEnv("MPESA_SHORTCODE", "174379"),
			Passkey:           getEnv("MPESA_PASSKEY", ""),
			CallbackURL:       getEnv("MPESA_CALLBACK_URL", "https://localhost/api/v1/payments/mpesa/callback"),
			TransactionType:   getEnv("MPESA_TRANSACTION_TYPE", "CustomerPayBillOnline"),
			HTTPTimeout:       getDurationEnv("MPESA_HTTP_TIMEOUT", 30*time.Second),
		},

		// Settlement reconciler tuning
		Settlement: SettlementConfig{
			Rate:               getFloatEnv("SETTLEMENT_RATE", 130.0),
			BaseCurrency:       getEnv("SETTLEMENT_BASE_CURRENCY", "USD"),
			Currency:           getEnv("SETTLEMENT_CURRENCY", "KES"),
			PollInterval:       getDurationEnv("SETTLEMENT_POLL_INTERVAL", 3*time.Second),
			Timeout:            getDurationEnv("SETTLEMENT_TIMEOUT", 2*time.Minute),
			CorrelationTTL:     getDurationEnv("SETTLEMENT_CORRELATION_TTL", 24*time.Hour),
			CommitRetries:      getIntEnv("SETTLEMENT_COMMIT_RETRIES", 3),
			CommitRetryBackoff: getDurationEnv("SETTLEMENT_COMMIT_RETRY_BACKOFF", 500*time.Millisecond),
		},

		// Kafka settlement event bus
		Kafka: KafkaConfig{
			Enabled:          getBoolEnv("KAFKA_ENABLED", false),
			Brokers:          getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			SettlementTopic:  getEnv("KAFKA_SETTLEMENT_TOPIC", "fundi.settlements"),
			AlertTopic:       getEnv("KAFKA_ALERT_TOPIC", "fundi.settlement-alerts"),
			ConsumerGroup:    getEnv("KAFKA_CONSUMER_GROUP", "fundi-notifications"),
			ProducerRetryMax: getIntEnv("KAFKA_PRODUCER_RETRY_MAX", 3),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		// Email configuration
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getIntEnv("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("FROM_EMAIL", "payments@fundi.co.ke"),
			OpsEmail:     getEnv("OPS_EMAIL", "ops@fundi.co.ke"),
		},
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getFloatEnv gets a float environment variable with a fallback value
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
