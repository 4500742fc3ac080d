package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Storage: "memory", "sqlite" or "postgres"
	StoreDriver  string
	SQLitePath   string
	DatabaseURL  string
	MaxOpenConns int

	// JWT / Auth
	JWTSecret          string
	JWTAccessTTL       time.Duration
	SeedAdminEmail     string
	SeedAdminPassword  string
	CORSAllowedOrigins []string

	// M-Pesa: "simulator" or "daraja"
	MpesaMode           string
	MpesaBaseURL        string
	MpesaConsumerKey    string
	MpesaConsumerSecret string
	MpesaShortCode      string
	MpesaPasskey        string
	MpesaCallbackURL    string
	MpesaTxnType        string
	STKPollInterval     time.Duration
	STKPollAttempts     int
	STKMaxConcurrent    int
	STKResultTTL        time.Duration

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration

	// Sales
	SaleDedupeTTL     time.Duration
	LowStockThreshold int

	// Jobs
	IntegrityCron string

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreDriver:  getEnv("STORE_DRIVER", "sqlite"),
		SQLitePath:   getEnv("SQLITE_PATH", "tellerpos.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),

		JWTSecret:          getEnv("JWT_SECRET", "tellerpos-dev-secret-change-me"),
		JWTAccessTTL:       getEnvDuration("JWT_ACCESS_TTL", 12*time.Hour),
		SeedAdminEmail:     getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:  getEnv("SEED_ADMIN_PASSWORD", ""),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		MpesaMode:           getEnv("MPESA_MODE", "simulator"),
		MpesaBaseURL:        getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
		MpesaConsumerKey:    getEnv("MPESA_CONSUMER_KEY", ""),
		MpesaConsumerSecret: getEnv("MPESA_CONSUMER_SECRET", ""),
		MpesaShortCode:      getEnv("MPESA_SHORTCODE", "174379"),
		MpesaPasskey:        getEnv("MPESA_PASSKEY", ""),
		MpesaCallbackURL:    getEnv("MPESA_CALLBACK_URL", ""),
		MpesaTxnType:        getEnv("MPESA_TRANSACTION_TYPE", "CustomerPayBillOnline"),
		STKPollInterval:     getEnvDuration("STK_POLL_INTERVAL", 5*time.Second),
		STKPollAttempts:     getEnvInt("STK_POLL_ATTEMPTS", 12),
		STKMaxConcurrent:    getEnvInt("STK_MAX_CONCURRENT", 50),
		STKResultTTL:        getEnvDuration("STK_RESULT_TTL", time.Hour),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 200*time.Millisecond),

		SaleDedupeTTL:     getEnvDuration("SALE_DEDUPE_TTL", 10*time.Minute),
		LowStockThreshold: getEnvInt("LOW_STOCK_THRESHOLD", 5),

		IntegrityCron: getEnv("INTEGRITY_CRON", "0 0 2 * * *"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.MpesaMode {
	case "simulator":
	case "daraja":
		if c.MpesaConsumerKey == "" || c.MpesaConsumerSecret == "" || c.MpesaPasskey == "" {
			return fmt.Errorf("MPESA_CONSUMER_KEY, MPESA_CONSUMER_SECRET and MPESA_PASSKEY are required when MPESA_MODE=daraja")
		}
	default:
		return fmt.Errorf("unknown MPESA_MODE %q", c.MpesaMode)
	}
	if c.STKPollAttempts < 1 || c.STKPollInterval <= 0 {
		return fmt.Errorf("STK_POLL_ATTEMPTS and STK_POLL_INTERVAL must be positive")
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
