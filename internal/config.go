package internal

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	LogLevel string
	Port     uint16
	Firebase FirebaseConfig
	Razorpay RazorpayConfig
	Checkout CheckoutConfig
	NATS     NATSConfig
}

// FirebaseConfig holds Admin SDK and Firestore parameters. With an empty
// ProjectID the server falls back to in-memory storage and static auth,
// which is only acceptable in dev.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
}

// CheckoutConfig holds the pricing and reservation knobs.
type CheckoutConfig struct {
	// TaxRate is a fraction, e.g. 0.18 for 18% GST.
	TaxRate float64

	// ShippingBuffer is the display-only retail shipping buffer in paise.
	ShippingBuffer int64

	// ReservationTTL is how long a stock hold survives without payment.
	ReservationTTL time.Duration

	// SweepInterval is how often expired holds are reclaimed.
	SweepInterval time.Duration
}

// NATSConfig holds the event broker address. Empty URL disables publishing.
type NATSConfig struct {
	URL string
}

func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Default().Warn("Warning: .env file not found, using environment variables and defaults")
	}

	cfg := &Config{
		Env:      getEnv("ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvInt("PORT", 8080),
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		},
		Razorpay: RazorpayConfig{
			KeyID:     getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
		},
		Checkout: CheckoutConfig{
			TaxRate:        getEnvFloat("CHECKOUT_TAX_RATE", 0.18),
			ShippingBuffer: getEnvInt64("CHECKOUT_SHIPPING_BUFFER", 7900),
			ReservationTTL: getEnvDuration("CHECKOUT_RESERVATION_TTL", 15*time.Minute),
			SweepInterval:  getEnvDuration("CHECKOUT_SWEEP_INTERVAL", time.Minute),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", ""),
		},
	}

	validEnv := cfg.Env == "dev" || cfg.Env == "prod"
	if !validEnv {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if cfg.Env == "prod" {
		if cfg.Firebase.ProjectID == "" {
			return nil, fmt.Errorf("FIREBASE_PROJECT_ID must be set in production environment")
		}
		if cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeySecret == "" {
			return nil, fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set in production environment")
		}
	}

	if cfg.Checkout.TaxRate < 0 || cfg.Checkout.TaxRate >= 1 {
		return nil, fmt.Errorf("CHECKOUT_TAX_RATE must be a fraction in [0, 1), got %v", cfg.Checkout.TaxRate)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback uint16) uint16 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 16); err == nil {
			return uint16(parsed)
		}
		slog.Default().Warn("Invalid integer env value, using fallback", slog.String("key", key), slog.String("value", value))
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
		slog.Default().Warn("Invalid integer env value, using fallback", slog.String("key", key), slog.String("value", value))
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
		slog.Default().Warn("Invalid float env value, using fallback", slog.String("key", key), slog.String("value", value))
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		slog.Default().Warn("Invalid duration env value, using fallback", slog.String("key", key), slog.String("value", value))
	}
	return fallback
}
