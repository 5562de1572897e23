package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	CORSAllowedOrigins []string
	MigrateOnStart     bool

	CurrencyCode   string
	CartTTL        time.Duration
	IdempotencyTTL time.Duration

	DirectionsBaseURL string
	DirectionsAPIKey  string
	DirectionsTimeout time.Duration

	DeliveryFeeEnabled   bool
	DeliveryBaseFee      int64
	DeliveryBaseRadiusKm float64
	DeliveryPerKmFee     int64

	PromoRateLimit        string
	PromoPerUserLimitDflt int

	CircuitDirectionsMinReq      int
	CircuitDirectionsFailureRate float64
	CircuitDirectionsOpenFor     time.Duration

	WorkerConcurrency int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		MigrateOnStart:     parseBool(valueOrDefault(k.String("MIGRATE_ON_START"), "true")),

		CurrencyCode:   valueOrDefault(k.String("CURRENCY_CODE"), "INR"),
		CartTTL:        parseDuration(k.String("CART_TTL"), "168h"),
		IdempotencyTTL: parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		DirectionsBaseURL: valueOrDefault(k.String("DIRECTIONS_BASE_URL"), "https://us1.locationiq.com"),
		DirectionsAPIKey:  k.String("DIRECTIONS_API_KEY"),
		DirectionsTimeout: parseDuration(k.String("DIRECTIONS_TIMEOUT"), "8s"),

		DeliveryFeeEnabled:   parseBool(valueOrDefault(k.String("DELIVERY_FEE_ENABLED"), "true")),
		DeliveryBaseFee:      parseInt64(k.String("DELIVERY_BASE_FEE"), 3500),
		DeliveryBaseRadiusKm: parseFloat(k.String("DELIVERY_BASE_RADIUS_KM"), 3),
		DeliveryPerKmFee:     parseInt64(k.String("DELIVERY_PER_KM_FEE"), 1500),

		PromoRateLimit:        valueOrDefault(k.String("PROMO_RATE_LIMIT"), "20-M"),
		PromoPerUserLimitDflt: int(parseInt64(k.String("PROMO_PER_USER_LIMIT_DEFAULT"), 0)),

		CircuitDirectionsMinReq:      int(parseInt64(k.String("CIRCUIT_DIRECTIONS_MIN_REQUESTS"), 5)),
		CircuitDirectionsFailureRate: parseFloat(k.String("CIRCUIT_DIRECTIONS_FAILURE_RATE"), 0.5),
		CircuitDirectionsOpenFor:     parseDuration(k.String("CIRCUIT_DIRECTIONS_OPEN_FOR"), "30s"),

		WorkerConcurrency: int(parseInt64(k.String("WORKER_CONCURRENCY"), 5)),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.DeliveryBaseRadiusKm <= 0 {
		return nil, errors.New("DELIVERY_BASE_RADIUS_KM must be positive")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(envs map[string]string) (*Config, error) {
	original := make(map[string]string, len(envs))
	for key := range envs {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, envs[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
