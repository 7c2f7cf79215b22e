package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/layer-3/ridegate/core"
)

// RateBudget is a request budget for one route class.
type RateBudget struct {
	Window time.Duration
	Max    int
}

// Config is the full runtime configuration, read from the environment.
type Config struct {
	Port string
	Env  string

	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	RedisURL string
	// AllowMemoryStore turns an unreachable Redis into an explicit
	// in-memory degraded mode instead of a startup failure. Only safe
	// for single-instance deployments.
	AllowMemoryStore bool

	DatabasePath string

	ProxyTimeout time.Duration
	ProbeTimeout time.Duration

	CORSOrigin string

	GeneralLimit    RateBudget
	CredentialLimit RateBudget
	MoneyLimit      RateBudget
	RideLimit       RateBudget

	Services []core.ServiceDescriptor
}

// Load reads configuration from the environment, with a best-effort
// .env load first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnvOr("PORT", "3000"),
		Env:              getEnvOr("APP_ENV", "development"),
		AccessSecret:     os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret:    os.Getenv("JWT_REFRESH_SECRET"),
		RedisURL:         getEnvOr("REDIS_URL", "redis://localhost:6379/0"),
		AllowMemoryStore: getEnvOr("STORE_ALLOW_MEMORY_FALLBACK", "false") == "true",
		DatabasePath:     getEnvOr("DATABASE_PATH", "ridegate.db"),
		CORSOrigin:       getEnvOr("CORS_ORIGIN", "*"),

		GeneralLimit:    RateBudget{Window: 15 * time.Minute, Max: 100},
		CredentialLimit: RateBudget{Window: 15 * time.Minute, Max: 5},
		MoneyLimit:      RateBudget{Window: time.Hour, Max: 20},
		RideLimit:       RateBudget{Window: 5 * time.Minute, Max: 10},
	}

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must be set")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("access and refresh signing secrets must differ")
	}

	var err error
	if cfg.AccessTTL, err = durationEnv("JWT_ACCESS_EXPIRY", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RefreshTTL, err = durationEnv("JWT_REFRESH_EXPIRY", 7*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ProxyTimeout, err = durationEnv("PROXY_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.ProbeTimeout, err = durationEnv("PROBE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	if err := loadBudget("RATE_GENERAL", &cfg.GeneralLimit); err != nil {
		return nil, err
	}
	if err := loadBudget("RATE_CREDENTIAL", &cfg.CredentialLimit); err != nil {
		return nil, err
	}
	if err := loadBudget("RATE_MONEY", &cfg.MoneyLimit); err != nil {
		return nil, err
	}
	if err := loadBudget("RATE_RIDE", &cfg.RideLimit); err != nil {
		return nil, err
	}

	cfg.Services = []core.ServiceDescriptor{
		{Name: "user", BaseURL: getEnvOr("USER_SERVICE_URL", "http://localhost:3002"), PathPrefix: "/users"},
		{Name: "driver", BaseURL: getEnvOr("DRIVER_SERVICE_URL", "http://localhost:3003"), PathPrefix: "/drivers"},
		{Name: "ride", BaseURL: getEnvOr("RIDE_SERVICE_URL", "http://localhost:3004"), PathPrefix: "/rides"},
		{Name: "booking", BaseURL: getEnvOr("BOOKING_SERVICE_URL", "http://localhost:3005"), PathPrefix: "/bookings"},
		{Name: "payment", BaseURL: getEnvOr("PAYMENT_SERVICE_URL", "http://localhost:3006"), PathPrefix: "/payments"},
		{Name: "pricing", BaseURL: getEnvOr("PRICING_SERVICE_URL", "http://localhost:3007"), PathPrefix: "/pricing"},
		{Name: "notification", BaseURL: getEnvOr("NOTIFICATION_SERVICE_URL", "http://localhost:3008"), PathPrefix: "/notifications"},
		{Name: "review", BaseURL: getEnvOr("REVIEW_SERVICE_URL", "http://localhost:3009"), PathPrefix: "/reviews"},
	}

	return cfg, nil
}

func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func durationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func loadBudget(prefix string, budget *RateBudget) error {
	if raw := os.Getenv(prefix + "_WINDOW"); raw != "" {
		window, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s_WINDOW: %w", prefix, err)
		}
		budget.Window = window
	}
	if raw := os.Getenv(prefix + "_MAX"); raw != "" {
		max, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s_MAX: %w", prefix, err)
		}
		budget.Max = max
	}
	return nil
}
