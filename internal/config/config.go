package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

type Config struct {
	AppURL           string
	StorageDriver    string
	DataDir          string
	DatabaseURL      string
	JWTSecret        string
	TokenTTL         time.Duration
	RedisAddr        string
	SweepSchedule    string
	AutoConfirmAfter time.Duration
	RatingWindow     time.Duration
	PlatformFeeRate  decimal.Decimal
	RateLimit        int
	AllowedOrigins   []string
	ShutdownTimeout  time.Duration
	LogLevel         slog.Level
}

// Load reads .env (when present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the config from environment variables only.
func FromEnv() (Config, error) {
	var errs []error
	appHost := getEnv("APP_HOST", "0.0.0.0")
	appPort := getEnv("APP_PORT", "8080")

	cfg := Config{
		AppURL:        fmt.Sprintf("%s:%s", appHost, appPort),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageFile)),
		DataDir:       getEnv("DATA_DIR", "data"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@every 1h"),
	}
	cfg.TokenTTL = getEnvAsDuration("TOKEN_TTL", 24*time.Hour, &errs)
	cfg.AutoConfirmAfter = getEnvAsDuration("AUTO_CONFIRM_AFTER", 48*time.Hour, &errs)
	cfg.RatingWindow = getEnvAsDuration("RATING_WINDOW", 7*24*time.Hour, &errs)
	cfg.RateLimit = getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120, &errs)
	cfg.ShutdownTimeout = time.Duration(getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 20, &errs)) * time.Second

	rate, err := decimal.NewFromString(getEnv("PLATFORM_FEE_RATE", "0.05"))
	if err != nil {
		errs = append(errs, errors.New("invalid decimal value for PLATFORM_FEE_RATE"))
	}
	cfg.PlatformFeeRate = rate

	for _, o := range strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, errors.New("invalid LOG_LEVEL"))
	}

	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case StorageFile:
		if c.DataDir == "" {
			errs = append(errs, errors.New("DATA_DIR must not be empty"))
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q", StorageFile, StoragePostgres))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 16 characters"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be greater than 0"))
	}
	if c.AutoConfirmAfter <= 0 {
		errs = append(errs, errors.New("AUTO_CONFIRM_AFTER must be greater than 0"))
	}
	if c.RatingWindow <= 0 {
		errs = append(errs, errors.New("RATING_WINDOW must be greater than 0"))
	}
	if c.PlatformFeeRate.IsNegative() || c.PlatformFeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, errors.New("PLATFORM_FEE_RATE must be in [0, 1)"))
	}
	if c.RateLimit <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be greater than 0"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT_SECONDS must be greater than 0"))
	}
	if c.SweepSchedule == "" {
		errs = append(errs, errors.New("SWEEP_SCHEDULE must not be empty"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int, errs *[]error) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid integer value for %s", key))
			return defaultVal
		}
		return i
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration, errs *[]error) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid duration value for %s", key))
			return defaultVal
		}
		return d
	}
	return defaultVal
}
