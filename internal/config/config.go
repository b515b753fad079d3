// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Transports.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port                int
	Transport           string // "http" or "stdio"
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	ShutdownTimeout     time.Duration
	MaxRequestBodyBytes int64
	RateLimitRPS        float64 // per client IP; 0 disables rate limiting
	RateLimitBurst      int

	// Storage settings.
	Store       string // "postgres" or "sqlite"
	DatabaseURL string
	SQLitePath  string

	// Analysis settings.
	CalibrationBuckets int
	TrendPeriods       int
	WeightProfile      string // name of the stored profile used for scoring; "default" uses built-in weights

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
// Malformed values are collected and reported together.
func Load() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := Config{
		Transport:     envStr("HYOKA_TRANSPORT", TransportHTTP),
		Store:         envStr("HYOKA_STORE", StoreSQLite),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		SQLitePath:    envStr("HYOKA_SQLITE_PATH", "hyoka.db"),
		WeightProfile: envStr("HYOKA_WEIGHT_PROFILE", "default"),
		OTELEndpoint:  envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:   envStr("OTEL_SERVICE_NAME", "hyoka"),
		LogLevel:      envStr("HYOKA_LOG_LEVEL", "info"),
	}

	var err error
	cfg.Port, err = envInt("HYOKA_PORT", 8080)
	collect(err)
	cfg.ReadTimeout, err = envDuration("HYOKA_READ_TIMEOUT", 30*time.Second)
	collect(err)
	cfg.WriteTimeout, err = envDuration("HYOKA_WRITE_TIMEOUT", 30*time.Second)
	collect(err)
	cfg.ShutdownTimeout, err = envDuration("HYOKA_SHUTDOWN_TIMEOUT", 10*time.Second)
	collect(err)
	maxBody, err := envInt("HYOKA_MAX_REQUEST_BODY_BYTES", 1*1024*1024)
	collect(err)
	cfg.MaxRequestBodyBytes = int64(maxBody)
	cfg.RateLimitRPS, err = envFloat("HYOKA_RATE_LIMIT_RPS", 20)
	collect(err)
	cfg.RateLimitBurst, err = envInt("HYOKA_RATE_LIMIT_BURST", 40)
	collect(err)
	cfg.CalibrationBuckets, err = envInt("HYOKA_CALIBRATION_BUCKETS", 10)
	collect(err)
	cfg.TrendPeriods, err = envInt("HYOKA_TREND_PERIODS", 4)
	collect(err)
	cfg.OTELInsecure, err = envBool("OTEL_EXPORTER_OTLP_INSECURE", false)
	collect(err)

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("HYOKA_PORT must be between 1 and 65535"))
	}
	switch c.Transport {
	case TransportHTTP, TransportStdio:
	default:
		errs = append(errs, fmt.Errorf("HYOKA_TRANSPORT must be %q or %q", TransportHTTP, TransportStdio))
	}
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required when HYOKA_STORE=postgres"))
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("HYOKA_SQLITE_PATH is required when HYOKA_STORE=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("HYOKA_STORE must be %q or %q", StorePostgres, StoreSQLite))
	}
	if c.CalibrationBuckets < 1 || c.CalibrationBuckets > 1000 {
		errs = append(errs, fmt.Errorf("HYOKA_CALIBRATION_BUCKETS must be between 1 and 1000"))
	}
	if c.TrendPeriods < 1 || c.TrendPeriods > 1000 {
		errs = append(errs, fmt.Errorf("HYOKA_TREND_PERIODS must be between 1 and 1000"))
	}
	if c.MaxRequestBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("HYOKA_MAX_REQUEST_BODY_BYTES must be positive"))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("HYOKA_RATE_LIMIT_RPS must not be negative"))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("HYOKA_RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled"))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// ParseLogLevel maps HYOKA_LOG_LEVEL to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("HYOKA_LOG_LEVEL=%q is not a valid log level", s)
	}
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid number", key, v)
	}
	return f, nil
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal, fmt.Errorf("%s=%q is not a valid duration", key, v)
	}
	return d, nil
}
