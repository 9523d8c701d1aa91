package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Cache backends accepted by CACHE_BACKEND.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv string

	ReportAPIBaseURL string
	ReportAPIToken   string
	HTTPTimeout      time.Duration
	RequestRateLimit float64
	StrictStatus     bool

	CacheBackend string
	CacheTTL     time.Duration
	RedisAddr    string

	DBDriver         string
	DBPath           string
	SnapshotsEnabled bool

	GRPCPort              int
	GRPCReflectionEnabled bool
	MetricsPort           int

	RunTimeout time.Duration
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		ReportAPIBaseURL:      getEnv("REPORT_API_BASE_URL", ""),
		ReportAPIToken:        getEnv("REPORT_API_TOKEN", ""),
		HTTPTimeout:           getDuration("HTTP_TIMEOUT", 30*time.Second),
		RequestRateLimit:      getFloat("REQUEST_RATE_LIMIT", 0),
		StrictStatus:          getBool("STRICT_STATUS", true),
		CacheBackend:          strings.ToLower(getEnv("CACHE_BACKEND", CacheMemory)),
		CacheTTL:              getDuration("CACHE_TTL", 10*time.Minute),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		DBDriver:              getEnv("DB_DRIVER", "sqlite3"),
		DBPath:                getEnv("DB_PATH", "./data/reports.db"),
		SnapshotsEnabled:      getBool("SNAPSHOTS_ENABLED", true),
		GRPCPort:              getInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getBool("GRPC_REFLECTION_ENABLED", false),
		MetricsPort:           getInt("METRICS_PORT", 9090),
		RunTimeout:            getDuration("RUN_TIMEOUT", 10*time.Minute),
	}
}

// Validate reports settings the collector cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.ReportAPIBaseURL == "" {
		errs = append(errs, errors.New("REPORT_API_BASE_URL is required"))
	}
	if c.ReportAPIToken == "" {
		errs = append(errs, errors.New("REPORT_API_TOKEN is required"))
	}
	switch c.CacheBackend {
	case CacheMemory, CacheRedis, CacheNone:
	default:
		errs = append(errs, errors.New("CACHE_BACKEND must be one of memory, redis, none"))
	}
	return errors.Join(errs...)
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
