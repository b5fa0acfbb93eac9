package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 所有环境变量只在这里读取
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Quote providers
	Eastmoney EastmoneyConfig
	Tencent   TencentConfig

	// Collection pipeline
	Collector CollectorConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// EastmoneyConfig holds Eastmoney (东方财富) API configuration
type EastmoneyConfig struct {
	BaseURL   string
	SearchURL string
	PageSize  int
}

// TencentConfig holds Tencent (腾讯行情) API configuration
type TencentConfig struct {
	BaseURL string
}

// CollectorConfig holds the collection pipeline policy
type CollectorConfig struct {
	// Per-attempt HTTP timeout for provider calls
	FetchTimeout time.Duration
	// Outer deadline for one collection run
	RunDeadline time.Duration
	// Max attempts per provider on Network/Timeout errors
	MaxRetries int
	// Base backoff, multiplied by the attempt index
	RetryBackoff time.Duration
	// Concurrent page fetches against a provider
	PageConcurrency int
	// Politeness delay between page batches
	PageDelay time.Duration
	// How many topic rankings to persist per day
	TopicLimit int
	// Days of history kept before the retention purge
	RetentionDays int
	// Trading-day probe policy: when the probe itself is unreachable,
	// treat the day as trading so an outage cannot mask a real session
	AssumeTradingOnProbeFailure bool
}

// Load reads configuration from environment variables
// ⭐ SSOT: 只有这个函数调用 os.Getenv()
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Providers
		Eastmoney: EastmoneyConfig{
			BaseURL:   getEnv("EASTMONEY_BASE_URL", "https://push2.eastmoney.com/api/qt"),
			SearchURL: getEnv("EASTMONEY_SEARCH_URL", "https://searchapi.eastmoney.com/api"),
			PageSize:  getEnvAsInt("EASTMONEY_PAGE_SIZE", 5000),
		},
		Tencent: TencentConfig{
			BaseURL: getEnv("TENCENT_BASE_URL", "https://qt.gtimg.cn/q"),
		},

		// Collection pipeline
		Collector: CollectorConfig{
			FetchTimeout:                getEnvAsDuration("COLLECT_FETCH_TIMEOUT", "30s"),
			RunDeadline:                 getEnvAsDuration("COLLECT_RUN_DEADLINE", "45s"),
			MaxRetries:                  getEnvAsInt("COLLECT_MAX_RETRIES", 3),
			RetryBackoff:                getEnvAsDuration("COLLECT_RETRY_BACKOFF", "2s"),
			PageConcurrency:             getEnvAsInt("COLLECT_PAGE_CONCURRENCY", 3),
			PageDelay:                   getEnvAsDuration("COLLECT_PAGE_DELAY", "500ms"),
			TopicLimit:                  getEnvAsInt("COLLECT_TOPIC_LIMIT", 50),
			RetentionDays:               getEnvAsInt("COLLECT_RETENTION_DAYS", 30),
			AssumeTradingOnProbeFailure: getEnvAsBool("TRADING_PROBE_ASSUME_TRADING", true),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Collector.MaxRetries < 1 {
		return fmt.Errorf("COLLECT_MAX_RETRIES must be >= 1")
	}
	if c.Collector.PageConcurrency < 1 {
		return fmt.Errorf("COLLECT_PAGE_CONCURRENCY must be >= 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
