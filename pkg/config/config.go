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
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Exchange
	Binance BinanceConfig

	// DCA engine
	DCA DCAConfig

	// Rate limiting
	RateLimit RateLimitConfig

	// Redis (optional ranking cache)
	Redis RedisConfig

	// Realtime price feed
	Realtime RealtimeConfig

	// Warmup schedule (cron expression, empty disables the job)
	WarmupSchedule string

	// Logging
	LogLevel  string
	LogFormat string
}

// BinanceConfig holds Binance USDT-M futures API configuration
type BinanceConfig struct {
	BaseURL string
	WSURL   string
}

// DCAConfig holds the ranking engine parameters
type DCAConfig struct {
	HourlyNotional float64       // fixed amount invested per completed hour
	Workers        int           // concurrent fetch+evaluate units
	SymbolTimeout  time.Duration // per-symbol deadline
	MaxHours       int           // cap on hourly buys per day
	CacheTTL       time.Duration // ranking payload cache TTL
}

// RateLimitConfig holds the sliding-window admission gate parameters
type RateLimitConfig struct {
	Calls  int           // calls admitted per window
	Window time.Duration // trailing window length
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// RealtimeConfig holds the websocket price feed configuration
type RealtimeConfig struct {
	Enabled      bool
	MaxStaleness time.Duration // cached price older than this falls back to REST
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Binance: BinanceConfig{
			BaseURL: getEnv("BINANCE_FAPI_BASE_URL", "https://fapi.binance.com"),
			WSURL:   getEnv("BINANCE_WS_URL", "wss://fstream.binance.com/ws"),
		},

		DCA: DCAConfig{
			HourlyNotional: getEnvAsFloat("DCA_HOURLY_NOTIONAL", 1000),
			Workers:        getEnvAsInt("DCA_WORKERS", 10),
			SymbolTimeout:  getEnvAsDuration("DCA_SYMBOL_TIMEOUT", "30s"),
			MaxHours:       getEnvAsInt("DCA_MAX_HOURS", 24),
			CacheTTL:       getEnvAsDuration("RANKING_CACHE_TTL", "60s"),
		},

		RateLimit: RateLimitConfig{
			Calls:  getEnvAsInt("RATE_LIMIT_CALLS", 1200),
			Window: getEnvAsDuration("RATE_LIMIT_WINDOW", "60s"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Realtime: RealtimeConfig{
			Enabled:      getEnvAsBool("REALTIME_ENABLED", false),
			MaxStaleness: getEnvAsDuration("REALTIME_MAX_STALENESS", "5s"),
		},

		WarmupSchedule: getEnv("WARMUP_SCHEDULE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are sane.
// A non-positive rate ceiling is fatal here: the admission gate would
// block every outbound call forever.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.RateLimit.Calls <= 0 {
		return fmt.Errorf("RATE_LIMIT_CALLS must be positive, got %d", c.RateLimit.Calls)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimit.Window)
	}

	if c.DCA.HourlyNotional <= 0 {
		return fmt.Errorf("DCA_HOURLY_NOTIONAL must be positive, got %.2f", c.DCA.HourlyNotional)
	}
	if c.DCA.Workers <= 0 {
		return fmt.Errorf("DCA_WORKERS must be positive, got %d", c.DCA.Workers)
	}
	if c.DCA.SymbolTimeout <= 0 {
		return fmt.Errorf("DCA_SYMBOL_TIMEOUT must be positive, got %s", c.DCA.SymbolTimeout)
	}
	if c.DCA.MaxHours <= 0 || c.DCA.MaxHours > 24 {
		return fmt.Errorf("DCA_MAX_HOURS must be in 1..24, got %d", c.DCA.MaxHours)
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
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
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
