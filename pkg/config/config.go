package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application. Environment variables
// are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	DeepSeek  DeepSeekConfig
	EastMoney EastMoneyConfig
	WeChat    WeChatConfig

	// Pipeline tuning
	Pipeline PipelineConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration. Redis is optional; when disabled
// caches are bypassed and rate limits fall back to local limiters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DeepSeekConfig holds the LLM (topic extraction) API configuration.
type DeepSeekConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// EastMoneyConfig holds the market data gateway configuration.
type EastMoneyConfig struct {
	BaseURL  string
	PageSize int
	MaxPages int
	// RatePerSec bounds request rate against the upstream.
	RatePerSec float64
	Timeout    time.Duration
}

// WeChatConfig holds the third-party WeChat article API configuration.
type WeChatConfig struct {
	BaseURL            string
	APIKey             string
	Accounts           []string // source public accounts, in priority order
	ArticlesPerAccount int
	Timeout            time.Duration
}

// PipelineConfig bounds the report pipeline.
type PipelineConfig struct {
	// MaxArticlesForLLM caps how many articles go into the single stage-2
	// extraction request.
	MaxArticlesForLLM int
	// ArticleBodyLimit truncates article bodies (runes, head preserved).
	ArticleBodyLimit int
	// SourcingConcurrency bounds parallel board fetches in stage 3.
	SourcingConcurrency int
	// StageTimeout is the aggregate budget for one stage.
	StageTimeout time.Duration
	// BoardCacheTTL controls how long the board catalog is reused.
	BoardCacheTTL time.Duration
	// DailyRunSchedule is the cron spec for the scheduled full run.
	DailyRunSchedule string
}

// Load reads configuration from environment variables. Only this function
// calls os.Getenv.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		DeepSeek: DeepSeekConfig{
			APIKey:    getEnv("DEEPSEEK_API_KEY", ""),
			BaseURL:   getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
			Model:     getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			MaxTokens: getEnvAsInt("DEEPSEEK_MAX_TOKENS", 2000),
			Timeout:   getEnvAsDuration("DEEPSEEK_TIMEOUT", "90s"),
		},

		EastMoney: EastMoneyConfig{
			BaseURL:    getEnv("EASTMONEY_BASE_URL", "https://push2delay.eastmoney.com"),
			PageSize:   getEnvAsInt("EASTMONEY_PAGE_SIZE", 200),
			MaxPages:   getEnvAsInt("EASTMONEY_MAX_PAGES", 10),
			RatePerSec: getEnvAsFloat("EASTMONEY_RATE_PER_SEC", 5),
			Timeout:    getEnvAsDuration("EASTMONEY_TIMEOUT", "15s"),
		},

		WeChat: WeChatConfig{
			BaseURL:            getEnv("WECHAT_API_BASE_URL", ""),
			APIKey:             getEnv("WECHAT_API_KEY", ""),
			Accounts:           getEnvAsList("WECHAT_ACCOUNTS"),
			ArticlesPerAccount: getEnvAsInt("WECHAT_ARTICLES_PER_ACCOUNT", 5),
			Timeout:            getEnvAsDuration("WECHAT_TIMEOUT", "30s"),
		},

		Pipeline: PipelineConfig{
			MaxArticlesForLLM:   getEnvAsInt("PIPELINE_MAX_ARTICLES", 5),
			ArticleBodyLimit:    getEnvAsInt("PIPELINE_ARTICLE_BODY_LIMIT", 2000),
			SourcingConcurrency: getEnvAsInt("PIPELINE_SOURCING_CONCURRENCY", 4),
			StageTimeout:        getEnvAsDuration("PIPELINE_STAGE_TIMEOUT", "10m"),
			BoardCacheTTL:       getEnvAsDuration("PIPELINE_BOARD_CACHE_TTL", "6h"),
			DailyRunSchedule:    getEnv("PIPELINE_DAILY_SCHEDULE", "0 30 8 * * MON-FRI"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks required values and bounds.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Pipeline.SourcingConcurrency < 1 {
		return fmt.Errorf("PIPELINE_SOURCING_CONCURRENCY must be >= 1")
	}

	if c.EastMoney.PageSize < 1 || c.EastMoney.MaxPages < 1 {
		return fmt.Errorf("EASTMONEY_PAGE_SIZE and EASTMONEY_MAX_PAGES must be >= 1")
	}

	return nil
}

// loadEnvFile tries to load .env from a few likely locations.
func loadEnvFile() {
	paths := []string{".env"}

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

// getEnvAsList splits a comma-separated env value, dropping empty entries.
func getEnvAsList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
