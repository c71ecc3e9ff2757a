package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/eleven-am/interview-coach/internal/interview"
	"github.com/eleven-am/interview-coach/internal/live"
	"github.com/eleven-am/interview-coach/internal/scoring"
)

type Config struct {
	ServerAddr string
	GRPCAddr   string
	LogLevel   string

	GeminiAPIKey    string
	LiveURL         string
	LiveModel       string
	LiveVoice       string
	LiveDialTimeout time.Duration

	RetryMax       int
	RetryBaseDelay time.Duration

	ScoringModel  string
	ScoreCacheTTL time.Duration

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// fileConfig mirrors the optional TOML overlay named by INTERVIEW_CONFIG.
type fileConfig struct {
	Live struct {
		URL         string `toml:"url"`
		Model       string `toml:"model"`
		Voice       string `toml:"voice"`
		DialTimeout string `toml:"dial_timeout"`
	} `toml:"live"`
	Retry struct {
		Max       int    `toml:"max"`
		BaseDelay string `toml:"base_delay"`
	} `toml:"retry"`
	Scoring struct {
		Model    string `toml:"model"`
		CacheTTL string `toml:"cache_ttl"`
	} `toml:"scoring"`
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		GRPCAddr:   getEnv("GRPC_ADDR", ":50051"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		LiveURL:      getEnv("LIVE_URL", live.DefaultURL),
		LiveModel:    getEnv("LIVE_MODEL", live.DefaultModel),
		LiveVoice:    getEnv("LIVE_VOICE", live.DefaultVoice),

		RetryMax:       getEnvInt("RETRY_MAX", interview.DefaultMaxRetries),
		RetryBaseDelay: time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 1000)) * time.Millisecond,

		ScoringModel:  getEnv("SCORING_MODEL", scoring.DefaultModel),
		ScoreCacheTTL: time.Duration(getEnvInt("SCORE_CACHE_TTL_HOURS", 24)) * time.Hour,

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
	}

	if path := getEnv("INTERVIEW_CONFIG", ""); path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *Config) overlay(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}

	if meta.IsDefined("live", "url") {
		c.LiveURL = strings.TrimSpace(raw.Live.URL)
	}
	if meta.IsDefined("live", "model") {
		c.LiveModel = strings.TrimSpace(raw.Live.Model)
	}
	if meta.IsDefined("live", "voice") {
		c.LiveVoice = strings.TrimSpace(raw.Live.Voice)
	}
	if meta.IsDefined("live", "dial_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Live.DialTimeout))
		if err != nil {
			return fmt.Errorf("parse live.dial_timeout: %w", err)
		}
		c.LiveDialTimeout = d
	}

	if meta.IsDefined("retry", "max") {
		c.RetryMax = raw.Retry.Max
	}
	if meta.IsDefined("retry", "base_delay") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Retry.BaseDelay))
		if err != nil {
			return fmt.Errorf("parse retry.base_delay: %w", err)
		}
		c.RetryBaseDelay = d
	}

	if meta.IsDefined("scoring", "model") {
		c.ScoringModel = strings.TrimSpace(raw.Scoring.Model)
	}
	if meta.IsDefined("scoring", "cache_ttl") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Scoring.CacheTTL))
		if err != nil {
			return fmt.Errorf("parse scoring.cache_ttl: %w", err)
		}
		c.ScoreCacheTTL = d
	}
	return nil
}

// Live builds the transport config shared by every interview.
func (c *Config) Live() live.Config {
	cfg := live.DefaultConfig()
	cfg.APIKey = c.GeminiAPIKey
	if c.LiveURL != "" {
		cfg.URL = c.LiveURL
	}
	if c.LiveModel != "" {
		cfg.Model = c.LiveModel
	}
	if c.LiveVoice != "" {
		cfg.Voice = c.LiveVoice
	}
	if c.LiveDialTimeout > 0 {
		cfg.DialTimeout = c.LiveDialTimeout
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
