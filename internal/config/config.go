package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv          string
	Port            string
	MongoURL        string
	MongoDBName     string
	SessionSecret   string
	YouTubeAPIKey   string
	CORSOrigins     []string
	LogLevel        string
	LogFormat       string
	CacheDefaultTTL time.Duration
	CacheSweepEvery time.Duration
	MaxConnections  int64
	MaxConnsPerIP   int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		Port:            getEnv("PORT", "3030"),
		MongoURL:        getEnv("MONGODB_URL", ""),
		MongoDBName:     getEnv("MONGODB_NAME", "offbeat_db"),
		SessionSecret:   getEnv("SESSION_SECRET", ""),
		YouTubeAPIKey:   getEnv("YOUTUBE_API_KEY", ""),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		CacheDefaultTTL: 30 * time.Minute,
		CacheSweepEvery: 10 * time.Minute,
		MaxConnections:  5000,
		MaxConnsPerIP:   20,
	}

	if cfg.MongoURL == "" {
		return nil, fmt.Errorf("MONGODB_URL is required")
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	if cfg.YouTubeAPIKey == "" && cfg.AppEnv == "production" {
		return nil, fmt.Errorf("YOUTUBE_API_KEY is required in production")
	}

	if v := os.Getenv("CACHE_DEFAULT_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("CACHE_DEFAULT_TTL must be a valid duration: %w", err)
		}
		if ttl <= 0 {
			return nil, fmt.Errorf("CACHE_DEFAULT_TTL must be positive, got %s", ttl)
		}
		cfg.CacheDefaultTTL = ttl
	}

	if v := os.Getenv("MAX_CONNECTIONS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MAX_CONNECTIONS must be a positive integer, got %q", v)
		}
		cfg.MaxConnections = n
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
