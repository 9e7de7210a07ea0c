package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Cache backends selectable with CACHE_BACKEND.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	WorldDir     string
	CacheDir     string
	CacheBackend string
	RedisURL     string
	RosterFile   string // empty uses the built-in roster
	GatemapFile  string // empty uses the built-in gate map
	StartRegion  string
	BuildWorkers int

	RebuildInterval time.Duration // how often cmd/worker polls for rebuild requests
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		LogLevel:     parseLogLevel(getEnv("LOG_LEVEL", "info")),
		WorldDir:     getEnv("WORLD_DIR", "./data/world"),
		CacheDir:     getEnv("CACHE_DIR", "./data/cache"),
		CacheBackend: strings.ToLower(getEnv("CACHE_BACKEND", BackendFile)),
		RedisURL:     getEnv("REDIS_URL", "localhost:6379"),
		RosterFile:   os.Getenv("ROSTER_FILE"),
		GatemapFile:  os.Getenv("GATEMAP_FILE"),
		StartRegion:  strings.ToUpper(getEnv("START_REGION", "SU")),
	}

	workers, err := strconv.Atoi(getEnv("BUILD_WORKERS", "4"))
	if err != nil || workers < 1 {
		return nil, fmt.Errorf("BUILD_WORKERS must be a positive integer")
	}
	cfg.BuildWorkers = workers

	interval, err := time.ParseDuration(getEnv("REBUILD_INTERVAL", "30s"))
	if err != nil || interval <= 0 {
		return nil, fmt.Errorf("REBUILD_INTERVAL must be a positive duration")
	}
	cfg.RebuildInterval = interval

	switch cfg.CacheBackend {
	case BackendFile, BackendRedis:
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q (want %s or %s)", cfg.CacheBackend, BackendFile, BackendRedis)
	}
	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
