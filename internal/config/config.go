package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds all runtime configuration for the service.
type Config struct {
	// Environment is "development" or "production".
	Environment string
	// LogLevel is a zap level name (debug, info, warn, error).
	LogLevel string
	// Port is the API server listen port.
	Port string
	// EstimateDBConfig is a JSON document describing the estimate store
	// (db_type + extra_details), parsed by the store factory.
	EstimateDBConfig string
	// RPSLimit and RPSBurst bound the API server request rate.
	RPSLimit int
	RPSBurst int
	// DevProxyPort is the dev gateway listen port; empty disables the proxy.
	DevProxyPort string
	// DevProxyUpstream is the origin the dev gateway forwards to.
	DevProxyUpstream string
}

// Load reads configuration from the environment, with a .env file as an
// optional source for local development.
func Load(logger *zap.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", zap.Error(err))
	}

	cfg := &Config{
		Environment:      getEnv("ENVIRONMENT", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Port:             getEnv("PORT", "3000"),
		EstimateDBConfig: os.Getenv("ESTIMATE_DB_CONFIG"),
		RPSLimit:         getEnvInt(logger, "RPS_LIMIT", 100),
		RPSBurst:         getEnvInt(logger, "RPS_BURST", 200),
		DevProxyPort:     os.Getenv("DEV_PROXY_PORT"),
		DevProxyUpstream: getEnv("DEV_PROXY_UPSTREAM", "http://localhost:3000"),
	}

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
		zap.String("dev_proxy_port", cfg.DevProxyPort),
	)
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(logger *zap.Logger, key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn("invalid integer in environment, using default",
			zap.String("key", key), zap.String("value", v), zap.Int("default", fallback))
		return fallback
	}
	return n
}
