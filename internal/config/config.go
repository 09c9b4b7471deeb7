// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir     string // Base directory for the cache database and snapshots (always absolute)
	Port        int
	LogLevel    string
	DevMode     bool
	QuoteAPIURL string // Base URL of the upstream market-data API
	FundDocsURL string // Base URL of the fund disclosure document store
}

// Load reads configuration from environment variables.
// A .env file is honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("TICKERWATCH_DATA_DIR", "")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".tickerwatch")
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:     absDataDir,
		Port:        getEnvAsInt("TICKERWATCH_PORT", 8400),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DevMode:     getEnvAsBool("DEV_MODE", false),
		QuoteAPIURL: getEnv("QUOTE_API_URL", "https://query1.finance.yahoo.com"),
		FundDocsURL: getEnv("FUND_DOCS_URL", "https://fund-docs.vanguard.com"),
	}

	return cfg, nil
}

// CacheDBPath returns the path of the persistent cache database.
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "client_data.db")
}

// PriceSnapshotPath returns the path of the price cache snapshot file.
func (c *Config) PriceSnapshotPath() string {
	return filepath.Join(c.DataDir, "price_cache.msgpack")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
