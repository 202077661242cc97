// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/deltastar/cfs/pkg/money"
)

// Config holds application configuration.
type Config struct {
	DataDir  string // Base directory for the ledger database (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Transaction-amount bounds. Every order amount, sell share count and
	// published price must fall within [OrderMinAmount, OrderMaxAmount].
	OrderMinAmount money.Amount
	OrderMaxAmount money.Amount
}

// Defaults for the transaction bounds: one milli-unit up to one million units.
const (
	defaultOrderMinAmount = "0.001"
	defaultOrderMaxAmount = "1000000"
)

// Load reads configuration from environment variables. A .env file is loaded
// first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("CFS_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	minAmount, err := money.Parse(getEnv("ORDER_MIN_AMOUNT", defaultOrderMinAmount))
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_MIN_AMOUNT: %w", err)
	}
	maxAmount, err := money.Parse(getEnv("ORDER_MAX_AMOUNT", defaultOrderMaxAmount))
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_MAX_AMOUNT: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		Port:           getEnvAsInt("CFS_PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		OrderMinAmount: minAmount,
		OrderMaxAmount: maxAmount,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.OrderMinAmount <= 0 {
		return fmt.Errorf("ORDER_MIN_AMOUNT must be positive, got %s", c.OrderMinAmount)
	}
	if c.OrderMaxAmount < c.OrderMinAmount {
		return fmt.Errorf("ORDER_MAX_AMOUNT (%s) must be >= ORDER_MIN_AMOUNT (%s)",
			c.OrderMaxAmount, c.OrderMinAmount)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("CFS_PORT must be a valid port, got %d", c.Port)
	}
	return nil
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
