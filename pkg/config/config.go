// Package config loads engine configuration from environment variables.
package config

import (
	"os"
	"strconv"

	// Load environment variables from a .env file when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all engine configuration.
type Config struct {
	Engine EngineConfig
	OCR    OCRConfig
}

// EngineConfig tunes the batch orchestrator and the card-fee table.
type EngineConfig struct {
	// MaxConcurrentFiles caps files processed in parallel. Kept at 2 to
	// respect the OCR collaborator's rate limits.
	MaxConcurrentFiles int

	// CardFeeCreditPct and CardFeeDebitPct override the fallback card
	// rates; values are percentages (2.99 means 2.99%).
	CardFeeCreditPct float64
	CardFeeDebitPct  float64
}

// OCRConfig points at the OCR collaborator.
type OCRConfig struct {
	Endpoint       string
	TimeoutSeconds int
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Engine: EngineConfig{
			MaxConcurrentFiles: getEnvAsInt("IMPORT_MAX_CONCURRENT_FILES", 2),
			CardFeeCreditPct:   getEnvAsFloat("CARD_FEE_CREDIT_PCT", 0),
			CardFeeDebitPct:    getEnvAsFloat("CARD_FEE_DEBIT_PCT", 0),
		},
		OCR: OCRConfig{
			Endpoint:       getEnv("OCR_ENDPOINT", ""),
			TimeoutSeconds: getEnvAsInt("OCR_TIMEOUT_SECONDS", 60),
		},
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
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
