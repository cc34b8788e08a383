package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Runtime configuration for an allocation run, resolved from the
// environment (a .env file is loaded by the composition roots).
type Config struct {
	DriversPath string
	OrdersPath  string
	OutputPath  string
	AttemptsDir string

	DBPath    string
	RedisAddr string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	Temperature   float64
	MaxTokens     int

	// Allocation retry budget (attempts, not transport retries).
	MaxAttempts int
	// When true every order must be assigned for acceptance.
	MandatoryCoverage bool

	// USD per 1M tokens, for the usage report.
	InputPricePer1M  float64
	OutputPricePer1M float64
}

// Get returns the value of an environment variable or a fallback.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load resolves the full configuration. The API key is the only
// required setting; everything else has a local-run default.
func Load() (Config, error) {
	cfg := Config{
		DriversPath: Get("DRIVERS_PATH", "data/drivers.json"),
		OrdersPath:  Get("ORDERS_PATH", "data/orders.json"),
		OutputPath:  Get("OUTPUT_PATH", "data/allocation_results.json"),
		AttemptsDir: Get("ATTEMPTS_DIR", "data/attempts"),

		DBPath:    Get("DB_PATH", "data/app.db"),
		RedisAddr: os.Getenv("REDIS_ADDR"),

		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: Get("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   Get("OPENAI_MODEL", "gpt-4.1"),

		InputPricePer1M:  2.00,
		OutputPricePer1M: 8.00,
	}

	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return Config{}, fmt.Errorf("load config: OPENAI_API_KEY is required")
	}

	var err error
	if cfg.Temperature, err = getFloat("OPENAI_TEMPERATURE", 0.3); err != nil {
		return Config{}, err
	}
	if cfg.MaxTokens, err = getInt("OPENAI_MAX_TOKENS", 16000); err != nil {
		return Config{}, err
	}
	if cfg.MaxAttempts, err = getInt("MAX_ATTEMPTS", 5); err != nil {
		return Config{}, err
	}
	if cfg.MaxAttempts < 1 {
		return Config{}, fmt.Errorf("load config: MAX_ATTEMPTS must be at least 1")
	}
	cfg.MandatoryCoverage = Get("MANDATORY_COVERAGE", "false") == "true"

	return cfg, nil
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("load config: %s must be an integer: %w", key, err)
	}
	return v, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("load config: %s must be a number: %w", key, err)
	}
	return v, nil
}
