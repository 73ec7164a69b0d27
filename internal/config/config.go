package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the gardenlog search service.
// It is read once at startup; the core packages never touch the environment
// themselves.
type Config struct {
	OpenRouter OpenRouterConfig
	Search     SearchConfig
	Telemetry  TelemetryConfig
}

type OpenRouterConfig struct {
	APIKey             string
	BaseURL            string
	DefaultModel       string
	DefaultTemperature float64
	Timeout            time.Duration
	MaxRetries         int
	AppURL             string
	AppName            string
}

type SearchConfig struct {
	Model string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	model := envStr("GARDENLOG_MODEL", "openai/gpt-4o-mini")
	return &Config{
		OpenRouter: OpenRouterConfig{
			APIKey:             envStr("OPENROUTER_API_KEY", ""),
			BaseURL:            envStr("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			DefaultModel:       model,
			DefaultTemperature: envFloat("GARDENLOG_TEMPERATURE", 0),
			Timeout:            time.Duration(envInt("GARDENLOG_TIMEOUT_SECONDS", 30)) * time.Second,
			MaxRetries:         envInt("GARDENLOG_MAX_RETRIES", 3),
			AppURL:             envStr("GARDENLOG_APP_URL", "https://gardenlog.local"),
			AppName:            envStr("GARDENLOG_APP_NAME", "gardenlog"),
		},
		Search: SearchConfig{
			Model: model,
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "gardenlog-search"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
