package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"musicbuddy-backend/internal/gemini"
)

// DefaultGeminiBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultGeminiBaseURL = gemini.DefaultBaseURL

type Config struct {
	Port          string `koanf:"port"`
	AllowedOrigin string `koanf:"allowed_origin"`
	// Gemini
	GeminiAPIKey  string        `koanf:"gemini_api_key"`
	GeminiModel   string        `koanf:"gemini_model"`
	GeminiBaseURL string        `koanf:"gemini_base_url"`
	GeminiTimeout time.Duration `koanf:"gemini_timeout"`
	// HTTP server
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
	// Logging
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
}

// envKeys lists the environment variables Load understands. Each maps to the
// lower-cased koanf key of the same name.
var envKeys = []string{
	"PORT",
	"ALLOWED_ORIGIN",
	"GEMINI_API_KEY",
	"GEMINI_MODEL",
	"GEMINI_BASE_URL",
	"GEMINI_TIMEOUT",
	"SHUTDOWN_TIMEOUT",
	"MAX_BODY_BYTES",
	"LOG_LEVEL",
	"LOG_FORMAT",
}

func defaults() map[string]any {
	return map[string]any{
		"port":             "8000",
		"allowed_origin":   "http://localhost:5173",
		"gemini_model":     gemini.DefaultModel,
		"gemini_base_url":  DefaultGeminiBaseURL,
		"gemini_timeout":   "30s",
		"shutdown_timeout": "10s",
		"max_body_bytes":   int64(1 << 20),
		"log_level":        "info",
		"log_format":       "json",
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment (a local .env file is loaded into the environment first).
// Later sources win. The result is validated before it is returned.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", mapEnv), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.AllowedOrigin = strings.TrimRight(strings.TrimSpace(cfg.AllowedOrigin), "/")
	cfg.GeminiBaseURL = strings.TrimRight(strings.TrimSpace(cfg.GeminiBaseURL), "/")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if strings.HasPrefix(cfg.AllowedOrigin, "http://") && !isLocalOrigin(cfg.AllowedOrigin) {
		slog.Warn("allowed origin is not served over https", "origin", cfg.AllowedOrigin)
	}
	return cfg, nil
}

// mapEnv turns a known, non-empty environment variable into its koanf key.
// Unknown and empty variables are dropped so defaults stay in effect.
func mapEnv(key, value string) (string, interface{}) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	for _, k := range envKeys {
		if key == k {
			return strings.ToLower(key), value
		}
	}
	return "", nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		return errors.New("GEMINI_API_KEY is required (set it in the environment, .env or the config file)")
	}
	if strings.TrimSpace(c.GeminiModel) == "" {
		return errors.New("gemini model name is required")
	}
	if c.GeminiBaseURL == "" {
		return errors.New("gemini base url is required")
	}
	if c.GeminiTimeout <= 0 {
		return fmt.Errorf("gemini timeout must be positive, got %s", c.GeminiTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	}
	// Credentialed CORS needs a concrete origin.
	if c.AllowedOrigin == "" || c.AllowedOrigin == "*" {
		return errors.New("allowed origin must name a single frontend origin")
	}
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("port is required")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func isLocalOrigin(origin string) bool {
	host := strings.TrimPrefix(origin, "http://")
	return strings.HasPrefix(host, "localhost") || strings.HasPrefix(host, "127.0.0.1")
}
