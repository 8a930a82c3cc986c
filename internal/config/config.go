package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type AppConfig struct {
	OpenWeatherAPIKey  string `validate:"required"`
	OpenWeatherBaseURL string `validate:"required,url"`

	// GoogleGeocodingAPIKey switches city-name resolution to Google geocoding when set.
	GoogleGeocodingAPIKey string

	// TelegramToken enables the Telegram transport when set.
	TelegramToken    string
	TelegramSendRate float64 `validate:"gt=0"`

	Port      string `validate:"required,numeric"`
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json text"`

	// HTTPTimeout bounds every outbound provider request.
	HTTPTimeout time.Duration `validate:"gt=0"`
	// FetchCallTimeout bounds each of the three concurrent lookups of a single report.
	FetchCallTimeout time.Duration `validate:"gt=0"`

	SessionStore         string        `validate:"oneof=memory sqlite"`
	SessionDBPath        string        `validate:"required_if=SessionStore sqlite"`
	SessionIdleTTL       time.Duration `validate:"gt=0"`
	SessionSweepInterval time.Duration `validate:"gt=0"`

	MaxConcurrentSessions int           `validate:"gte=1"`
	ShutdownTimeout       time.Duration `validate:"gt=0"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.OpenWeatherBaseURL = getenvDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org")
	cfg.GoogleGeocodingAPIKey = os.Getenv("GOOGLE_GEOCODING_API_KEY")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")
	cfg.SessionStore = getenvDefault("SESSION_STORE", "memory")
	cfg.SessionDBPath = getenvDefault("SESSION_DB_PATH", "sessions.db")
	cfg.MaxConcurrentSessions = getenvInt("MAX_CONCURRENT_SESSIONS", 64)

	rate, err := strconv.ParseFloat(getenvDefault("TELEGRAM_SEND_RATE", "25"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_SEND_RATE: %w", err)
	}
	cfg.TelegramSendRate = rate

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
		{"FETCH_CALL_TIMEOUT", "5s", &cfg.FetchCallTimeout},
		{"SESSION_IDLE_TTL", "24h", &cfg.SessionIdleTTL},
		{"SESSION_SWEEP_INTERVAL", "10m", &cfg.SessionSweepInterval},
		{"SHUTDOWN_TIMEOUT", "10s", &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getenvDefault(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *AppConfig) Addr() string {
	return ":" + c.Port
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
