// Package config loads process configuration from the environment. A .env
// file in the working directory is read first when present.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every recognised option. Zero values mean "use the default".
type Config struct {
	// NLU
	NLUEndpoint  string
	NLUToken     string
	ParamPrefix  string
	NLULang      string
	NLUTimezone  string
	NLUSessionID string
	NLUTimeout   time.Duration

	// Place lookup
	PlacesBaseURL    string
	PlacesAPIKey     string
	PlacesRatePerSec float64

	// Favorites
	FavoritesTable string

	// Session behaviour
	PageSize      int
	FailureNotice string

	MetricsAddr string
	LogLevel    string
}

// Load reads the configuration. It never fails; callers validate the
// options they require.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		NLUEndpoint:      os.Getenv("NLU_ENDPOINT"),
		NLUToken:         os.Getenv("NLU_TOKEN"),
		ParamPrefix:      os.Getenv("PARAM_PREFIX"),
		NLULang:          envOrDefault("NLU_LANG", "en"),
		NLUTimezone:      envOrDefault("NLU_TIMEZONE", "Asia/Colombo"),
		NLUSessionID:     os.Getenv("NLU_SESSION_ID"),
		NLUTimeout:       envDuration("NLU_TIMEOUT", 10*time.Second),
		PlacesBaseURL:    os.Getenv("PLACES_BASE_URL"),
		PlacesAPIKey:     os.Getenv("PLACES_API_KEY"),
		PlacesRatePerSec: envFloat("PLACES_RATE_PER_SEC", 5),
		FavoritesTable:   os.Getenv("FAVORITES_TABLE"),
		PageSize:         envInt("PAGE_SIZE", 4),
		FailureNotice:    os.Getenv("FAILURE_NOTICE"),
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
	}
}

// SlogLevel maps LogLevel to a slog level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
