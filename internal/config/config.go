package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPPort       string
	NatsURL        string
	NatsPrefix     string
	AjaxURL        string
	AjaxNonce      string
	FetchTimeout   time.Duration
	FetchPerSecond float64
	MaxPages       int
	SearchDelay    time.Duration
	ReadyTimeout   time.Duration
	ForceLayout    bool
}

func Load() *Config {
	return &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8083"),
		NatsURL:        getEnv("NATS_URL", ""),
		NatsPrefix:     getEnv("NATS_SUBJECT_PREFIX", "gridfilter"),
		AjaxURL:        getEnv("AJAX_URL", ""),
		AjaxNonce:      getEnv("AJAX_NONCE", ""),
		FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		FetchPerSecond: getEnvFloat("FETCH_PER_SECOND", 1),
		MaxPages:       getEnvInt("MAX_PAGES", 0),
		SearchDelay:    getEnvDuration("SEARCH_DEBOUNCE", 500*time.Millisecond),
		ReadyTimeout:   getEnvDuration("READY_TIMEOUT", 2*time.Second),
		ForceLayout:    getEnvBool("FORCE_GRID_LAYOUT", true),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
