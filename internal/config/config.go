package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	APIBaseURL    string        // inventory analysis service base URL
	PublicBaseURL string        // base URL embedded in report QR links
	Reviewer      string        // operator identity attached to reviews
	PollInterval  time.Duration // refetch interval for non-terminal runs
	FetchTimeout  time.Duration // upper bound per fetch
	ReviewTimeout time.Duration // upper bound for review submission
	LogLevel      string
	SimPort       string // port for the local simulator daemon
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	apiBaseURL := os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}

	return &Config{
		APIBaseURL:    apiBaseURL,
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", apiBaseURL),
		Reviewer:      getEnv("REVIEWER", "operator"),
		PollInterval:  getEnvSeconds("POLL_INTERVAL_SECONDS", 15),
		FetchTimeout:  getEnvSeconds("FETCH_TIMEOUT_SECONDS", 10),
		ReviewTimeout: getEnvSeconds("REVIEW_TIMEOUT_SECONDS", 30),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		SimPort:       getEnv("SIM_PORT", "8094"),
	}, nil
}

// NewLogger builds a logrus logger from the configured level
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}

// getEnv returns the environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvSeconds reads an integer-seconds variable as a duration
func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(defaultSeconds) * time.Second
}
