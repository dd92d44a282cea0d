package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/akmatori/zabbix-reports/internal/zabbix"
)

// Config holds all configuration for the application
type Config struct {
	// Settings store
	SettingsPath       string
	SettingsPassphrase string

	// Export history database, sqlite path or postgres DSN
	HistoryDatabaseURL string

	// Zabbix connection
	Timeout   time.Duration
	VerifySSL bool
	ProxyURL  string
	RateLimit float64
	RateBurst int

	// Location used for date windows and spreadsheet timestamps
	Location *time.Location

	// Slack notifications, disabled when the token is empty
	SlackBotToken string
	SlackChannel  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	dataDir := defaultDataDir()

	cfg.SettingsPath = getEnvOrDefault("ZBX_SETTINGS_PATH", filepath.Join(dataDir, "settings.yaml"))
	cfg.SettingsPassphrase = os.Getenv("ZBX_SETTINGS_PASSPHRASE")
	cfg.HistoryDatabaseURL = getEnvOrDefault("ZBX_HISTORY_DATABASE_URL", filepath.Join(dataDir, "history.db"))

	cfg.Timeout = time.Duration(getEnvAsIntOrDefault("ZBX_TIMEOUT_SECONDS", 30)) * time.Second
	cfg.VerifySSL = getEnvAsBoolOrDefault("ZBX_VERIFY_SSL", true)
	cfg.ProxyURL = os.Getenv("ZBX_PROXY_URL")
	cfg.RateLimit = getEnvAsFloatOrDefault("ZBX_RATE_LIMIT", 10)
	cfg.RateBurst = getEnvAsIntOrDefault("ZBX_RATE_BURST", 5)

	cfg.Location = time.Local
	if tz := os.Getenv("ZBX_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid ZBX_TIMEZONE %q: %w", tz, err)
		}
		cfg.Location = loc
	}

	cfg.SlackBotToken = os.Getenv("SLACK_BOT_TOKEN")
	cfg.SlackChannel = os.Getenv("SLACK_CHANNEL")

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("ZBX_TIMEOUT_SECONDS must be positive")
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("ZBX_RATE_LIMIT must not be negative")
	}

	return cfg, nil
}

// ZabbixConfig returns the client settings
func (c *Config) ZabbixConfig() zabbix.Config {
	return zabbix.Config{
		Timeout:   c.Timeout,
		VerifySSL: c.VerifySSL,
		ProxyURL:  c.ProxyURL,
		RateLimit: c.RateLimit,
		RateBurst: c.RateBurst,
	}
}

// defaultDataDir resolves the per-user config directory, falling back to
// the working directory
func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		log.Printf("Warning: Could not resolve user config directory: %v", err)
		return "."
	}
	return filepath.Join(dir, "zabbix-reports")
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault returns the value of an environment variable as an integer or a default value
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return defaultValue
}
