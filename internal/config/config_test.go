package config

import (
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ZBX_SETTINGS_PATH", "ZBX_SETTINGS_PASSPHRASE", "ZBX_HISTORY_DATABASE_URL",
		"ZBX_TIMEOUT_SECONDS", "ZBX_VERIFY_SSL", "ZBX_PROXY_URL", "ZBX_RATE_LIMIT",
		"ZBX_RATE_BURST", "ZBX_TIMEZONE", "SLACK_BOT_TOKEN", "SLACK_CHANNEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", cfg.Timeout)
	}
	if !cfg.VerifySSL {
		t.Error("Expected certificate verification on by default")
	}
	if cfg.RateLimit != 10 || cfg.RateBurst != 5 {
		t.Errorf("Expected limiter 10/5, got %v/%d", cfg.RateLimit, cfg.RateBurst)
	}
	if filepath.Base(cfg.SettingsPath) != "settings.yaml" {
		t.Errorf("Unexpected settings path %q", cfg.SettingsPath)
	}
	if filepath.Base(cfg.HistoryDatabaseURL) != "history.db" {
		t.Errorf("Unexpected history path %q", cfg.HistoryDatabaseURL)
	}
	if cfg.Location != time.Local {
		t.Errorf("Expected local time zone, got %v", cfg.Location)
	}
	if cfg.SlackBotToken != "" {
		t.Errorf("Expected Slack disabled, got token %q", cfg.SlackBotToken)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ZBX_SETTINGS_PATH", "/tmp/zbx.yaml")
	t.Setenv("ZBX_HISTORY_DATABASE_URL", "postgres://u:p@db/reports")
	t.Setenv("ZBX_TIMEOUT_SECONDS", "5")
	t.Setenv("ZBX_VERIFY_SSL", "false")
	t.Setenv("ZBX_RATE_LIMIT", "2.5")
	t.Setenv("ZBX_RATE_BURST", "1")
	t.Setenv("ZBX_TIMEZONE", "UTC")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_CHANNEL", "#reports")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.SettingsPath != "/tmp/zbx.yaml" {
		t.Errorf("Expected settings path override, got %q", cfg.SettingsPath)
	}
	if cfg.HistoryDatabaseURL != "postgres://u:p@db/reports" {
		t.Errorf("Expected history DSN override, got %q", cfg.HistoryDatabaseURL)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Expected 5s, got %v", cfg.Timeout)
	}
	if cfg.VerifySSL {
		t.Error("Expected verification disabled")
	}
	if cfg.Location.String() != "UTC" {
		t.Errorf("Expected UTC, got %v", cfg.Location)
	}

	zc := cfg.ZabbixConfig()
	if zc.RateLimit != 2.5 || zc.RateBurst != 1 || zc.Timeout != 5*time.Second || zc.VerifySSL {
		t.Errorf("Unexpected zabbix config %+v", zc)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("ZBX_TIMEZONE", "Nowhere/Atlantis")
	if _, err := Load(); err == nil {
		t.Error("Expected error for unknown time zone")
	}

	clearEnv(t)
	t.Setenv("ZBX_TIMEOUT_SECONDS", "0")
	if _, err := Load(); err == nil {
		t.Error("Expected error for zero timeout")
	}

	clearEnv(t)
	t.Setenv("ZBX_TIMEOUT_SECONDS", "abc")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected fallback for unparsable timeout, got %v", err)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout, got %v", cfg.Timeout)
	}
}

func TestGetEnvAsBoolOrDefault(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"", false, false},
		{"yes", false, true},
		{"OFF", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Setenv("ZBX_TEST_BOOL", tt.value)
		if got := getEnvAsBoolOrDefault("ZBX_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("getEnvAsBoolOrDefault(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}
