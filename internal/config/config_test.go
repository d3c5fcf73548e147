package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("WHATSAPP_TOKEN", "")
	t.Setenv("GOOGLE_SHEET_SALES_ID", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" || !cfg.Database.AutoMigrate {
		t.Fatalf("unexpected database defaults %+v", cfg.Database)
	}
	if cfg.Policy.StarterCap != 100 || cfg.Policy.ReturningCap != 500 || cfg.Policy.FrequencyWindow != 120*24*time.Hour {
		t.Fatalf("unexpected policy defaults %+v", cfg.Policy)
	}
	if cfg.WhatsApp.Enabled() || cfg.Sheets.Enabled() {
		t.Fatalf("integrations should be disabled by default")
	}
	if cfg.Sheets.SalesRange != "Sales!A:F" || cfg.Reporting.Timezone != "Africa/Kampala" {
		t.Fatalf("unexpected defaults %+v %+v", cfg.Sheets, cfg.Reporting)
	}
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := strings.Join([]string{
		"DB_DRIVER=memory",
		"POLICY_STARTER_CAP=50",
		"POLICY_FREQUENCY_WINDOW=720h",
		"WHATSAPP_TOKEN=token",
		"WHATSAPP_PHONE_NUMBER_ID=123",
		"META_VERIFY_TOKEN=verify",
		"MANAGER_PHONES=+256700000009, 256700000010 ,",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	for _, key := range []string{"DB_DRIVER", "POLICY_STARTER_CAP", "POLICY_FREQUENCY_WINDOW", "WHATSAPP_TOKEN", "WHATSAPP_PHONE_NUMBER_ID", "META_VERIFY_TOKEN", "MANAGER_PHONES"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "memory" || cfg.Policy.StarterCap != 50 || cfg.Policy.FrequencyWindow != 30*24*time.Hour {
		t.Fatalf("env file not applied: %+v %+v", cfg.Database, cfg.Policy)
	}
	if !cfg.WhatsApp.Enabled() || len(cfg.WhatsApp.ManagerPhones) != 2 {
		t.Fatalf("unexpected whatsapp config %+v", cfg.WhatsApp)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("POLICY_STARTER_CAP", "lots")
	t.Setenv("DB_LOCK_TIMEOUT", "soon")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err == nil {
		t.Fatalf("expected parse errors")
	}
	for _, key := range []string{"POLICY_STARTER_CAP", "DB_LOCK_TIMEOUT"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q should name %s", err, key)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: "8080"},
			Database:  DatabaseConfig{Driver: "memory"},
			Policy:    PolicyConfig{StarterCap: 100, ReturningCap: 500, FrequencyWindow: time.Hour, FeedPaymentTerm: time.Hour, DefaultFeedBags: 2},
			Reporting: ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "UTC"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, false},
		{"sqlite without dsn", func(c *Config) { c.Database.Driver = "sqlite" }, false},
		{"zero cap", func(c *Config) { c.Policy.StarterCap = 0 }, false},
		{"whatsapp without phone id", func(c *Config) { c.WhatsApp.AccessToken = "t" }, false},
		{"sheets without credentials", func(c *Config) { c.Sheets.SpreadsheetID = "sheet" }, false},
		{"unknown timezone", func(c *Config) { c.Reporting.Timezone = "Mars/Olympus" }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			if err := cfg.Validate(); (err == nil) != tc.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}
