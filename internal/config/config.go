package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Policy    PolicyConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	MongoDB   MongoDBConfig
	Log       LogConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects the inventory store.
type DatabaseConfig struct {
	// Driver is one of memory, sqlite or postgres.
	Driver      string
	DSN         string
	LockTimeout time.Duration
	AutoMigrate bool
}

// PolicyConfig holds the admission constants.
type PolicyConfig struct {
	StarterCap      int
	ReturningCap    int
	FrequencyWindow time.Duration
	FeedPaymentTerm time.Duration
	DefaultFeedBags int
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
// The channel is disabled when AccessToken is empty.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	BaseURL       string
	APIVersion    string
	// ManagerPhones may issue commands and receive reports.
	ManagerPhones []string
}

// Enabled reports whether outbound messaging is configured.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != ""
}

// SheetsConfig contains configuration required to mirror sales to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	SalesRange      string
}

// Enabled reports whether the sales ledger sheet is configured.
func (c SheetsConfig) Enabled() bool {
	return c.SpreadsheetID != ""
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule     string
	ReminderSchedule string
	Timezone         string
}

// MongoDBConfig holds settings for the report archive. Empty URI disables it.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// LogConfig selects the minimum log level.
type LogConfig struct {
	Level string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// A missing .env is fine when the environment is set directly.
		_ = godotenv.Load()
	}

	var errs []error
	cfg := &Config{
		Server: ServerConfig{
			Port:            getenvWithDefault("APP_PORT", "8080"),
			ShutdownTimeout: getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second, &errs),
		},
		Database: DatabaseConfig{
			Driver:      getenvWithDefault("DB_DRIVER", "sqlite"),
			DSN:         getenvWithDefault("DB_DSN", "file:xchicks.db?_pragma=busy_timeout(5000)"),
			LockTimeout: getenvDuration("DB_LOCK_TIMEOUT", 5*time.Second, &errs),
			AutoMigrate: getenvBool("DB_AUTO_MIGRATE", true, &errs),
		},
		Policy: PolicyConfig{
			StarterCap:      getenvInt("POLICY_STARTER_CAP", 100, &errs),
			ReturningCap:    getenvInt("POLICY_RETURNING_CAP", 500, &errs),
			FrequencyWindow: getenvDuration("POLICY_FREQUENCY_WINDOW", 120*24*time.Hour, &errs),
			FeedPaymentTerm: getenvDuration("POLICY_FEED_PAYMENT_TERM", 60*24*time.Hour, &errs),
			DefaultFeedBags: getenvInt("POLICY_DEFAULT_FEED_BAGS", 2, &errs),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:   os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			ManagerPhones: splitList(os.Getenv("MANAGER_PHONES")),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_SALES_ID"),
			SalesRange:      getenvWithDefault("GOOGLE_SHEET_SALES_RANGE", "Sales!A:F"),
		},
		Reporting: ReportingConfig{
			CronSchedule:     getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * *"),
			ReminderSchedule: getenvWithDefault("REMINDER_CRON_SCHEDULE", "0 9 * * *"),
			Timezone:         getenvWithDefault("TIMEZONE", "Africa/Kampala"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "xchicks"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Database.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Database.DSN == "" {
			return errors.New("DB_DSN must be provided")
		}
	default:
		return fmt.Errorf("DB_DRIVER %q is not one of memory, sqlite, postgres", c.Database.Driver)
	}

	switch {
	case c.Policy.StarterCap <= 0:
		return errors.New("POLICY_STARTER_CAP must be positive")
	case c.Policy.ReturningCap <= 0:
		return errors.New("POLICY_RETURNING_CAP must be positive")
	case c.Policy.FrequencyWindow <= 0:
		return errors.New("POLICY_FREQUENCY_WINDOW must be positive")
	case c.Policy.FeedPaymentTerm <= 0:
		return errors.New("POLICY_FEED_PAYMENT_TERM must be positive")
	case c.Policy.DefaultFeedBags <= 0:
		return errors.New("POLICY_DEFAULT_FEED_BAGS must be positive")
	}

	if c.WhatsApp.Enabled() {
		switch {
		case c.WhatsApp.PhoneNumberID == "":
			return errors.New("WHATSAPP_PHONE_NUMBER_ID must be provided")
		case c.WhatsApp.VerifyToken == "":
			return errors.New("META_VERIFY_TOKEN must be provided")
		case c.WhatsApp.BaseURL == "":
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		case c.WhatsApp.APIVersion == "":
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if c.Sheets.Enabled() && c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided with GOOGLE_SHEET_SALES_ID")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Reporting.Timezone, err)
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getenvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func getenvBool(key string, fallback bool, errs *[]error) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
