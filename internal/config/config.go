package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Backends accepted in DATA_BACKEND.
var Backends = []string{"memory", "sqlite", "redis", "postgres"}

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Ledger storage
	DataBackend   string
	DataDirectory string
	StoreKey      string
	SQLiteDBPath  string
	RedisURL      string
	DatabaseURL   string

	// AMQP (optional change feed)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Localization
	DefaultLanguage string
	TranslationsDir string
	TranslationsURL string

	// Reports
	ReportLinesPerPage  int
	ReportOutputPath    string
	GoogleSpreadsheetID string
	GoogleReportSheet   string
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:   strings.ToLower(getEnv("DATA_BACKEND", "memory")),
		DataDirectory: getEnv("DATA_DIRECTORY", "data"),
		StoreKey:      getEnv("STORE_KEY", "accounts"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/farmprofit.db"),
		RedisURL:      getEnv("REDIS_URL", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "farmprofit"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_changes"),

		DefaultLanguage: getEnv("DEFAULT_LANGUAGE", "id"),
		TranslationsDir: getEnv("TRANSLATIONS_DIR", ""),
		TranslationsURL: getEnv("TRANSLATIONS_URL", ""),

		ReportLinesPerPage:  getEnvInt("REPORT_LINES_PER_PAGE", 40),
		ReportOutputPath:    getEnv("REPORT_OUTPUT_PATH", ""),
		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleReportSheet:   getEnv("GOOGLE_REPORT_SHEET", "Report"),
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if !slices.Contains(Backends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}
	if strings.TrimSpace(c.StoreKey) == "" {
		errors = append(errors, "store key cannot be empty")
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "redis":
		if msg := checkURL("REDIS_URL", c.RedisURL, "redis", "rediss"); msg != "" {
			errors = append(errors, msg)
		}
	case "postgres":
		if msg := checkURL("DATABASE_URL", c.DatabaseURL, "postgres", "postgresql"); msg != "" {
			errors = append(errors, msg)
		}
	}

	if c.AMQPURL != "" {
		if msg := checkURL("AMQP_URL", c.AMQPURL, "amqp", "amqps"); msg != "" {
			errors = append(errors, msg)
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.TranslationsURL != "" {
		if msg := checkURL("TRANSLATIONS_URL", c.TranslationsURL, "http", "https"); msg != "" {
			errors = append(errors, msg)
		}
	}
	if c.TranslationsDir != "" {
		if fi, err := os.Stat(c.TranslationsDir); err != nil || !fi.IsDir() {
			errors = append(errors, fmt.Sprintf("translations directory '%s' does not exist", c.TranslationsDir))
		}
	}

	if c.ReportLinesPerPage < 10 || c.ReportLinesPerPage > 500 {
		errors = append(errors, fmt.Sprintf("invalid report lines per page %d: must be between 10 and 500", c.ReportLinesPerPage))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// SheetsEnabled reports whether reports should be exported to Google Sheets.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

func checkURL(name, raw string, schemes ...string) string {
	if raw == "" {
		return fmt.Sprintf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid %s '%s': %v", name, raw, err)
	}
	if !slices.Contains(schemes, u.Scheme) {
		return fmt.Sprintf("invalid %s scheme '%s': must be one of %v", name, u.Scheme, schemes)
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
