package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"

	"financas/internal/log"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

var validBackends = []string{BackendMemory, BackendSQLite}

type Config struct {
	// Storage
	DataBackend  string
	SQLiteDBPath string
	CacheSize    int
	CacheTTL     time.Duration

	// Presentation
	Currency string

	// Logging
	LogLevel  string
	LogFormat string

	// AMQP (ledger events). Publishing is disabled when AMQPURL is empty.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets journal
	GoogleSpreadsheetID      string
	GoogleJournalSheetName   string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

func Load() *Config {
	return &Config{
		DataBackend:  getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/financas.db"),
		CacheSize:    getEnvInt("CACHE_SIZE", 256),
		CacheTTL:     getEnvDuration("CACHE_TTL", 5*time.Minute),

		Currency: strings.ToUpper(getEnv("CURRENCY", money.BRL)),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "financas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleJournalSheetName:   getEnv("GOOGLE_JOURNAL_SHEET_NAME", "Journal"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
	}
}

// AMQPEnabled reports whether ledger events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate checks the settings every binary needs and returns all problems
// at once.
func (c *Config) Validate() error {
	var errors []string

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.CacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must not be negative", c.CacheSize))
	} else if c.CacheSize > 100000 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at most 100000", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}

	if money.GetCurrency(c.Currency) == nil {
		errors = append(errors, fmt.Sprintf("unknown currency '%s'", c.Currency))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	errors = append(errors, c.amqpErrors()...)

	return joinErrors(errors)
}

// ValidateWorker checks the extra settings the journal worker needs on top
// of Validate.
func (c *Config) ValidateWorker() error {
	var errors []string

	if !c.AMQPEnabled() {
		errors = append(errors, "AMQP_URL is required for the journal worker")
	}
	errors = append(errors, c.amqpErrors()...)
	errors = append(errors, c.journalErrors()...)

	return joinErrors(errors)
}

// ValidateJournal checks the settings needed to read the Google journal.
func (c *Config) ValidateJournal() error {
	return joinErrors(c.journalErrors())
}

func (c *Config) journalErrors() []string {
	var errors []string
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the journal")
	}
	if c.GoogleJournalSheetName == "" {
		errors = append(errors, "Google journal sheet name cannot be empty")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	return errors
}

func (c *Config) amqpErrors() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func joinErrors(errors []string) error {
	if len(errors) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
