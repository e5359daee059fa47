package backend

import (
	"fmt"
	"time"

	"financas/internal/config"
)

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Read cache in front of the store; disabled when CacheSize is 0.
	CacheSize int
	CacheTTL  time.Duration

	// Event publishing; disabled when AMQPURL is empty.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		CacheSize:    appConfig.CacheSize,
		CacheTTL:     appConfig.CacheTTL,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative")
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}
	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{SQLiteBackend.String(), MemoryBackend.String()}
}
