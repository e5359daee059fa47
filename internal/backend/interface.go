// Package backend assembles the storage and event plumbing the stores run
// on, from configuration.
package backend

import (
	"context"

	"financas/internal/kv"
	"financas/internal/ledger"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the key-value store, the optional event publisher (nil when
// AMQP is disabled or unreachable) and a cleanup function that is always
// safe to call.
type Result struct {
	Store     kv.Store
	Publisher ledger.Publisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
