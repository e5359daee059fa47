package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"financas/internal/amqp"
	"financas/internal/cache"
	"financas/internal/kv"
	"financas/internal/kv/memory"
	"financas/internal/kv/sqlite"
	"financas/internal/log"
)

const cacheCleanupInterval = time.Minute

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Nop()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store    kv.Store
		cleanups []CleanupFunc
	)

	switch config.Type {
	case SQLiteBackend:
		db, err := sqlite.Open(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		store = db
		cleanups = append(cleanups, db.Close)
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.CacheSize > 0 {
		cached := cache.NewStore(store, config.CacheSize, config.CacheTTL)
		store = cached
		if config.CacheTTL > 0 {
			mgr := cache.NewManager(f.logger.WithComponent(log.ComponentCache).Logger)
			mgr.Register(cached.Cleaner())
			mgr.StartCleanup(cacheCleanupInterval)
			cleanups = append(cleanups, func() error { mgr.Stop(); return nil })
		}
		f.logger.DebugContext(ctx, "Read cache enabled",
			"size", config.CacheSize,
			"ttl", config.CacheTTL)
	}

	result := &Result{Store: store}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue,
			amqp.WithLogger(f.logger))
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events",
				log.FieldError, err.Error())
		} else {
			result.Publisher = client
			cleanups = append(cleanups, client.Close)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result.Cleanup = closeAll(cleanups)
	return result, nil
}

// closeAll runs cleanups in reverse order and joins their errors.
func closeAll(cleanups []CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
