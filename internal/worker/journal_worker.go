// Package worker turns consumed ledger events into journal rows.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/sheets"
)

const (
	defaultSeenSize = 1024
	defaultSeenTTL  = time.Hour
)

// Stats counts what the worker did since it started.
type Stats struct {
	Appended  int64
	Duplicate int64
	Dropped   int64
	Failed    int64
}

// JournalWorker appends one journal row per ledger event. Redelivered events
// (same type, entity and timestamp) seen recently are skipped.
type JournalWorker struct {
	journal sheets.JournalWriter
	logger  *log.Logger
	seen    *cache.LRUCache[string, struct{}]

	appended  atomic.Int64
	duplicate atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

type Option func(*JournalWorker)

func WithLogger(l *log.Logger) Option {
	return func(w *JournalWorker) { w.logger = l.WithComponent(log.ComponentWorker) }
}

// WithDedupWindow sizes the memory of recently processed events.
func WithDedupWindow(size int, ttl time.Duration) Option {
	return func(w *JournalWorker) { w.seen = cache.NewLRUCache[string, struct{}](size, ttl) }
}

func NewJournalWorker(journal sheets.JournalWriter, opts ...Option) *JournalWorker {
	w := &JournalWorker{
		journal: journal,
		logger:  log.Nop(),
		seen:    cache.NewLRUCache[string, struct{}](defaultSeenSize, defaultSeenTTL),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleEvent records ev. Events whose payload cannot be decoded are logged
// and dropped; a journal write failure is returned so the message is
// redelivered.
func (w *JournalWorker) HandleEvent(ctx context.Context, ev core.LedgerEvent) error {
	key := eventKey(ev)
	if _, ok := w.seen.Get(key); ok {
		w.duplicate.Add(1)
		w.logger.DebugContext(ctx, "Skipping duplicate ledger event",
			log.FieldEventType, string(ev.Type),
			"entity_id", ev.EntityID)
		return nil
	}

	entry, err := sheets.EntryFromEvent(ev)
	if err != nil {
		w.dropped.Add(1)
		w.logger.ErrorContext(ctx, "Dropping undecodable ledger event",
			log.FieldEventType, string(ev.Type),
			log.FieldUserID, ev.OwnerID,
			log.FieldError, err.Error())
		return nil
	}

	ref, err := w.journal.Append(ctx, entry)
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("append journal row: %w", err)
	}
	w.seen.Set(key, struct{}{})
	w.appended.Add(1)

	w.logger.InfoContext(ctx, "Journal row appended",
		log.FieldOperation, log.OpAppend,
		log.FieldEventType, string(ev.Type),
		log.FieldUserID, ev.OwnerID,
		log.FieldSheetsRef, ref)
	return nil
}

// Cleaner exposes the dedup window to a cache.Manager for periodic expiry.
func (w *JournalWorker) Cleaner() cache.Cleaner {
	return w.seen
}

func (w *JournalWorker) Stats() Stats {
	return Stats{
		Appended:  w.appended.Load(),
		Duplicate: w.duplicate.Load(),
		Dropped:   w.dropped.Load(),
		Failed:    w.failed.Load(),
	}
}

func eventKey(ev core.LedgerEvent) string {
	return fmt.Sprintf("%s|%s|%s|%d", ev.Type, ev.OwnerID, ev.EntityID, ev.Timestamp.UnixNano())
}
