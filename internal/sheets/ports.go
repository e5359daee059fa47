// Package sheets mirrors ledger events into a spreadsheet journal.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Ports for outbound adapters.
type (
	JournalWriter interface {
		// Append records one entry and returns a reference to where it landed.
		Append(ctx context.Context, e Entry) (rowRef string, err error)
	}

	JournalReader interface {
		// List returns the entries recorded for ownerID, oldest first.
		List(ctx context.Context, ownerID string) ([]Entry, error)
	}
)

// Entry is one journal row. Transaction fields are empty for category and
// deletion events; Name is only set for category events.
type Entry struct {
	Timestamp   time.Time
	Event       core.EventType
	OwnerID     string
	EntityID    string
	Type        core.TransactionType
	Amount      decimal.Decimal
	Description string
	Category    string
	Date        string
}

// EntryFromEvent flattens ev into a journal row, decoding its payload as a
// transaction or category depending on the event type.
func EntryFromEvent(ev core.LedgerEvent) (Entry, error) {
	e := Entry{
		Timestamp: ev.Timestamp.UTC(),
		Event:     ev.Type,
		OwnerID:   ev.OwnerID,
		EntityID:  ev.EntityID,
	}

	switch ev.Type {
	case core.EventTransactionCreated, core.EventTransactionUpdated:
		var t core.Transaction
		if err := json.Unmarshal(ev.Payload, &t); err != nil {
			return Entry{}, fmt.Errorf("decode transaction payload: %w", err)
		}
		e.Type = t.Type
		e.Amount = t.Amount
		e.Description = t.Description
		e.Category = t.Category
		e.Date = t.Date.String()
	case core.EventCategoryCreated:
		var c core.Category
		if err := json.Unmarshal(ev.Payload, &c); err != nil {
			return Entry{}, fmt.Errorf("decode category payload: %w", err)
		}
		e.Type = c.Type
		e.Category = c.Name
	case core.EventTransactionDeleted:
	default:
		return Entry{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return e, nil
}
