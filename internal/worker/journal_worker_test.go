package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
	"financas/internal/sheets"
	"financas/internal/sheets/memory"
)

type failingJournal struct{ err error }

func (f failingJournal) Append(context.Context, sheets.Entry) (string, error) { return "", f.err }

func transactionEvent(t *testing.T, typ core.EventType, id string) core.LedgerEvent {
	t.Helper()
	payload, err := json.Marshal(core.Transaction{
		ID:          id,
		Type:        core.Expense,
		Amount:      decimal.NewFromInt(200),
		Description: "Mercado",
		Category:    "Alimentação",
		Date:        core.NewDate(2024, 1, 6),
	})
	if err != nil {
		t.Fatal(err)
	}
	return core.LedgerEvent{
		Type:      typ,
		OwnerID:   "u1",
		EntityID:  id,
		Payload:   payload,
		Timestamp: time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC),
	}
}

func TestHandleEvent_AppendsRow(t *testing.T) {
	ctx := context.Background()
	journal := memory.New()
	w := NewJournalWorker(journal)

	if err := w.HandleEvent(ctx, transactionEvent(t, core.EventTransactionCreated, "t1")); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	entries, _ := journal.List(ctx, "u1")
	if len(entries) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(entries))
	}
	if entries[0].Description != "Mercado" || !entries[0].Amount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("unexpected entry %+v", entries[0])
	}
	if got := w.Stats(); got.Appended != 1 {
		t.Errorf("Stats() = %+v", got)
	}
}

func TestHandleEvent_SkipsRedelivery(t *testing.T) {
	ctx := context.Background()
	journal := memory.New()
	w := NewJournalWorker(journal, WithDedupWindow(16, time.Minute))

	ev := transactionEvent(t, core.EventTransactionUpdated, "t1")
	for i := 0; i < 3; i++ {
		if err := w.HandleEvent(ctx, ev); err != nil {
			t.Fatalf("HandleEvent() error = %v", err)
		}
	}

	if journal.Len() != 1 {
		t.Fatalf("expected a single row, got %d", journal.Len())
	}
	if got := w.Stats(); got.Appended != 1 || got.Duplicate != 2 {
		t.Errorf("Stats() = %+v", got)
	}

	later := ev
	later.Timestamp = ev.Timestamp.Add(time.Second)
	_ = w.HandleEvent(ctx, later)
	if journal.Len() != 2 {
		t.Fatalf("a later update of the same entity must be recorded, got %d rows", journal.Len())
	}
}

func TestHandleEvent_DropsUndecodable(t *testing.T) {
	journal := memory.New()
	w := NewJournalWorker(journal)

	ev := core.LedgerEvent{Type: core.EventTransactionCreated, OwnerID: "u1", EntityID: "t1", Payload: json.RawMessage(`[]`)}
	if err := w.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("undecodable events should be dropped, got %v", err)
	}
	if journal.Len() != 0 {
		t.Fatalf("nothing should be written")
	}
	if got := w.Stats(); got.Dropped != 1 {
		t.Errorf("Stats() = %+v", got)
	}
}

func TestHandleEvent_WriteFailureIsReturned(t *testing.T) {
	boom := errors.New("quota exceeded")
	w := NewJournalWorker(failingJournal{err: boom})

	ev := transactionEvent(t, core.EventTransactionCreated, "t1")
	err := w.HandleEvent(context.Background(), ev)
	if !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}

	// A failed write must not be remembered, so the redelivery is retried.
	if err := w.HandleEvent(context.Background(), ev); !errors.Is(err, boom) {
		t.Fatalf("expected retry to reach the journal, got %v", err)
	}
	if got := w.Stats(); got.Failed != 2 || got.Duplicate != 0 {
		t.Errorf("Stats() = %+v", got)
	}
}
