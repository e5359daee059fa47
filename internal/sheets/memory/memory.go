package memory

import (
	"context"
	"fmt"
	"sync"

	"financas/internal/sheets"
)

// Store keeps journal entries in memory. It stands in for the spreadsheet in
// tests and when no spreadsheet is configured.
type Store struct {
	mu    sync.Mutex
	items []sheets.Entry
}

var (
	_ sheets.JournalWriter = (*Store)(nil)
	_ sheets.JournalReader = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// Append stores the entry and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e sheets.Entry) (string, error) {
	if e.OwnerID == "" || e.Event == "" {
		return "", fmt.Errorf("incomplete journal entry: event=%q owner=%q", e.Event, e.OwnerID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

func (s *Store) List(_ context.Context, ownerID string) ([]sheets.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sheets.Entry
	for _, e := range s.items {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
