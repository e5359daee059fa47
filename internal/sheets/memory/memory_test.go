package memory

import (
	"context"
	"testing"

	"financas/internal/core"
	"financas/internal/sheets"
)

func TestMemoryStoreAppendAndList(t *testing.T) {
	ctx := context.Background()
	s := New()

	ref, err := s.Append(ctx, sheets.Entry{Event: core.EventTransactionCreated, OwnerID: "u1", EntityID: "t1"})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}
	ref, err = s.Append(ctx, sheets.Entry{Event: core.EventCategoryCreated, OwnerID: "u2", EntityID: "c1"})
	if err != nil || ref != "mem:2" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	got, err := s.List(ctx, "u1")
	if err != nil || len(got) != 1 || got[0].EntityID != "t1" {
		t.Fatalf("unexpected list: %+v err=%v", got, err)
	}
	if empty, _ := s.List(ctx, "nobody"); len(empty) != 0 {
		t.Fatalf("expected no entries, got %+v", empty)
	}
}

func TestMemoryStoreRejectsIncompleteEntry(t *testing.T) {
	s := New()
	if _, err := s.Append(context.Background(), sheets.Entry{Event: core.EventTransactionDeleted}); err == nil {
		t.Fatal("expected error for entry without owner")
	}
	if s.Len() != 0 {
		t.Fatalf("incomplete entry stored")
	}
}
