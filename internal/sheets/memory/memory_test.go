package memory

import (
	"context"
	"testing"
	"time"

	"claimdesk/internal/core"
)

func TestMemoryStoreAppend(t *testing.T) {
	s := New()

	rec := core.ActivityRecord{
		Action:     "view",
		ActorID:    "u-1",
		ActorName:  "Alice",
		ActorRole:  "admin",
		EntityType: "system",
		EntityID:   "reports",
		Details:    "Viewed system summary report",
		Timestamp:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	ref, err := s.Append(context.Background(), rec)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected append: ref=%q err=%v", ref, err)
	}

	ref, err = s.Append(context.Background(), core.ActivityRecord{Action: "export"})
	if err != nil || ref != "mem:2" {
		t.Fatalf("unexpected second append: ref=%q err=%v", ref, err)
	}

	items := s.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Details != rec.Details {
		t.Errorf("items[0].Details = %q, want %q", items[0].Details, rec.Details)
	}

	// Items returns a copy, mutating it must not affect the store.
	items[0].Action = "mutated"
	if got := s.Items()[0].Action; got != "view" {
		t.Errorf("store mutated through returned slice: %q", got)
	}
}
