package memory

import (
	"context"
	"fmt"
	"sync"

	"claimdesk/internal/core"
)

// Store is an in-memory archive used in tests and local setups without a
// Google spreadsheet.
type Store struct {
	mu    sync.Mutex
	items []core.ActivityRecord
}

func New() *Store {
	return &Store{}
}

// Append stores the record and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, rec core.ActivityRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, rec)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// Items returns a copy of everything appended so far.
func (s *Store) Items() []core.ActivityRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ActivityRecord(nil), s.items...)
}
