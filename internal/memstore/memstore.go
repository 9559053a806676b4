// Package memstore provides an in-memory implementation of the report
// reader ports. It is the default data backend and the test double; the
// aggregation semantics mirror the SQLite repository exactly.
package memstore

import (
	"context"
	"sort"
	"sync"

	"claimdesk/internal/core"
	"claimdesk/internal/report"
)

type Store struct {
	mu       sync.Mutex
	claims   []core.Claim
	accounts map[string]core.Account
	activity []core.ActivityRecord
	nextID   int64
}

func New() *Store {
	return &Store{accounts: make(map[string]core.Account), nextID: 1}
}

// InsertClaim validates and stores a claim.
func (s *Store) InsertClaim(_ context.Context, c core.Claim) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims = append(s.claims, c)
	return nil
}

// InsertAccount validates and stores an account, replacing any existing one
// with the same id.
func (s *Store) InsertAccount(_ context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
	return nil
}

// RemoveAccount deletes an account; claims referencing it stay behind as
// dangling references, matching a directory-side deletion.
func (s *Store) RemoveAccount(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accounts, id)
}

// InsertActivity appends an audit entry, assigning the next identifier.
func (s *Store) InsertActivity(_ context.Context, rec core.ActivityRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID
	s.nextID++
	s.activity = append(s.activity, rec)
	return nil
}

// Record implements report.ActivitySink by writing straight to the store.
func (s *Store) Record(ctx context.Context, rec core.ActivityRecord) error {
	return s.InsertActivity(ctx, rec)
}

// CountClaims implements report.LedgerReader.
func (s *Store) CountClaims(_ context.Context, f report.ClaimFilter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.claims {
		if f.Match(c.CreatedAt) {
			n++
		}
	}
	return n, nil
}

// FindClaims implements report.LedgerReader: matching claims ordered by
// claim date descending, id ascending on equal dates.
func (s *Store) FindClaims(_ context.Context, f report.ClaimFilter) ([]core.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Claim
	for _, c := range s.claims {
		if f.Match(c.CreatedAt) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// AggregateClaims implements report.LedgerReader with a single pass over
// the matching claims.
func (s *Store) AggregateClaims(_ context.Context, agg report.ClaimAggregate) ([]report.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	grouped := make(map[string]*report.Bucket)
	for _, c := range s.claims {
		if !agg.Filter.Match(c.CreatedAt) {
			continue
		}
		key, ok := s.groupKeyLocked(agg, c)
		if !ok {
			continue
		}
		b, exists := grouped[key]
		if !exists {
			b = &report.Bucket{Key: key}
			grouped[key] = b
		}
		b.Count++
		b.Amount = b.Amount.Add(c.Amount)
	}

	out := make([]report.Bucket, 0, len(grouped))
	for _, b := range grouped {
		out = append(out, *b)
	}
	report.SortBuckets(out, agg.Sort)
	if agg.Limit > 0 && len(out) > agg.Limit {
		out = out[:agg.Limit]
	}
	return out, nil
}

// groupKeyLocked resolves a claim's bucket key. The department key is an
// inner join to the submitter account: an unresolvable submitter drops the
// claim from that aggregation only. Month and day keys derive in the
// aggregate's location.
func (s *Store) groupKeyLocked(agg report.ClaimAggregate, c core.Claim) (string, bool) {
	switch agg.Key {
	case report.GroupByStatus:
		return string(c.Status), true
	case report.GroupByDepartment:
		acct, ok := s.accounts[c.SubmitterID]
		if !ok {
			return "", false
		}
		return acct.Department, true
	case report.GroupBySubmitter:
		return c.SubmitterID, true
	case report.GroupByMonth, report.GroupByDay:
		return report.TimeBucketKey(agg.Key, c.CreatedAt, agg.Loc)
	}
	return "", false
}

// SumClaimAmounts implements report.LedgerReader: one pass, each bucket
// predicate evaluated per claim exactly once.
func (s *Store) SumClaimAmounts(_ context.Context, f report.ClaimFilter, buckets []report.AmountBucket) (map[string]core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sums := make(map[string]core.Money, len(buckets))
	for _, b := range buckets {
		sums[b.Name] = core.Money{}
	}
	for _, c := range s.claims {
		if !f.Match(c.CreatedAt) {
			continue
		}
		for _, b := range buckets {
			if !b.Window.IsZero() && !b.Window.Match(c.CreatedAt) {
				continue
			}
			if len(b.Statuses) > 0 && !statusIn(c.Status, b.Statuses) {
				continue
			}
			sums[b.Name] = sums[b.Name].Add(c.Amount)
		}
	}
	return sums, nil
}

// CountAccounts implements report.DirectoryReader.
func (s *Store) CountAccounts(_ context.Context, activeOnly bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.accounts {
		if !activeOnly || a.Active {
			n++
		}
	}
	return n, nil
}

// CountAccountsByRole implements report.DirectoryReader.
func (s *Store) CountAccountsByRole(_ context.Context, activeOnly bool) ([]report.Bucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grouped := make(map[string]int64)
	for _, a := range s.accounts {
		if !activeOnly || a.Active {
			grouped[string(a.Role)]++
		}
	}
	out := make([]report.Bucket, 0, len(grouped))
	for role, count := range grouped {
		out = append(out, report.Bucket{Key: role, Count: count})
	}
	report.SortBuckets(out, report.SortKeyAsc)
	return out, nil
}

// AccountsByID implements report.DirectoryReader.
func (s *Store) AccountsByID(_ context.Context, ids []string) (map[string]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]core.Account)
	for _, id := range ids {
		if id == "" {
			continue
		}
		if a, ok := s.accounts[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

// RecentActivity implements report.ActivityReader, newest first.
func (s *Store) RecentActivity(_ context.Context, limit int) ([]core.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.ActivityRecord(nil), s.activity...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func statusIn(status core.ClaimStatus, set []core.ClaimStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
