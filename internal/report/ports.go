package report

import (
	"context"
	"time"

	"claimdesk/internal/core"
)

// Group keys accepted by LedgerReader.AggregateClaims.
const (
	GroupByStatus     GroupKey = "status"
	GroupByDepartment GroupKey = "department"
	GroupBySubmitter  GroupKey = "submitter"
	GroupByMonth      GroupKey = "month"
	GroupByDay        GroupKey = "day"
)

const (
	SortCountDesc  SortOrder = "count_desc"
	SortAmountDesc SortOrder = "amount_desc"
	SortKeyAsc     SortOrder = "key_asc"
)

type (
	GroupKey  string
	SortOrder string

	// ClaimFilter selects claims by creation time. From is inclusive, To is
	// exclusive; a zero value leaves that side unbounded.
	ClaimFilter struct {
		From time.Time
		To   time.Time
	}

	// ClaimAggregate describes one group-by aggregation over the ledger.
	// GroupByDepartment is an inner join to the submitter account: claims
	// whose submitter cannot be resolved do not appear in the result.
	// GroupByMonth and GroupByDay bucket on the creation timestamp and
	// yield sparse results (only buckets with at least one claim); their
	// keys are derived in Loc, which must be the location the report
	// window was built in. A nil Loc means UTC.
	ClaimAggregate struct {
		Filter ClaimFilter
		Key    GroupKey
		Sort   SortOrder
		Limit  int // 0 means no limit
		Loc    *time.Location
	}

	// Bucket is one group-by result row. Equal sort values fall back to
	// ascending key order so results are deterministic.
	Bucket struct {
		Key    string
		Count  int64
		Amount core.Money
	}

	// AmountBucket names one conditional sum. A claim contributes its amount
	// when its status is in Statuses (empty set means any status) and its
	// creation time falls inside Window (zero window means any time).
	AmountBucket struct {
		Name     string
		Statuses []core.ClaimStatus
		Window   ClaimFilter
	}

	// Actor identifies the caller on whose behalf a report runs.
	Actor struct {
		ID        string
		Name      string
		Role      string
		IPAddress string
		UserAgent string
	}
)

// Match reports whether a creation timestamp falls inside the filter.
func (f ClaimFilter) Match(t time.Time) bool {
	if !f.From.IsZero() && t.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !t.Before(f.To) {
		return false
	}
	return true
}

// IsZero reports whether the filter is unbounded on both sides.
func (f ClaimFilter) IsZero() bool {
	return f.From.IsZero() && f.To.IsZero()
}

// LedgerReader is the read-only surface of the claims store.
type LedgerReader interface {
	CountClaims(ctx context.Context, f ClaimFilter) (int64, error)

	// FindClaims returns matching claims ordered by claim date descending.
	FindClaims(ctx context.Context, f ClaimFilter) ([]core.Claim, error)

	AggregateClaims(ctx context.Context, agg ClaimAggregate) ([]Bucket, error)

	// SumClaimAmounts evaluates every bucket in a single pass over the claims
	// selected by f; each bucket predicate is tested per claim exactly once.
	// The result has an entry for every requested bucket name, zero when no
	// claim matched.
	SumClaimAmounts(ctx context.Context, f ClaimFilter, buckets []AmountBucket) (map[string]core.Money, error)
}

// DirectoryReader is the read-only surface of the account store.
type DirectoryReader interface {
	CountAccounts(ctx context.Context, activeOnly bool) (int64, error)

	// CountAccountsByRole returns per-role account counts ordered by key.
	CountAccountsByRole(ctx context.Context, activeOnly bool) ([]Bucket, error)

	// AccountsByID resolves a batch of account ids; unknown ids are simply
	// absent from the result.
	AccountsByID(ctx context.Context, ids []string) (map[string]core.Account, error)
}

// ActivityReader is the read-only surface of the audit trail.
type ActivityReader interface {
	// RecentActivity returns the most recent entries, newest first.
	RecentActivity(ctx context.Context, limit int) ([]core.ActivityRecord, error)
}

// ActivitySink records a user action. Implementations may be asynchronous;
// callers treat failures as non-fatal.
type ActivitySink interface {
	Record(ctx context.Context, rec core.ActivityRecord) error
}
