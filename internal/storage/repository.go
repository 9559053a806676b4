package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"claimdesk/internal/core"
	"claimdesk/internal/report"

	_ "modernc.org/sqlite"
)

// Timestamps are stored as fixed-width UTC text so range comparisons stay
// lexicographic and strftime bucketing is exact.
const timeLayout = "2006-01-02 15:04:05"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Ping verifies the database connection, used by readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertClaim validates and stores a claim.
func (r *SQLiteRepository) InsertClaim(ctx context.Context, c core.Claim) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO claims (
			id, claim_date, amount_cents, currency, category, description,
			status, submitter_id, approver_id, rejecter_id, payer_id,
			approved_at, rejected_at, paid_at, payment_reference, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, fmtTime(c.Date), c.Amount.Cents, c.Currency, c.Category, c.Description,
		string(c.Status), c.SubmitterID, c.ApproverID, c.RejecterID, c.PayerID,
		fmtTimePtr(c.ApprovedAt), fmtTimePtr(c.RejectedAt), fmtTimePtr(c.PaidAt),
		c.PaymentReference, c.Notes, fmtTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert claim %s: %w", c.ID, err)
	}
	return nil
}

// InsertAccount validates and stores an account, replacing an existing row
// with the same id.
func (r *SQLiteRepository) InsertAccount(ctx context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO accounts (id, name, role, department, employee_id, active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, string(a.Role), a.Department, a.EmployeeID, boolInt(a.Active))
	if err != nil {
		return fmt.Errorf("insert account %s: %w", a.ID, err)
	}
	return nil
}

// InsertActivity appends an audit entry. A zero timestamp is stamped with
// the current time.
func (r *SQLiteRepository) InsertActivity(ctx context.Context, rec core.ActivityRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (
			action, actor_id, actor_name, actor_role, entity_type, entity_id,
			details, ip_address, user_agent, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Action, rec.ActorID, rec.ActorName, rec.ActorRole, rec.EntityType,
		rec.EntityID, rec.Details, rec.IPAddress, rec.UserAgent, fmtTime(rec.Timestamp))
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	slog.DebugContext(ctx, "Audit entry persisted", "action", rec.Action, "entity_type", rec.EntityType)
	return nil
}

// Record implements report.ActivitySink by writing straight to the audit
// table; used when no broker is configured.
func (r *SQLiteRepository) Record(ctx context.Context, rec core.ActivityRecord) error {
	return r.InsertActivity(ctx, rec)
}

// CountClaims implements report.LedgerReader.
func (r *SQLiteRepository) CountClaims(ctx context.Context, f report.ClaimFilter) (int64, error) {
	where, args := claimWhere(f, "")
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM claims"+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count claims: %w", err)
	}
	return n, nil
}

// FindClaims implements report.LedgerReader: claim date descending, id
// ascending on ties.
func (r *SQLiteRepository) FindClaims(ctx context.Context, f report.ClaimFilter) ([]core.Claim, error) {
	where, args := claimWhere(f, "")
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, claim_date, amount_cents, currency, category, description,
			status, submitter_id, approver_id, rejecter_id, payer_id,
			approved_at, rejected_at, paid_at, payment_reference, notes, created_at
		FROM claims`+where+` ORDER BY claim_date DESC, id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("find claims: %w", err)
	}
	defer rows.Close()

	var out []core.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("find claims: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find claims: %w", err)
	}
	return out, nil
}

// AggregateClaims implements report.LedgerReader. Categorical groupings
// and sorting run store-side; month and day buckets are keyed in the
// aggregate's location, which the stored UTC text cannot express, so those
// are grouped from the fetched timestamps instead.
func (r *SQLiteRepository) AggregateClaims(ctx context.Context, agg report.ClaimAggregate) ([]report.Bucket, error) {
	var (
		keyExpr   string
		from      = "claims"
		amountCol = "amount_cents"
		wherePfx  = ""
	)
	switch agg.Key {
	case report.GroupByStatus:
		keyExpr = "status"
	case report.GroupByDepartment:
		// inner join: claims with unresolvable submitters drop out of this
		// aggregation only
		keyExpr = "a.department"
		from = "claims c JOIN accounts a ON a.id = c.submitter_id"
		amountCol = "c.amount_cents"
		wherePfx = "c."
	case report.GroupBySubmitter:
		keyExpr = "submitter_id"
	case report.GroupByMonth, report.GroupByDay:
		return r.aggregateByTime(ctx, agg)
	default:
		return nil, fmt.Errorf("aggregate claims: unsupported group key %q", agg.Key)
	}

	order := "grp ASC"
	switch agg.Sort {
	case report.SortCountDesc:
		order = "cnt DESC, grp ASC"
	case report.SortAmountDesc:
		order = "total DESC, grp ASC"
	}

	where, args := claimWhere(agg.Filter, wherePfx)
	query := "SELECT " + keyExpr + " AS grp, COUNT(*) AS cnt, COALESCE(SUM(" + amountCol + "), 0) AS total FROM " +
		from + where + " GROUP BY grp ORDER BY " + order
	if agg.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, agg.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate claims by %s: %w", agg.Key, err)
	}
	defer rows.Close()

	var out []report.Bucket
	for rows.Next() {
		var b report.Bucket
		var amount int64
		if err := rows.Scan(&b.Key, &b.Count, &amount); err != nil {
			return nil, fmt.Errorf("aggregate claims by %s: %w", agg.Key, err)
		}
		b.Amount = core.Money{Cents: amount}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate claims by %s: %w", agg.Key, err)
	}
	return out, nil
}

// aggregateByTime buckets claims by month or day of their creation time in
// the aggregate's location. The window filter still runs store-side; the
// bucket key cannot, because it depends on a timezone conversion the
// fixed-width UTC text does not carry.
func (r *SQLiteRepository) aggregateByTime(ctx context.Context, agg report.ClaimAggregate) ([]report.Bucket, error) {
	where, args := claimWhere(agg.Filter, "")
	rows, err := r.db.QueryContext(ctx,
		"SELECT created_at, amount_cents FROM claims"+where, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate claims by %s: %w", agg.Key, err)
	}
	defer rows.Close()

	grouped := make(map[string]*report.Bucket)
	for rows.Next() {
		var stamp string
		var cents int64
		if err := rows.Scan(&stamp, &cents); err != nil {
			return nil, fmt.Errorf("aggregate claims by %s: %w", agg.Key, err)
		}
		created, err := parseTime(stamp)
		if err != nil {
			return nil, fmt.Errorf("aggregate claims by %s: %w", agg.Key, err)
		}
		key, ok := report.TimeBucketKey(agg.Key, created, agg.Loc)
		if !ok {
			return nil, fmt.Errorf("aggregate claims: unsupported group key %q", agg.Key)
		}
		b, exists := grouped[key]
		if !exists {
			b = &report.Bucket{Key: key}
			grouped[key] = b
		}
		b.Count++
		b.Amount = b.Amount.Add(core.Money{Cents: cents})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate claims by %s: %w", agg.Key, err)
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

// SumClaimAmounts implements report.LedgerReader as a single SELECT with
// one conditional sum per bucket, so the store walks the claims once.
func (r *SQLiteRepository) SumClaimAmounts(ctx context.Context, f report.ClaimFilter, buckets []report.AmountBucket) (map[string]core.Money, error) {
	if len(buckets) == 0 {
		return map[string]core.Money{}, nil
	}

	selects := make([]string, len(buckets))
	var selectArgs []any
	for i, b := range buckets {
		var conds []string
		if !b.Window.From.IsZero() {
			conds = append(conds, "created_at >= ?")
			selectArgs = append(selectArgs, fmtTime(b.Window.From))
		}
		if !b.Window.To.IsZero() {
			conds = append(conds, "created_at < ?")
			selectArgs = append(selectArgs, fmtTime(b.Window.To))
		}
		if len(b.Statuses) > 0 {
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(b.Statuses)), ",")
			conds = append(conds, "status IN ("+placeholders+")")
			for _, s := range b.Statuses {
				selectArgs = append(selectArgs, string(s))
			}
		}
		if len(conds) == 0 {
			selects[i] = "COALESCE(SUM(amount_cents), 0)"
		} else {
			selects[i] = "COALESCE(SUM(CASE WHEN " + strings.Join(conds, " AND ") + " THEN amount_cents ELSE 0 END), 0)"
		}
	}

	where, whereArgs := claimWhere(f, "")
	query := "SELECT " + strings.Join(selects, ", ") + " FROM claims" + where
	args := append(selectArgs, whereArgs...)

	sums := make([]int64, len(buckets))
	dest := make([]any, len(buckets))
	for i := range sums {
		dest[i] = &sums[i]
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		return nil, fmt.Errorf("sum claim amounts: %w", err)
	}

	out := make(map[string]core.Money, len(buckets))
	for i, b := range buckets {
		out[b.Name] = core.Money{Cents: sums[i]}
	}
	return out, nil
}

// CountAccounts implements report.DirectoryReader.
func (r *SQLiteRepository) CountAccounts(ctx context.Context, activeOnly bool) (int64, error) {
	query := "SELECT COUNT(*) FROM accounts"
	if activeOnly {
		query += " WHERE active = 1"
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// CountAccountsByRole implements report.DirectoryReader.
func (r *SQLiteRepository) CountAccountsByRole(ctx context.Context, activeOnly bool) ([]report.Bucket, error) {
	query := "SELECT role, COUNT(*) FROM accounts"
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " GROUP BY role ORDER BY role ASC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count accounts by role: %w", err)
	}
	defer rows.Close()

	var out []report.Bucket
	for rows.Next() {
		var b report.Bucket
		if err := rows.Scan(&b.Key, &b.Count); err != nil {
			return nil, fmt.Errorf("count accounts by role: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count accounts by role: %w", err)
	}
	return out, nil
}

// AccountsByID implements report.DirectoryReader with one batched lookup.
func (r *SQLiteRepository) AccountsByID(ctx context.Context, ids []string) (map[string]core.Account, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return map[string]core.Account{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(unique)), ",")
	args := make([]any, len(unique))
	for i, id := range unique {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, role, department, employee_id, active
		FROM accounts WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("accounts by id: %w", err)
	}
	defer rows.Close()

	out := make(map[string]core.Account, len(unique))
	for rows.Next() {
		var a core.Account
		var role string
		var active int64
		if err := rows.Scan(&a.ID, &a.Name, &role, &a.Department, &a.EmployeeID, &active); err != nil {
			return nil, fmt.Errorf("accounts by id: %w", err)
		}
		a.Role = core.Role(role)
		a.Active = active != 0
		out[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("accounts by id: %w", err)
	}
	return out, nil
}

// RecentActivity implements report.ActivityReader, newest first.
func (r *SQLiteRepository) RecentActivity(ctx context.Context, limit int) ([]core.ActivityRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, actor_id, actor_name, actor_role, entity_type,
			entity_id, details, ip_address, user_agent, recorded_at
		FROM audit_log ORDER BY recorded_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	defer rows.Close()

	var out []core.ActivityRecord
	for rows.Next() {
		var rec core.ActivityRecord
		var stamp string
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.ActorID, &rec.ActorName,
			&rec.ActorRole, &rec.EntityType, &rec.EntityID, &rec.Details,
			&rec.IPAddress, &rec.UserAgent, &stamp); err != nil {
			return nil, fmt.Errorf("recent activity: %w", err)
		}
		rec.Timestamp, err = parseTime(stamp)
		if err != nil {
			return nil, fmt.Errorf("recent activity: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return out, nil
}

// claimWhere builds the created_at range predicate for a filter. The column
// prefix qualifies the column when the query joins another table.
func claimWhere(f report.ClaimFilter, prefix string) (string, []any) {
	var conds []string
	var args []any
	if !f.From.IsZero() {
		conds = append(conds, prefix+"created_at >= ?")
		args = append(args, fmtTime(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, prefix+"created_at < ?")
		args = append(args, fmtTime(f.To))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (core.Claim, error) {
	var (
		c                              core.Claim
		claimDate, createdAt, status   string
		approvedAt, rejectedAt, paidAt sql.NullString
	)
	err := row.Scan(&c.ID, &claimDate, &c.Amount.Cents, &c.Currency, &c.Category,
		&c.Description, &status, &c.SubmitterID, &c.ApproverID, &c.RejecterID,
		&c.PayerID, &approvedAt, &rejectedAt, &paidAt, &c.PaymentReference,
		&c.Notes, &createdAt)
	if err != nil {
		return core.Claim{}, err
	}
	c.Status = core.ClaimStatus(status)
	if c.Date, err = parseTime(claimDate); err != nil {
		return core.Claim{}, err
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Claim{}, err
	}
	if c.ApprovedAt, err = parseTimePtr(approvedAt); err != nil {
		return core.Claim{}, err
	}
	if c.RejectedAt, err = parseTimePtr(rejectedAt); err != nil {
		return core.Claim{}, err
	}
	if c.PaidAt, err = parseTimePtr(paidAt); err != nil {
		return core.Claim{}, err
	}
	return c, nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func fmtTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, s, time.UTC)
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
