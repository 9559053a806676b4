package report

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"claimdesk/internal/core"
	"claimdesk/internal/log"
)

// Conditional-sum bucket names used by the assembler.
const (
	bucketTotal    = "total"
	bucketMonthly  = "monthly"
	bucketYearly   = "yearly"
	bucketApproved = "approved"
	bucketPaid     = "paid"
	bucketPending  = "pending"
)

const recentActivityLimit = 10

const topContributorLimit = 10

// Generator composes report payloads from the three read-only stores. All
// reads are point-in-time snapshots; the generator itself holds no state
// between requests.
type Generator struct {
	ledger    LedgerReader
	directory DirectoryReader
	activity  ActivityReader
	sink      ActivitySink
	loc       *time.Location
	logger    *log.Logger

	now func() time.Time
}

func NewGenerator(ledger LedgerReader, directory DirectoryReader, activity ActivityReader, sink ActivitySink, loc *time.Location, logger *log.Logger) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentReport)
	}
	return &Generator{
		ledger:    ledger,
		directory: directory,
		activity:  activity,
		sink:      sink,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}
}

// Summary builds the system-wide summary report: account totals by role,
// lifetime/month-to-date/year-to-date claim and amount rollups, status and
// department breakdowns, the current year's dense monthly trend and the most
// recent audit entries. The independent sub-queries run concurrently; any
// failure aborts the whole report.
func (g *Generator) Summary(ctx context.Context, actor Actor) (*SummaryReport, error) {
	now := g.now().In(g.loc)
	mtd := MonthToDate(now).Filter()
	ytd := YearToDate(now).Filter()

	var (
		totalUsers    int64
		byRole        []Bucket
		totalClaims   int64
		monthlyClaims int64
		yearlyClaims  int64
		sums          map[string]core.Money
		byStatus      []Bucket
		byDepartment  []Bucket
		trend         []Bucket
		recent        []core.ActivityRecord
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		totalUsers, err = g.directory.CountAccounts(ctx, true)
		return err
	})
	eg.Go(func() (err error) {
		byRole, err = g.directory.CountAccountsByRole(ctx, true)
		return err
	})
	eg.Go(func() (err error) {
		totalClaims, err = g.ledger.CountClaims(ctx, ClaimFilter{})
		return err
	})
	eg.Go(func() (err error) {
		monthlyClaims, err = g.ledger.CountClaims(ctx, mtd)
		return err
	})
	eg.Go(func() (err error) {
		yearlyClaims, err = g.ledger.CountClaims(ctx, ytd)
		return err
	})
	eg.Go(func() (err error) {
		sums, err = g.ledger.SumClaimAmounts(ctx, ClaimFilter{}, []AmountBucket{
			{Name: bucketTotal},
			{Name: bucketMonthly, Window: mtd},
			{Name: bucketYearly, Window: ytd},
		})
		return err
	})
	eg.Go(func() (err error) {
		byStatus, err = g.ledger.AggregateClaims(ctx, ClaimAggregate{Key: GroupByStatus, Sort: SortCountDesc})
		return err
	})
	eg.Go(func() (err error) {
		byDepartment, err = g.ledger.AggregateClaims(ctx, ClaimAggregate{Key: GroupByDepartment, Sort: SortAmountDesc})
		return err
	})
	eg.Go(func() (err error) {
		trend, err = g.ledger.AggregateClaims(ctx, ClaimAggregate{Filter: ytd, Key: GroupByMonth, Sort: SortKeyAsc, Loc: g.loc})
		return err
	})
	eg.Go(func() (err error) {
		recent, err = g.activity.RecentActivity(ctx, recentActivityLimit)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("summary report: %w", err)
	}

	summary := &SummaryReport{
		Users: UserStats{
			Total:  totalUsers,
			ByRole: bucketCounts(byRole),
		},
		Claims: ClaimCounts{
			Total:   totalClaims,
			Monthly: monthlyClaims,
			Yearly:  yearlyClaims,
		},
		Financial: FinancialTotals{
			TotalAmountCents:   sums[bucketTotal].Cents,
			MonthlyAmountCents: sums[bucketMonthly].Cents,
			YearlyAmountCents:  sums[bucketYearly].Cents,
		},
		ClaimsByStatus:     breakdownRows(byStatus),
		ClaimsByDepartment: breakdownRows(byDepartment),
		MonthlyTrend:       DensifyMonths(trend),
		RecentActivity:     activityEntries(recent),
	}

	g.recordActivity(ctx, actor, "view", "system", "reports", "Viewed system summary report")
	return summary, nil
}

// Monthly builds the detailed report for one calendar month: windowed
// totals split by status bucket, the month's claims joined with submitter
// display fields, the top contributors by amount and a dense daily trend
// sized to the month's actual length.
func (g *Generator) Monthly(ctx context.Context, actor Actor, year, month int) (*MonthlyReport, error) {
	window := MonthWindow(year, month, g.loc)
	f := window.Filter()

	var (
		count  int64
		sums   map[string]core.Money
		claims []core.Claim
		byUser []Bucket
		daily  []Bucket
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		count, err = g.ledger.CountClaims(ctx, f)
		return err
	})
	eg.Go(func() (err error) {
		sums, err = g.ledger.SumClaimAmounts(ctx, f, []AmountBucket{
			{Name: bucketTotal},
			{Name: bucketApproved, Statuses: []core.ClaimStatus{core.StatusApproved}},
			{Name: bucketPaid, Statuses: []core.ClaimStatus{core.StatusPaid}},
			{Name: bucketPending, Statuses: core.PendingStatuses()},
		})
		return err
	})
	eg.Go(func() (err error) {
		claims, err = g.ledger.FindClaims(ctx, f)
		return err
	})
	eg.Go(func() (err error) {
		byUser, err = g.ledger.AggregateClaims(ctx, ClaimAggregate{
			Filter: f,
			Key:    GroupBySubmitter,
			Sort:   SortAmountDesc,
			Limit:  topContributorLimit,
		})
		return err
	})
	eg.Go(func() (err error) {
		daily, err = g.ledger.AggregateClaims(ctx, ClaimAggregate{Filter: f, Key: GroupByDay, Sort: SortKeyAsc, Loc: g.loc})
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("monthly report %d-%02d: %w", year, month, err)
	}

	ids := make([]string, 0, len(claims)+len(byUser))
	for _, c := range claims {
		ids = append(ids, c.SubmitterID)
	}
	for _, b := range byUser {
		ids = append(ids, b.Key)
	}
	accounts, err := g.directory.AccountsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("monthly report %d-%02d: resolve submitters: %w", year, month, err)
	}

	rows := make([]ClaimRow, len(claims))
	for i, c := range claims {
		rows[i] = claimRow(c, accounts[c.SubmitterID])
	}

	contributors := make([]ContributorRow, len(byUser))
	for i, b := range byUser {
		contributors[i] = contributorRow(b, accounts)
	}

	rep := &MonthlyReport{
		Period: Period{
			Year:      year,
			Month:     month,
			MonthName: MonthName(month),
			Start:     window.Start,
			End:       window.End,
		},
		Summary: MonthlySummary{
			TotalClaims:         count,
			TotalAmountCents:    sums[bucketTotal].Cents,
			ApprovedAmountCents: sums[bucketApproved].Cents,
			PaidAmountCents:     sums[bucketPaid].Cents,
			PendingAmountCents:  sums[bucketPending].Cents,
		},
		Claims:       rows,
		ClaimsByUser: contributors,
		DailyTrend:   DensifyDays(year, month, daily),
	}

	g.recordActivity(ctx, actor, "view", "system", "reports",
		fmt.Sprintf("Viewed monthly report for %d-%d", year, month))
	return rep, nil
}

// Export builds the flat export table for an optional creation-date range:
// one row per claim, actor references resolved to display names in a single
// batched directory lookup. A claim whose referenced accounts are missing
// keeps its row with empty name fields. The requested format only shapes
// the audit detail; rendering is the caller's concern.
func (g *Generator) Export(ctx context.Context, actor Actor, f ClaimFilter, format string) ([]ExportRow, error) {
	claims, err := g.ledger.FindClaims(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("export report: %w", err)
	}

	ids := make([]string, 0, len(claims)*4)
	for _, c := range claims {
		ids = append(ids, c.SubmitterID, c.ApproverID, c.RejecterID, c.PayerID)
	}
	accounts, err := g.directory.AccountsByID(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("export report: resolve accounts: %w", err)
	}

	rows := make([]ExportRow, len(claims))
	for i, c := range claims {
		rows[i] = exportRow(c, accounts)
	}

	if format == "" {
		format = "csv"
	}
	g.recordActivity(ctx, actor, "export", "system", "reports",
		fmt.Sprintf("Exported claims data in %s format", format))
	return rows, nil
}

// recordActivity pushes an audit entry through the sink. Sink failures are
// logged and swallowed; they never fail the report request.
func (g *Generator) recordActivity(ctx context.Context, actor Actor, action, entityType, entityID, details string) {
	if g.sink == nil {
		return
	}
	rec := core.ActivityRecord{
		Action:     action,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		ActorRole:  actor.Role,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
		Timestamp:  g.now().In(g.loc),
	}
	if err := g.sink.Record(ctx, rec); err != nil {
		g.logger.WarnContext(ctx, "Failed to record activity",
			log.FieldError, err,
			log.FieldOperation, log.OpRecord,
			"action", action,
			log.FieldActorID, actor.ID)
	}
}

func bucketCounts(buckets []Bucket) map[string]int64 {
	out := make(map[string]int64, len(buckets))
	for _, b := range buckets {
		out[b.Key] = b.Count
	}
	return out
}

func breakdownRows(buckets []Bucket) []BreakdownRow {
	rows := make([]BreakdownRow, len(buckets))
	for i, b := range buckets {
		rows[i] = BreakdownRow{Key: b.Key, Count: b.Count, AmountCents: b.Amount.Cents}
	}
	return rows
}

func activityEntries(recs []core.ActivityRecord) []ActivityEntry {
	entries := make([]ActivityEntry, len(recs))
	for i, r := range recs {
		entries[i] = ActivityEntry{
			Action:     r.Action,
			ActorName:  r.ActorName,
			ActorRole:  r.ActorRole,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Details:    r.Details,
			Timestamp:  r.Timestamp,
		}
	}
	return entries
}

func claimRow(c core.Claim, submitter core.Account) ClaimRow {
	return ClaimRow{
		ID:                  c.ID,
		Date:                c.Date,
		AmountCents:         c.Amount.Cents,
		Currency:            c.Currency,
		Category:            c.Category,
		Description:         c.Description,
		Status:              c.Status,
		SubmitterName:       submitter.Name,
		SubmitterDepartment: submitter.Department,
		SubmitterEmployeeID: submitter.EmployeeID,
		CreatedAt:           c.CreatedAt,
	}
}

func contributorRow(b Bucket, accounts map[string]core.Account) ContributorRow {
	row := ContributorRow{
		AccountID:   b.Key,
		Count:       b.Count,
		AmountCents: b.Amount.Cents,
	}
	if acct, ok := accounts[b.Key]; ok {
		row.Name = acct.Name
		row.Department = acct.Department
		row.EmployeeID = acct.EmployeeID
	} else {
		row.Name = "Unknown User"
	}
	return row
}

func exportRow(c core.Claim, accounts map[string]core.Account) ExportRow {
	submitter := accounts[c.SubmitterID]
	return ExportRow{
		ClaimID:          c.ID,
		Date:             c.Date,
		EmployeeID:       submitter.EmployeeID,
		EmployeeName:     submitter.Name,
		Department:       submitter.Department,
		Description:      c.Description,
		Category:         c.Category,
		AmountCents:      c.Amount.Cents,
		Currency:         c.Currency,
		Status:           c.Status,
		ApprovedByName:   accounts[c.ApproverID].Name,
		ApprovedAt:       c.ApprovedAt,
		PaidByName:       accounts[c.PayerID].Name,
		PaidAt:           c.PaidAt,
		PaymentReference: c.PaymentReference,
		Notes:            c.Notes,
		RejectedByName:   accounts[c.RejecterID].Name,
		RejectedAt:       c.RejectedAt,
	}
}
