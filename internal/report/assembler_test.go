package report

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strconv"
	"testing"
	"time"

	"claimdesk/internal/core"
)

// fakeStore implements the reader ports over plain slices. It re-implements
// the port contracts independently of the real backends so the assembler is
// tested against the contract, not an implementation.
type fakeStore struct {
	claims   []core.Claim
	accounts map[string]core.Account
	activity []core.ActivityRecord

	recorded  []core.ActivityRecord
	recordErr error
}

func (f *fakeStore) CountClaims(_ context.Context, flt ClaimFilter) (int64, error) {
	var n int64
	for _, c := range f.claims {
		if flt.Match(c.CreatedAt) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) FindClaims(_ context.Context, flt ClaimFilter) ([]core.Claim, error) {
	var out []core.Claim
	for _, c := range f.claims {
		if flt.Match(c.CreatedAt) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) AggregateClaims(_ context.Context, agg ClaimAggregate) ([]Bucket, error) {
	grouped := map[string]*Bucket{}
	for _, c := range f.claims {
		if !agg.Filter.Match(c.CreatedAt) {
			continue
		}
		var key string
		switch agg.Key {
		case GroupByStatus:
			key = string(c.Status)
		case GroupByDepartment:
			acct, ok := f.accounts[c.SubmitterID]
			if !ok {
				continue
			}
			key = acct.Department
		case GroupBySubmitter:
			key = c.SubmitterID
		case GroupByMonth, GroupByDay:
			loc := agg.Loc
			if loc == nil {
				loc = time.UTC
			}
			if agg.Key == GroupByMonth {
				key = strconv.Itoa(int(c.CreatedAt.In(loc).Month()))
			} else {
				key = strconv.Itoa(c.CreatedAt.In(loc).Day())
			}
		}
		b := grouped[key]
		if b == nil {
			b = &Bucket{Key: key}
			grouped[key] = b
		}
		b.Count++
		b.Amount.Cents += c.Amount.Cents
	}

	out := make([]Bucket, 0, len(grouped))
	for _, b := range grouped {
		out = append(out, *b)
	}
	keyLess := func(a, b string) bool {
		ai, aerr := strconv.Atoi(a)
		bi, berr := strconv.Atoi(b)
		if aerr == nil && berr == nil {
			return ai < bi
		}
		return a < b
	}
	sort.Slice(out, func(i, j int) bool {
		switch agg.Sort {
		case SortCountDesc:
			if out[i].Count != out[j].Count {
				return out[i].Count > out[j].Count
			}
		case SortAmountDesc:
			if out[i].Amount.Cents != out[j].Amount.Cents {
				return out[i].Amount.Cents > out[j].Amount.Cents
			}
		}
		return keyLess(out[i].Key, out[j].Key)
	})
	if agg.Limit > 0 && len(out) > agg.Limit {
		out = out[:agg.Limit]
	}
	return out, nil
}

func (f *fakeStore) SumClaimAmounts(_ context.Context, flt ClaimFilter, buckets []AmountBucket) (map[string]core.Money, error) {
	out := make(map[string]core.Money, len(buckets))
	for _, b := range buckets {
		out[b.Name] = core.Money{}
	}
	for _, c := range f.claims {
		if !flt.Match(c.CreatedAt) {
			continue
		}
		for _, b := range buckets {
			if !b.Window.Match(c.CreatedAt) {
				continue
			}
			if len(b.Statuses) > 0 {
				matched := false
				for _, s := range b.Statuses {
					if c.Status == s {
						matched = true
						break
					}
				}
				if !matched {
					continue
				}
			}
			m := out[b.Name]
			m.Cents += c.Amount.Cents
			out[b.Name] = m
		}
	}
	return out, nil
}

func (f *fakeStore) CountAccounts(_ context.Context, activeOnly bool) (int64, error) {
	var n int64
	for _, a := range f.accounts {
		if activeOnly && !a.Active {
			continue
		}
		n++
	}
	return n, nil
}

func (f *fakeStore) CountAccountsByRole(_ context.Context, activeOnly bool) ([]Bucket, error) {
	grouped := map[string]int64{}
	for _, a := range f.accounts {
		if activeOnly && !a.Active {
			continue
		}
		grouped[string(a.Role)]++
	}
	out := make([]Bucket, 0, len(grouped))
	for role, n := range grouped {
		out = append(out, Bucket{Key: role, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (f *fakeStore) AccountsByID(_ context.Context, ids []string) (map[string]core.Account, error) {
	out := map[string]core.Account{}
	for _, id := range ids {
		if a, ok := f.accounts[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (f *fakeStore) RecentActivity(_ context.Context, limit int) ([]core.ActivityRecord, error) {
	out := append([]core.ActivityRecord(nil), f.activity...)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) Record(_ context.Context, rec core.ActivityRecord) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded = append(f.recorded, rec)
	return nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seededStore() *fakeStore {
	mk := func(id string, created time.Time, cents int64, status core.ClaimStatus, submitter, approver, payer string) core.Claim {
		return core.Claim{
			ID:          id,
			Date:        day(created.Year(), created.Month(), created.Day()),
			Amount:      core.Money{Cents: cents},
			Currency:    "USD",
			Category:    "general",
			Description: "claim " + id,
			Status:      status,
			SubmitterID: submitter,
			ApproverID:  approver,
			PayerID:     payer,
			CreatedAt:   created,
		}
	}

	return &fakeStore{
		claims: []core.Claim{
			mk("c-1", time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), 10050, core.StatusApproved, "u-2", "u-1", ""),
			mk("c-2", time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), 2500, core.StatusPending, "u-3", "", ""),
			mk("c-3", time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC), 7000, core.StatusPaid, "u-2", "u-1", "u-1"),
			mk("c-4", time.Date(2024, 3, 20, 11, 0, 0, 0, time.UTC), 1000, core.StatusNew, "u-3", "", ""),
			mk("c-5", time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), 4200, core.StatusApproved, "u-2", "u-1", ""),
			mk("c-6", time.Date(2023, 12, 1, 10, 0, 0, 0, time.UTC), 9900, core.StatusPaid, "u-3", "u-1", "u-1"),
		},
		accounts: map[string]core.Account{
			"u-1": {ID: "u-1", Name: "Alice", Role: core.RoleAdmin, Department: "Finance", EmployeeID: "E001", Active: true},
			"u-2": {ID: "u-2", Name: "Bob", Role: core.RoleEmployee, Department: "Sales", EmployeeID: "E002", Active: true},
			"u-3": {ID: "u-3", Name: "Carol", Role: core.RoleManager, Department: "Ops", EmployeeID: "E003", Active: true},
			"u-4": {ID: "u-4", Name: "Dan", Role: core.RoleEmployee, Department: "Sales", EmployeeID: "E004", Active: false},
		},
		activity: []core.ActivityRecord{
			{ID: 1, Action: "view", ActorName: "Alice", Timestamp: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)},
			{ID: 2, Action: "export", ActorName: "Alice", Timestamp: time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)},
		},
	}
}

func newFixedGenerator(fs *fakeStore) *Generator {
	g := NewGenerator(fs, fs, fs, fs, time.UTC, nil)
	g.now = func() time.Time { return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC) }
	return g
}

var testActor = Actor{ID: "u-1", Name: "Alice", Role: "admin", IPAddress: "10.0.0.1", UserAgent: "test"}

func TestSummary(t *testing.T) {
	fs := seededStore()
	g := newFixedGenerator(fs)

	rep, err := g.Summary(context.Background(), testActor)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	if rep.Users.Total != 3 {
		t.Errorf("Users.Total = %d, want 3 (active only)", rep.Users.Total)
	}
	wantRoles := map[string]int64{"admin": 1, "employee": 1, "manager": 1}
	if !reflect.DeepEqual(rep.Users.ByRole, wantRoles) {
		t.Errorf("Users.ByRole = %v, want %v", rep.Users.ByRole, wantRoles)
	}

	if rep.Claims.Total != 6 || rep.Claims.Monthly != 4 || rep.Claims.Yearly != 5 {
		t.Errorf("Claims = %+v, want total 6 / monthly 4 / yearly 5", rep.Claims)
	}
	if rep.Financial.TotalAmountCents != 34650 ||
		rep.Financial.MonthlyAmountCents != 20550 ||
		rep.Financial.YearlyAmountCents != 24750 {
		t.Errorf("Financial = %+v", rep.Financial)
	}

	// Count desc, ties broken by key ascending.
	wantStatus := []BreakdownRow{
		{Key: "approved", Count: 2, AmountCents: 14250},
		{Key: "paid", Count: 2, AmountCents: 16900},
		{Key: "new", Count: 1, AmountCents: 1000},
		{Key: "pending", Count: 1, AmountCents: 2500},
	}
	if !reflect.DeepEqual(rep.ClaimsByStatus, wantStatus) {
		t.Errorf("ClaimsByStatus = %v, want %v", rep.ClaimsByStatus, wantStatus)
	}

	wantDept := []BreakdownRow{
		{Key: "Sales", Count: 3, AmountCents: 21250},
		{Key: "Ops", Count: 3, AmountCents: 13400},
	}
	if !reflect.DeepEqual(rep.ClaimsByDepartment, wantDept) {
		t.Errorf("ClaimsByDepartment = %v, want %v", rep.ClaimsByDepartment, wantDept)
	}

	if len(rep.MonthlyTrend) != 12 {
		t.Fatalf("MonthlyTrend length = %d, want 12", len(rep.MonthlyTrend))
	}
	if p := rep.MonthlyTrend[0]; p.Month != "Jan" || p.Count != 1 || p.AmountCents != 4200 {
		t.Errorf("January point = %+v", p)
	}
	if p := rep.MonthlyTrend[2]; p.Month != "Mar" || p.Count != 4 || p.AmountCents != 20550 {
		t.Errorf("March point = %+v", p)
	}
	if p := rep.MonthlyTrend[11]; p.Count != 0 || p.AmountCents != 0 {
		t.Errorf("December should be zero-filled: %+v", p)
	}

	if len(rep.RecentActivity) != 2 || rep.RecentActivity[0].Action != "export" {
		t.Errorf("RecentActivity = %+v, want newest first", rep.RecentActivity)
	}
}

func TestSummary_ZeroClaims(t *testing.T) {
	fs := &fakeStore{accounts: map[string]core.Account{}}
	g := newFixedGenerator(fs)

	rep, err := g.Summary(context.Background(), testActor)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	if rep.Users.Total != 0 || rep.Claims.Total != 0 || rep.Financial.TotalAmountCents != 0 {
		t.Errorf("expected all-zero aggregates: %+v", rep)
	}
	if len(rep.ClaimsByStatus) != 0 || len(rep.ClaimsByDepartment) != 0 {
		t.Errorf("expected empty breakdowns: %+v", rep)
	}
	if len(rep.MonthlyTrend) != 12 {
		t.Errorf("MonthlyTrend length = %d, want 12 even with no data", len(rep.MonthlyTrend))
	}
}

func TestSummary_Idempotent(t *testing.T) {
	fs := seededStore()
	g := newFixedGenerator(fs)

	first, err := g.Summary(context.Background(), testActor)
	if err != nil {
		t.Fatalf("first Summary() error = %v", err)
	}
	second, err := g.Summary(context.Background(), testActor)
	if err != nil {
		t.Fatalf("second Summary() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated summaries differ:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestSummary_RecordsActivity(t *testing.T) {
	fs := seededStore()
	g := newFixedGenerator(fs)

	if _, err := g.Summary(context.Background(), testActor); err != nil {
		t.Fatalf("Summary() error = %v", err)
	}

	if len(fs.recorded) != 1 {
		t.Fatalf("recorded %d activities, want 1", len(fs.recorded))
	}
	rec := fs.recorded[0]
	if rec.Action != "view" || rec.ActorID != "u-1" || rec.EntityType != "system" {
		t.Errorf("unexpected activity record: %+v", rec)
	}
	if rec.Details != "Viewed system summary report" {
		t.Errorf("Details = %q", rec.Details)
	}
	if rec.IPAddress != "10.0.0.1" || rec.UserAgent != "test" {
		t.Errorf("actor request metadata not carried: %+v", rec)
	}
}

func TestSummary_SinkFailureSwallowed(t *testing.T) {
	fs := seededStore()
	fs.recordErr = errors.New("broker down")
	g := newFixedGenerator(fs)

	if _, err := g.Summary(context.Background(), testActor); err != nil {
		t.Fatalf("sink failure must not fail the report, got %v", err)
	}
}

func TestMonthly_March2024(t *testing.T) {
	fs := seededStore()
	g := newFixedGenerator(fs)

	rep, err := g.Monthly(context.Background(), testActor, 2024, 3)
	if err != nil {
		t.Fatalf("Monthly() error = %v", err)
	}

	if rep.Period.Year != 2024 || rep.Period.Month != 3 || rep.Period.MonthName != "March" {
		t.Errorf("Period = %+v", rep.Period)
	}
	if !rep.Period.Start.Equal(day(2024, 3, 1)) || !rep.Period.End.Equal(day(2024, 4, 1)) {
		t.Errorf("Period window = %v .. %v", rep.Period.Start, rep.Period.End)
	}

	s := rep.Summary
	if s.TotalClaims != 4 || s.TotalAmountCents != 20550 {
		t.Errorf("Summary totals = %+v", s)
	}
	if s.ApprovedAmountCents != 10050 || s.PaidAmountCents != 7000 || s.PendingAmountCents != 3500 {
		t.Errorf("Summary splits = %+v", s)
	}

	// Claim date descending, ids ascending on same-day ties.
	gotIDs := make([]string, len(rep.Claims))
	for i, c := range rep.Claims {
		gotIDs[i] = c.ID
	}
	wantIDs := []string{"c-4", "c-2", "c-3", "c-1"}
	if !reflect.DeepEqual(gotIDs, wantIDs) {
		t.Errorf("claim order = %v, want %v", gotIDs, wantIDs)
	}
	if r := rep.Claims[3]; r.SubmitterName != "Bob" || r.SubmitterDepartment != "Sales" || r.SubmitterEmployeeID != "E002" {
		t.Errorf("submitter join = %+v", r)
	}

	if len(rep.ClaimsByUser) != 2 {
		t.Fatalf("ClaimsByUser length = %d, want 2", len(rep.ClaimsByUser))
	}
	top := rep.ClaimsByUser[0]
	if top.AccountID != "u-2" || top.Name != "Bob" || top.AmountCents != 17050 || top.Count != 2 {
		t.Errorf("top contributor = %+v", top)
	}

	if len(rep.DailyTrend) != 31 {
		t.Fatalf("DailyTrend length = %d, want 31", len(rep.DailyTrend))
	}
	if p := rep.DailyTrend[4]; p.Day != 5 || p.Count != 2 || p.AmountCents != 9500 {
		t.Errorf("day 5 point = %+v", p)
	}
	if p := rep.DailyTrend[19]; p.Count != 1 || p.AmountCents != 1000 {
		t.Errorf("day 20 point = %+v", p)
	}
	if p := rep.DailyTrend[0]; p.Count != 0 {
		t.Errorf("day 1 should be zero: %+v", p)
	}
}

func TestMonthly_ReportTimezone(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	fs := seededStore()
	// 2024-04-01 02:00 UTC is 2024-03-31 21:00 in UTC-5: part of March
	// there, and it must land on day 31 of the trend, not day 1.
	fs.claims = append(fs.claims, core.Claim{
		ID:          "c-7",
		Date:        day(2024, 3, 31),
		Amount:      core.Money{Cents: 800},
		Currency:    "USD",
		Description: "claim c-7",
		Status:      core.StatusNew,
		SubmitterID: "u-2",
		CreatedAt:   time.Date(2024, 4, 1, 2, 0, 0, 0, time.UTC),
	})

	g := NewGenerator(fs, fs, fs, fs, loc, nil)
	g.now = func() time.Time { return time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC) }

	rep, err := g.Monthly(context.Background(), testActor, 2024, 3)
	if err != nil {
		t.Fatalf("Monthly() error = %v", err)
	}

	if rep.Summary.TotalClaims != 5 {
		t.Errorf("TotalClaims = %d, want 5 (boundary claim inside the local window)", rep.Summary.TotalClaims)
	}
	if p := rep.DailyTrend[30]; p.Day != 31 || p.Count != 1 || p.AmountCents != 800 {
		t.Errorf("day 31 point = %+v, want the boundary claim", p)
	}
	if p := rep.DailyTrend[0]; p.Count != 0 {
		t.Errorf("day 1 point = %+v, boundary claim filed under the wrong day", p)
	}
}

func TestMonthly_MissingSubmitterAccount(t *testing.T) {
	fs := seededStore()
	delete(fs.accounts, "u-3")
	g := newFixedGenerator(fs)

	rep, err := g.Monthly(context.Background(), testActor, 2024, 3)
	if err != nil {
		t.Fatalf("Monthly() error = %v", err)
	}

	var ghost *ContributorRow
	for i := range rep.ClaimsByUser {
		if rep.ClaimsByUser[i].AccountID == "u-3" {
			ghost = &rep.ClaimsByUser[i]
		}
	}
	if ghost == nil {
		t.Fatal("contributor with missing account dropped from the report")
	}
	if ghost.Name != "Unknown User" || ghost.Department != "" {
		t.Errorf("missing account contributor = %+v", ghost)
	}

	// The claim rows keep the claim with empty display fields.
	for _, c := range rep.Claims {
		if c.ID == "c-2" && c.SubmitterName != "" {
			t.Errorf("claim with missing submitter should have empty name: %+v", c)
		}
	}
}

func TestExport(t *testing.T) {
	fs := seededStore()
	g := newFixedGenerator(fs)

	rows, err := g.Export(context.Background(), testActor, ClaimFilter{
		From: day(2024, 1, 1),
		To:   day(2024, 4, 1),
	}, "csv")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("row count = %d, want 5 (2023 claim excluded)", len(rows))
	}

	byID := map[string]ExportRow{}
	for _, r := range rows {
		byID[r.ClaimID] = r
	}
	if r := byID["c-1"]; r.EmployeeName != "Bob" || r.ApprovedByName != "Alice" || r.PaidByName != "" {
		t.Errorf("c-1 joins = %+v", r)
	}
	if r := byID["c-3"]; r.PaidByName != "Alice" {
		t.Errorf("c-3 payer join = %+v", r)
	}
	if r := byID["c-2"]; r.ApprovedByName != "" || r.PaymentReference != "" {
		t.Errorf("c-2 should have empty lifecycle fields: %+v", r)
	}

	if len(fs.recorded) != 1 || fs.recorded[0].Action != "export" {
		t.Errorf("export activity not recorded: %+v", fs.recorded)
	}
	if got := fs.recorded[0].Details; got != "Exported claims data in csv format" {
		t.Errorf("export detail = %q", got)
	}
}

func TestExport_FormatInActivityDetail(t *testing.T) {
	fs := seededStore()
	g := newFixedGenerator(fs)

	if _, err := g.Export(context.Background(), testActor, ClaimFilter{}, "json"); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if got := fs.recorded[0].Details; got != "Exported claims data in json format" {
		t.Errorf("export detail = %q", got)
	}
}

func TestExport_MissingAccountsKeepRows(t *testing.T) {
	fs := seededStore()
	fs.accounts = map[string]core.Account{}
	g := newFixedGenerator(fs)

	rows, err := g.Export(context.Background(), testActor, ClaimFilter{}, "csv")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("row count = %d, want 6 (rows never dropped)", len(rows))
	}
	for _, r := range rows {
		if r.EmployeeName != "" || r.ApprovedByName != "" {
			t.Errorf("expected empty name fields for %s: %+v", r.ClaimID, r)
		}
	}
}
