package report

import (
	"time"

	"claimdesk/internal/core"
)

// Report payloads are composed per request and never persisted. Every
// numeric aggregate defaults to zero when no records match.

type (
	SummaryReport struct {
		Users              UserStats       `json:"users"`
		Claims             ClaimCounts     `json:"claims"`
		Financial          FinancialTotals `json:"financial"`
		ClaimsByStatus     []BreakdownRow  `json:"claims_by_status"`
		ClaimsByDepartment []BreakdownRow  `json:"claims_by_department"`
		MonthlyTrend       []MonthPoint    `json:"monthly_trend"`
		RecentActivity     []ActivityEntry `json:"recent_activity"`
	}

	UserStats struct {
		Total  int64            `json:"total"`
		ByRole map[string]int64 `json:"by_role"`
	}

	ClaimCounts struct {
		Total   int64 `json:"total"`
		Monthly int64 `json:"monthly"`
		Yearly  int64 `json:"yearly"`
	}

	FinancialTotals struct {
		TotalAmountCents   int64 `json:"total_amount_cents"`
		MonthlyAmountCents int64 `json:"monthly_amount_cents"`
		YearlyAmountCents  int64 `json:"yearly_amount_cents"`
	}

	// BreakdownRow is one categorical aggregate (by status, by department).
	BreakdownRow struct {
		Key         string `json:"key"`
		Count       int64  `json:"count"`
		AmountCents int64  `json:"amount_cents"`
	}

	MonthPoint struct {
		Month       string `json:"month"`
		Count       int64  `json:"count"`
		AmountCents int64  `json:"amount_cents"`
	}

	DayPoint struct {
		Day         int   `json:"day"`
		Count       int64 `json:"count"`
		AmountCents int64 `json:"amount_cents"`
	}

	// ActivityEntry is the audit-trail projection shown in the summary
	// report; requester IP and user agent stay server-side.
	ActivityEntry struct {
		Action     string    `json:"action"`
		ActorName  string    `json:"actor_name"`
		ActorRole  string    `json:"actor_role"`
		EntityType string    `json:"entity_type"`
		EntityID   string    `json:"entity_id"`
		Details    string    `json:"details"`
		Timestamp  time.Time `json:"timestamp"`
	}

	MonthlyReport struct {
		Period       Period           `json:"period"`
		Summary      MonthlySummary   `json:"summary"`
		Claims       []ClaimRow       `json:"claims"`
		ClaimsByUser []ContributorRow `json:"claims_by_user"`
		DailyTrend   []DayPoint       `json:"daily_trend"`
	}

	Period struct {
		Year      int       `json:"year"`
		Month     int       `json:"month"`
		MonthName string    `json:"month_name"`
		Start     time.Time `json:"start_date"`
		End       time.Time `json:"end_date"`
	}

	MonthlySummary struct {
		TotalClaims         int64 `json:"total_claims"`
		TotalAmountCents    int64 `json:"total_amount_cents"`
		ApprovedAmountCents int64 `json:"approved_amount_cents"`
		PaidAmountCents     int64 `json:"paid_amount_cents"`
		PendingAmountCents  int64 `json:"pending_amount_cents"`
	}

	// ClaimRow is a claim joined with its submitter's display fields.
	// Submitter fields stay empty when the account cannot be resolved.
	ClaimRow struct {
		ID                  string           `json:"id"`
		Date                time.Time        `json:"date"`
		AmountCents         int64            `json:"amount_cents"`
		Currency            string           `json:"currency"`
		Category            string           `json:"category"`
		Description         string           `json:"description"`
		Status              core.ClaimStatus `json:"status"`
		SubmitterName       string           `json:"submitter_name"`
		SubmitterDepartment string           `json:"submitter_department"`
		SubmitterEmployeeID string           `json:"submitter_employee_id"`
		CreatedAt           time.Time        `json:"created_at"`
	}

	// ContributorRow is one of the month's top submitters by amount.
	ContributorRow struct {
		AccountID   string `json:"account_id"`
		Name        string `json:"name"`
		Department  string `json:"department"`
		EmployeeID  string `json:"employee_id"`
		Count       int64  `json:"count"`
		AmountCents int64  `json:"amount_cents"`
	}

	// ExportRow is one flat claim projection for the export table. The CSV
	// rendering uses the fixed 16-column schema; the JSON rendering carries
	// the rejection fields as well.
	ExportRow struct {
		ClaimID          string           `json:"claim_id"`
		Date             time.Time        `json:"date"`
		EmployeeID       string           `json:"employee_id"`
		EmployeeName     string           `json:"employee_name"`
		Department       string           `json:"department"`
		Description      string           `json:"description"`
		Category         string           `json:"category"`
		AmountCents      int64            `json:"amount_cents"`
		Currency         string           `json:"currency"`
		Status           core.ClaimStatus `json:"status"`
		ApprovedByName   string           `json:"approved_by_name"`
		ApprovedAt       *time.Time       `json:"approved_at"`
		PaidByName       string           `json:"paid_by_name"`
		PaidAt           *time.Time       `json:"paid_at"`
		PaymentReference string           `json:"payment_reference"`
		Notes            string           `json:"notes"`

		RejectedByName string     `json:"rejected_by_name"`
		RejectedAt     *time.Time `json:"rejected_at"`
	}
)
