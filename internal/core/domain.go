package core

import (
	"errors"
	"strings"
	"time"
)

// Claim lifecycle statuses. Transitions are monotonic along the lifecycle
// graph; the reporting core only ever reads them.
const (
	StatusNew             ClaimStatus = "new"
	StatusSubmitted       ClaimStatus = "submitted"
	StatusPending         ClaimStatus = "pending"
	StatusRecommendation  ClaimStatus = "recommendation"
	StatusApproved        ClaimStatus = "approved"
	StatusFurtherApproval ClaimStatus = "further_approval"
	StatusPaid            ClaimStatus = "paid"
	StatusRejected        ClaimStatus = "rejected"
)

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

type (
	ClaimStatus string

	Role string

	Money struct {
		Cents int64
	}

	Claim struct {
		ID          string
		Date        time.Time // date the expense was incurred
		Amount      Money
		Currency    string
		Category    string
		Description string
		Status      ClaimStatus

		// Actor references, each empty until the lifecycle step occurs.
		SubmitterID string
		ApproverID  string
		RejecterID  string
		PayerID     string

		ApprovedAt *time.Time
		RejectedAt *time.Time
		PaidAt     *time.Time

		PaymentReference string
		Notes            string

		CreatedAt time.Time
	}

	Account struct {
		ID         string
		Name       string
		Role       Role
		Department string // may be empty
		EmployeeID string
		Active     bool
	}

	ActivityRecord struct {
		ID         int64
		Action     string
		ActorID    string
		ActorName  string
		ActorRole  string
		EntityType string
		EntityID   string
		Details    string
		IPAddress  string
		UserAgent  string
		Timestamp  time.Time
	}
)

var (
	ErrInvalidStatus     = errors.New("invalid claim status")
	ErrInvalidRole       = errors.New("invalid role")
	ErrNegativeAmount    = errors.New("negative amount")
	ErrEmptyCurrency     = errors.New("empty currency")
	ErrMissingSubmitter  = errors.New("missing submitter reference")
	ErrEmptyAccountName  = errors.New("empty account name")
	ErrEmptyActionVerb   = errors.New("empty action verb")
	ErrZeroClaimDate     = errors.New("claim date cannot be zero")
	ErrEmptyClaimID      = errors.New("empty claim id")
	ErrEmptyAccountID    = errors.New("empty account id")
	ErrEmptyDescription  = errors.New("empty description")
	ErrDescriptionTooBig = errors.New("description too long (max 500 characters)")
)

func (s ClaimStatus) Valid() bool {
	switch s {
	case StatusNew, StatusSubmitted, StatusPending, StatusRecommendation,
		StatusApproved, StatusFurtherApproval, StatusPaid, StatusRejected:
		return true
	}
	return false
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

func (c Claim) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyClaimID
	}
	if c.Date.IsZero() {
		return ErrZeroClaimDate
	}
	if err := c.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Currency) == "" {
		return ErrEmptyCurrency
	}
	if len(strings.TrimSpace(c.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(c.Description) > 500 {
		return ErrDescriptionTooBig
	}
	if !c.Status.Valid() {
		return ErrInvalidStatus
	}
	if strings.TrimSpace(c.SubmitterID) == "" {
		return ErrMissingSubmitter
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrEmptyAccountID
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyAccountName
	}
	if !a.Role.Valid() {
		return ErrInvalidRole
	}
	return nil
}

func (r ActivityRecord) Validate() error {
	if strings.TrimSpace(r.Action) == "" {
		return ErrEmptyActionVerb
	}
	return nil
}

// PendingStatuses are the not-yet-decided lifecycle states used by the
// monthly report's pending rollup bucket.
func PendingStatuses() []ClaimStatus {
	return []ClaimStatus{StatusNew, StatusPending, StatusRecommendation}
}
