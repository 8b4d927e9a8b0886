package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Loan status values
const (
	LoanStatusActive    = "active"
	LoanStatusPaid      = "paid"
	LoanStatusCancelled = "cancelled"
)

var (
	ErrLoanNotFound          = errors.New("loan not found")
	ErrLoanAmountInvalid     = errors.New("loan amount must be positive")
	ErrLoanInterestInvalid   = errors.New("interest rate must be between 0 and 100")
	ErrLoanTermInvalid       = errors.New("term must be at least 1 day")
	ErrLoanClientInvalid     = errors.New("client is required")
	ErrLoanCollectorInvalid  = errors.New("collector must be an active member")
	ErrLoanNotActive         = errors.New("loan is not active")
	ErrLoanHasPayments       = errors.New("loan has recorded payments")
	ErrInvalidLoanStatus     = errors.New("status must be 'active', 'paid' or 'cancelled'")
	ErrLoanNotesTooLong      = errors.New("notes must be 500 characters or less")
	ErrLoanStartDateInFuture = errors.New("start date cannot be in the future")
)

type Loan struct {
	ID              int32           `json:"id"`
	WorkspaceID     int32           `json:"workspaceId"`
	ClientID        int32           `json:"clientId"`
	CollectorID     *uuid.UUID      `json:"collectorId,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	InterestRate    decimal.Decimal `json:"interestRate"`
	Interest        decimal.Decimal `json:"interest"`
	Fee             decimal.Decimal `json:"fee"`
	TermDays        int32           `json:"termDays"`
	StartDate       time.Time       `json:"startDate"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	Status          string          `json:"status"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	DeletedAt       *time.Time      `json:"deletedAt,omitempty"`
}

func (l *Loan) Validate() error {
	if l.ClientID <= 0 {
		return ErrLoanClientInvalid
	}
	if l.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrLoanAmountInvalid
	}
	if l.InterestRate.LessThan(decimal.Zero) || l.InterestRate.GreaterThan(decimal.NewFromInt(100)) {
		return ErrLoanInterestInvalid
	}
	if l.TermDays < 1 {
		return ErrLoanTermInvalid
	}
	if l.Status != "" && !IsValidLoanStatus(l.Status) {
		return ErrInvalidLoanStatus
	}
	if l.Notes != nil && len(*l.Notes) > MaxNotesLength {
		return ErrLoanNotesTooLong
	}
	return nil
}

// IsValidLoanStatus checks if the given status is a known loan status
func IsValidLoanStatus(status string) bool {
	return status == LoanStatusActive || status == LoanStatusPaid || status == LoanStatusCancelled
}

// TotalObligation is principal plus interest
func (l *Loan) TotalObligation() decimal.Decimal {
	return l.Amount.Add(l.Interest)
}

// TotalPaid is the part of the obligation already collected
func (l *Loan) TotalPaid() decimal.Decimal {
	return l.TotalObligation().Sub(l.RemainingAmount)
}

// EndDate is the day the last installment falls due
func (l *Loan) EndDate() time.Time {
	return l.StartDate.AddDate(0, 0, int(l.TermDays))
}

// Snapshot returns the financial view of the loan consumed by EvaluateLoanStatus
func (l *Loan) Snapshot() LoanSnapshot {
	remaining := l.RemainingAmount
	return LoanSnapshot{
		Amount:          l.Amount,
		Interest:        l.Interest,
		Fee:             l.Fee,
		StartDate:       l.StartDate.Format("2006-01-02"),
		RemainingAmount: &remaining,
	}
}

// LoanFilter narrows loan listings. Zero values mean "any".
type LoanFilter struct {
	Status      string
	ClientID    int32
	CollectorID *uuid.UUID
}

type LoanRepository interface {
	Create(loan *Loan) (*Loan, error)
	GetByID(workspaceID int32, id int32) (*Loan, error)
	List(workspaceID int32, filter LoanFilter) ([]*Loan, error)
	GetActiveByWorkspace(workspaceID int32) ([]*Loan, error)
	GetStartedOn(workspaceID int32, day time.Time, collectorID *uuid.UUID) ([]*Loan, error)
	CountActiveByClient(workspaceID int32, clientID int32) (int64, error)
	Update(loan *Loan) (*Loan, error)
	UpdateStatus(workspaceID int32, id int32, status string) (*Loan, error)
}
