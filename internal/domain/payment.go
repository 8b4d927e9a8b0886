package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrPaymentAmountInvalid  = errors.New("payment amount must be positive")
	ErrPaymentExceedsBalance = errors.New("payment exceeds the remaining balance")
	ErrPaymentLoanIDRequired = errors.New("loan ID is required")
	ErrPaymentInFuture       = errors.New("payment date cannot be in the future")
)

// Payment is one collection made against a loan
type Payment struct {
	ID          int32           `json:"id"`
	WorkspaceID int32           `json:"workspaceId"`
	LoanID      int32           `json:"loanId"`
	CollectorID *uuid.UUID      `json:"collectorId,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	PaidAt      time.Time       `json:"paidAt"`
	Notes       *string         `json:"notes,omitempty"`
	ReceiptPath *string         `json:"receiptPath,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (p *Payment) Validate() error {
	if p.LoanID <= 0 {
		return ErrPaymentLoanIDRequired
	}
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrPaymentAmountInvalid
	}
	return nil
}

// PaymentResult is a recorded payment together with the loan it changed
type PaymentResult struct {
	Payment *Payment `json:"payment"`
	Loan    *Loan    `json:"loan"`
}

type PaymentRepository interface {
	// CreateAndApply stores the payment and decrements the loan balance atomically.
	// Returns ErrPaymentExceedsBalance when the amount is larger than the balance.
	CreateAndApply(payment *Payment) (*PaymentResult, error)
	// DeleteAndRevert removes the payment and restores the loan balance atomically
	DeleteAndRevert(workspaceID int32, id int32) (*Loan, error)
	GetByID(workspaceID int32, id int32) (*Payment, error)
	GetByLoanID(workspaceID int32, loanID int32) ([]*Payment, error)
	GetByDay(workspaceID int32, from, to time.Time, collectorID *uuid.UUID) ([]*Payment, error)
	CountByLoan(workspaceID int32, loanID int32) (int64, error)
	SetReceiptPath(workspaceID int32, id int32, path string) (*Payment, error)
}
