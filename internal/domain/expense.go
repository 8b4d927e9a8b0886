package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense categories
const (
	ExpenseCategoryFuel      = "fuel"
	ExpenseCategoryFood      = "food"
	ExpenseCategoryTransport = "transport"
	ExpenseCategoryOther     = "other"
)

var (
	ErrExpenseNotFound           = errors.New("expense not found")
	ErrExpenseAmountInvalid      = errors.New("expense amount must be positive")
	ErrExpenseDescriptionEmpty   = errors.New("expense description is required")
	ErrExpenseDescriptionTooLong = errors.New("expense description must be 200 characters or less")
	ErrInvalidExpenseCategory    = errors.New("category must be 'fuel', 'food', 'transport' or 'other'")
	ErrExpenseInFuture           = errors.New("expense date cannot be in the future")
)

type Expense struct {
	ID          int32           `json:"id"`
	WorkspaceID int32           `json:"workspaceId"`
	CollectorID *uuid.UUID      `json:"collectorId,omitempty"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	SpentOn     time.Time       `json:"spentOn"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (e *Expense) Validate() error {
	description := strings.TrimSpace(e.Description)
	if description == "" {
		return ErrExpenseDescriptionEmpty
	}
	if len(description) > MaxExpenseDescriptionLen {
		return ErrExpenseDescriptionTooLong
	}
	if e.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrExpenseAmountInvalid
	}
	if !IsValidExpenseCategory(e.Category) {
		return ErrInvalidExpenseCategory
	}
	return nil
}

// IsValidExpenseCategory checks if the given category is known
func IsValidExpenseCategory(category string) bool {
	switch category {
	case ExpenseCategoryFuel, ExpenseCategoryFood, ExpenseCategoryTransport, ExpenseCategoryOther:
		return true
	}
	return false
}

type ExpenseRepository interface {
	Create(expense *Expense) (*Expense, error)
	GetByID(workspaceID int32, id int32) (*Expense, error)
	GetByDateRange(workspaceID int32, from, to time.Time, collectorID *uuid.UUID) ([]*Expense, error)
	Delete(workspaceID int32, id int32) error
}
