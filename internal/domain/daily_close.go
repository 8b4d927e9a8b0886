package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrDailyCloseNotFound  = errors.New("daily close not found")
	ErrDayAlreadyClosed    = errors.New("day is already closed")
	ErrDayClosed           = errors.New("day is closed and cannot be modified")
	ErrCloseDateInFuture   = errors.New("cannot close a future day")
	ErrCloseOtherCollector = errors.New("collectors can only close their own day")
)

// DailyClose freezes one day of collection activity, for one collector or
// for the whole workspace when CollectorID is nil
type DailyClose struct {
	ID             int32           `json:"id"`
	WorkspaceID    int32           `json:"workspaceId"`
	CollectorID    *uuid.UUID      `json:"collectorId,omitempty"`
	Date           time.Time       `json:"date"`
	PaymentsCount  int32           `json:"paymentsCount"`
	CollectedTotal decimal.Decimal `json:"collectedTotal"`
	ExpensesCount  int32           `json:"expensesCount"`
	ExpensesTotal  decimal.Decimal `json:"expensesTotal"`
	LoansDisbursed int32           `json:"loansDisbursed"`
	DisbursedTotal decimal.Decimal `json:"disbursedTotal"`
	NetCash        decimal.Decimal `json:"netCash"`
	Arrears        TierCounts      `json:"arrears"`
	SnapshotPath   *string         `json:"snapshotPath,omitempty"`
	ClosedBy       uuid.UUID       `json:"closedBy"`
	ClosedAt       time.Time       `json:"closedAt"`
}

// CalculateNetCash returns collected minus expenses minus disbursed
func CalculateNetCash(collected, expenses, disbursed decimal.Decimal) decimal.Decimal {
	return collected.Sub(expenses).Sub(disbursed)
}

type DailyCloseRepository interface {
	// Create returns ErrDayAlreadyClosed when a close already exists for the same date and collector
	Create(close *DailyClose) (*DailyClose, error)
	GetByID(workspaceID int32, id int32) (*DailyClose, error)
	GetByDate(workspaceID int32, date time.Time, collectorID *uuid.UUID) (*DailyClose, error)
	ListByDateRange(workspaceID int32, from, to time.Time) ([]*DailyClose, error)
	// IsClosed reports whether the day is closed for the collector or for the whole workspace
	IsClosed(workspaceID int32, date time.Time, collectorID *uuid.UUID) (bool, error)
	SetSnapshotPath(workspaceID int32, id int32, path string) error
	Delete(workspaceID int32, id int32) error
}
