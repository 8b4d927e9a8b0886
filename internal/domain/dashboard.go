package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioSummary contains the main dashboard metrics for a workspace
type PortfolioSummary struct {
	Date             time.Time       `json:"date"`
	ActiveLoans      int             `json:"activeLoans"`
	TotalOutstanding decimal.Decimal `json:"totalOutstanding"`
	TotalOverdue     decimal.Decimal `json:"totalOverdue"` // positive debt of loans behind schedule
	ExpectedDaily    decimal.Decimal `json:"expectedDaily"`
	CollectedToday   decimal.Decimal `json:"collectedToday"`
	PaymentsToday    int             `json:"paymentsToday"`
	Tiers            TierCounts      `json:"tiers"`
}

// ArrearsEntry is one loan behind schedule, used to build collection routes
type ArrearsEntry struct {
	LoanID      int32           `json:"loanId"`
	ClientID    int32           `json:"clientId"`
	Tier        LoanStatusTier  `json:"tier"`
	DaysOverdue int             `json:"daysOverdue"`
	Debt        decimal.Decimal `json:"debt"`
}
