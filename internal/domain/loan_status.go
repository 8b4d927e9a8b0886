package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/util"
	"github.com/shopspring/decimal"
)

// LoanStatusTier is the collection-health classification of a loan
type LoanStatusTier string

const (
	TierRecent        LoanStatusTier = "recent"
	TierOnTime        LoanStatusTier = "on_time"
	TierMildArrears   LoanStatusTier = "mild_arrears"
	TierSevereArrears LoanStatusTier = "severe_arrears"
	// TierUnknown is never produced by EvaluateLoanStatus. Listings use it for
	// loans whose status could not be computed.
	TierUnknown LoanStatusTier = "unknown"
)

// Severity tokens used by the dashboard to color status badges
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityDanger  = "danger"
	SeverityNeutral = "neutral"
)

// Tier thresholds, in missed installments
const (
	MaxOnTimeDaysOverdue = 1
	MaxMildDaysOverdue   = 5
)

var (
	ErrInvalidStartDate = errors.New("loan start date is not a valid calendar date")
	ErrLoanFeeInvalid   = errors.New("loan fee must be positive")
	ErrInvalidTier      = errors.New("tier must be 'recent', 'on_time', 'mild_arrears' or 'severe_arrears'")
)

// LoanSnapshot is the read-only financial view of a loan needed to classify it
type LoanSnapshot struct {
	Amount    decimal.Decimal
	Interest  decimal.Decimal
	Fee       decimal.Decimal
	StartDate string
	// nil counts as fully paid
	RemainingAmount *decimal.Decimal
}

// LoanStatus is the result of evaluating a loan as of a reference date
type LoanStatus struct {
	Tier        LoanStatusTier  `json:"tier"`
	Label       string          `json:"label"`
	Severity    string          `json:"severity"`
	DaysOverdue int             `json:"daysOverdue"`
	DaysElapsed int             `json:"daysElapsed"`
	TotalDue    decimal.Decimal `json:"totalDue"`
	TotalPaid   decimal.Decimal `json:"totalPaid"`
	Debt        decimal.Decimal `json:"debt"`
}

// IsArrears reports whether the loan is in mild or severe arrears
func (s *LoanStatus) IsArrears() bool {
	return s.Tier == TierMildArrears || s.Tier == TierSevereArrears
}

// EvaluateLoanStatus classifies a loan as of reference.
//
// One fee accrues per calendar day starting the day after the start date, so a loan
// started today owes nothing yet. Both dates are reduced to calendar days in the
// reference's location before any arithmetic.
func EvaluateLoanStatus(loan LoanSnapshot, reference time.Time) (*LoanStatus, error) {
	today := util.StartOfDay(reference)
	yesterday := today.AddDate(0, 0, -1)

	start, err := util.ParseDate(loan.StartDate, reference.Location())
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStartDate, loan.StartDate)
	}

	daysElapsed := util.DaysBetween(start, yesterday) + 1
	if daysElapsed < 0 {
		daysElapsed = 0
	}

	remaining := decimal.Zero
	if loan.RemainingAmount != nil {
		remaining = *loan.RemainingAmount
	}
	totalPaid := loan.Amount.Add(loan.Interest).Sub(remaining)

	if daysElapsed == 0 {
		return newRecentStatus(totalPaid), nil
	}
	if loan.Fee.LessThanOrEqual(decimal.Zero) {
		return nil, ErrLoanFeeInvalid
	}

	totalDue := loan.Fee.Mul(decimal.NewFromInt(int64(daysElapsed)))
	debt := totalDue.Sub(totalPaid)

	// Whole installments only. QuoRem truncates toward zero, which equals floor for
	// positive debt; negative debt is clamped below anyway.
	quotient, _ := debt.QuoRem(loan.Fee, 0)
	daysOverdue := int(quotient.IntPart())
	if daysOverdue < 0 {
		daysOverdue = 0
	}

	status := &LoanStatus{
		DaysOverdue: daysOverdue,
		DaysElapsed: daysElapsed,
		TotalDue:    totalDue,
		TotalPaid:   totalPaid,
		Debt:        debt,
	}

	switch {
	case daysOverdue <= MaxOnTimeDaysOverdue:
		status.Tier = TierOnTime
		status.Label = "Al día"
		status.Severity = SeveritySuccess
	case daysOverdue <= MaxMildDaysOverdue:
		status.Tier = TierMildArrears
		status.Label = fmt.Sprintf("Mora Leve (%d días)", daysOverdue)
		status.Severity = SeverityWarning
	default:
		status.Tier = TierSevereArrears
		status.Label = fmt.Sprintf("Mora Grave (%d días)", daysOverdue)
		status.Severity = SeverityDanger
	}

	return status, nil
}

func newRecentStatus(totalPaid decimal.Decimal) *LoanStatus {
	return &LoanStatus{
		Tier:      TierRecent,
		Label:     "Reciente",
		Severity:  SeverityInfo,
		TotalDue:  decimal.Zero,
		TotalPaid: totalPaid,
		Debt:      decimal.Zero,
	}
}

// UnknownLoanStatus is shown in place of a status that failed to evaluate
func UnknownLoanStatus() *LoanStatus {
	return &LoanStatus{
		Tier:      TierUnknown,
		Label:     "Desconocido",
		Severity:  SeverityNeutral,
		TotalDue:  decimal.Zero,
		TotalPaid: decimal.Zero,
		Debt:      decimal.Zero,
	}
}

// IsValidTier checks if the given value names a tier produced by the evaluator
func IsValidTier(tier string) bool {
	switch LoanStatusTier(tier) {
	case TierRecent, TierOnTime, TierMildArrears, TierSevereArrears:
		return true
	}
	return false
}

// TierCounts tallies loans per tier
type TierCounts struct {
	Recent        int `json:"recent"`
	OnTime        int `json:"onTime"`
	MildArrears   int `json:"mildArrears"`
	SevereArrears int `json:"severeArrears"`
	Unknown       int `json:"unknown"`
}

// Add counts one loan of the given tier
func (c *TierCounts) Add(tier LoanStatusTier) {
	switch tier {
	case TierRecent:
		c.Recent++
	case TierOnTime:
		c.OnTime++
	case TierMildArrears:
		c.MildArrears++
	case TierSevereArrears:
		c.SevereArrears++
	default:
		c.Unknown++
	}
}
