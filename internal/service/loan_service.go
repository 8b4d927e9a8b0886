package service

import (
	"errors"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/util"
	"github.com/cobrodiario/cobrodiario-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// LoanService handles loan business logic
type LoanService struct {
	loanRepo    domain.LoanRepository
	clientRepo  domain.ClientRepository
	paymentRepo domain.PaymentRepository
	collectors  *CollectorService
	clock       util.Clock
	publisher   websocket.EventPublisher
}

// NewLoanService creates a new LoanService
func NewLoanService(
	loanRepo domain.LoanRepository,
	clientRepo domain.ClientRepository,
	paymentRepo domain.PaymentRepository,
	collectors *CollectorService,
	clock util.Clock,
) *LoanService {
	return &LoanService{
		loanRepo:    loanRepo,
		clientRepo:  clientRepo,
		paymentRepo: paymentRepo,
		collectors:  collectors,
		clock:       clock,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *LoanService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.publisher = publisher
}

func (s *LoanService) publishEvent(workspaceID int32, event websocket.Event) {
	if s.publisher != nil {
		s.publisher.Publish(workspaceID, event)
	}
}

// LoanTermsInput contains the financial terms of a loan
type LoanTermsInput struct {
	Amount       decimal.Decimal
	InterestRate decimal.Decimal
	TermDays     int32
	StartDate    *time.Time // defaults to today
}

// LoanTerms contains the values derived from LoanTermsInput
type LoanTerms struct {
	Amount          decimal.Decimal `json:"amount"`
	InterestRate    decimal.Decimal `json:"interestRate"`
	Interest        decimal.Decimal `json:"interest"`
	Fee             decimal.Decimal `json:"fee"`
	TotalObligation decimal.Decimal `json:"totalObligation"`
	TermDays        int32           `json:"termDays"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
}

// CreateLoanInput contains input for creating a loan
type CreateLoanInput struct {
	LoanTermsInput
	ClientID    int32
	CollectorID *uuid.UUID
	Notes       *string
}

// CalculateLoanInterest returns Amount × rate / 100 rounded to cents
func CalculateLoanInterest(amount, interestRate decimal.Decimal) decimal.Decimal {
	return amount.Mul(interestRate).Div(decimal.NewFromInt(100)).Round(2)
}

// CalculateDailyFee returns (Amount + Interest) / TermDays rounded to cents
func CalculateDailyFee(amount, interest decimal.Decimal, termDays int32) decimal.Decimal {
	if termDays <= 0 {
		return decimal.Zero
	}
	return amount.Add(interest).Div(decimal.NewFromInt(int64(termDays))).Round(2)
}

// PreviewLoan calculates loan values without creating the loan
func (s *LoanService) PreviewLoan(input LoanTermsInput) (*LoanTerms, error) {
	candidate := &domain.Loan{
		ClientID:     1,
		Amount:       input.Amount,
		InterestRate: input.InterestRate,
		TermDays:     input.TermDays,
	}
	if err := candidate.Validate(); err != nil {
		return nil, err
	}

	today := util.StartOfDay(s.clock.Now())
	start := today
	if input.StartDate != nil {
		start = util.StartOfDay(input.StartDate.In(today.Location()))
		if util.IsFutureDay(start, today) {
			return nil, domain.ErrLoanStartDateInFuture
		}
	}

	interest := CalculateLoanInterest(input.Amount, input.InterestRate)
	fee := CalculateDailyFee(input.Amount, interest, input.TermDays)
	if fee.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrLoanFeeInvalid
	}

	return &LoanTerms{
		Amount:          input.Amount,
		InterestRate:    input.InterestRate,
		Interest:        interest,
		Fee:             fee,
		TotalObligation: input.Amount.Add(interest),
		TermDays:        input.TermDays,
		StartDate:       start,
		EndDate:         start.AddDate(0, 0, int(input.TermDays)),
	}, nil
}

// CreateLoan disburses a new loan to a client
func (s *LoanService) CreateLoan(workspaceID int32, input CreateLoanInput) (*domain.Loan, error) {
	if input.ClientID <= 0 {
		return nil, domain.ErrLoanClientInvalid
	}
	if input.Notes != nil && len(*input.Notes) > domain.MaxNotesLength {
		return nil, domain.ErrLoanNotesTooLong
	}

	terms, err := s.PreviewLoan(input.LoanTermsInput)
	if err != nil {
		return nil, err
	}

	client, err := s.clientRepo.GetByID(workspaceID, input.ClientID)
	if err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			return nil, domain.ErrLoanClientInvalid
		}
		return nil, err
	}

	// the client's assigned collector takes the loan unless one is given
	collectorID := input.CollectorID
	if collectorID == nil {
		collectorID = client.CollectorID
	}
	if err := s.collectors.ValidateCollector(workspaceID, collectorID); err != nil {
		return nil, err
	}

	loan := &domain.Loan{
		WorkspaceID:     workspaceID,
		ClientID:        client.ID,
		CollectorID:     collectorID,
		Amount:          terms.Amount,
		InterestRate:    terms.InterestRate,
		Interest:        terms.Interest,
		Fee:             terms.Fee,
		TermDays:        terms.TermDays,
		StartDate:       terms.StartDate,
		RemainingAmount: terms.TotalObligation,
		Status:          domain.LoanStatusActive,
		Notes:           trimmedOrNil(input.Notes),
	}

	created, err := s.loanRepo.Create(loan)
	if err != nil {
		return nil, err
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("loan_id", created.ID).Str("amount", created.Amount.StringFixed(2)).Msg("Loan disbursed")
	s.publishEvent(workspaceID, websocket.LoanCreated(created).ForCollector(created.CollectorID))
	return created, nil
}

// LoanWithStatus is a loan decorated with its collection status as of today.
// The status is nil once the loan is paid or cancelled.
type LoanWithStatus struct {
	*domain.Loan
	LoanStatus *domain.LoanStatus `json:"loanStatus,omitempty"`
}

// LoanListFilter narrows loan listings. Tier is applied after evaluation.
type LoanListFilter struct {
	domain.LoanFilter
	Tier domain.LoanStatusTier
}

// ListLoans lists loans evaluated as of today
func (s *LoanService) ListLoans(workspaceID int32, filter LoanListFilter) ([]*LoanWithStatus, error) {
	if filter.Status != "" && !domain.IsValidLoanStatus(filter.Status) {
		return nil, domain.ErrInvalidLoanStatus
	}
	if filter.Tier != "" && !domain.IsValidTier(string(filter.Tier)) {
		return nil, domain.ErrInvalidTier
	}

	loans, err := s.loanRepo.List(workspaceID, filter.LoanFilter)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	result := make([]*LoanWithStatus, 0, len(loans))
	for _, loan := range loans {
		decorated := &LoanWithStatus{Loan: loan, LoanStatus: collectionStatus(loan, now)}
		if filter.Tier != "" && (decorated.LoanStatus == nil || decorated.LoanStatus.Tier != filter.Tier) {
			continue
		}
		result = append(result, decorated)
	}
	return result, nil
}

// LoanDetail is a loan with its status and payment history
type LoanDetail struct {
	LoanWithStatus
	Payments []*domain.Payment `json:"payments"`
}

// GetLoan retrieves a loan. A non-nil collectorID hides loans assigned to someone else.
func (s *LoanService) GetLoan(workspaceID int32, id int32, collectorID *uuid.UUID) (*LoanDetail, error) {
	loan, err := s.getVisibleLoan(workspaceID, id, collectorID)
	if err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.GetByLoanID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	return &LoanDetail{
		LoanWithStatus: LoanWithStatus{Loan: loan, LoanStatus: collectionStatus(loan, s.clock.Now())},
		Payments:       payments,
	}, nil
}

// UpdateLoanInput contains the editable fields of a loan
type UpdateLoanInput struct {
	Notes       *string
	CollectorID *uuid.UUID
}

// UpdateLoan changes notes and reassigns the collector
func (s *LoanService) UpdateLoan(workspaceID int32, id int32, input UpdateLoanInput) (*domain.Loan, error) {
	existing, err := s.loanRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	if input.Notes != nil && len(*input.Notes) > domain.MaxNotesLength {
		return nil, domain.ErrLoanNotesTooLong
	}
	if err := s.collectors.ValidateCollector(workspaceID, input.CollectorID); err != nil {
		return nil, err
	}

	loan := *existing
	loan.Notes = trimmedOrNil(input.Notes)
	loan.CollectorID = input.CollectorID

	updated, err := s.loanRepo.Update(&loan)
	if err != nil {
		return nil, err
	}
	s.publishEvent(workspaceID, websocket.LoanUpdated(updated).ForCollector(updated.CollectorID))
	return updated, nil
}

// CancelLoan cancels an active loan that has no payments
func (s *LoanService) CancelLoan(workspaceID int32, id int32) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanStatusActive {
		return nil, domain.ErrLoanNotActive
	}

	count, err := s.paymentRepo.CountByLoan(workspaceID, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, domain.ErrLoanHasPayments
	}

	cancelled, err := s.loanRepo.UpdateStatus(workspaceID, id, domain.LoanStatusCancelled)
	if err != nil {
		return nil, err
	}
	log.Info().Int32("workspace_id", workspaceID).Int32("loan_id", id).Msg("Loan cancelled")
	s.publishEvent(workspaceID, websocket.LoanUpdated(cancelled).ForCollector(cancelled.CollectorID))
	return cancelled, nil
}

// EvaluateSnapshot evaluates a caller-supplied loan snapshot at reference, or now when nil
func (s *LoanService) EvaluateSnapshot(snapshot domain.LoanSnapshot, reference *time.Time) (*domain.LoanStatus, error) {
	at := s.clock.Now()
	if reference != nil {
		at = *reference
	}
	return domain.EvaluateLoanStatus(snapshot, at)
}

func (s *LoanService) getVisibleLoan(workspaceID int32, id int32, collectorID *uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	if collectorID != nil && (loan.CollectorID == nil || *loan.CollectorID != *collectorID) {
		return nil, domain.ErrLoanNotFound
	}
	return loan, nil
}

// collectionStatus evaluates active loans only. Paid and cancelled loans have no collection status.
func collectionStatus(loan *domain.Loan, at time.Time) *domain.LoanStatus {
	if loan.Status != domain.LoanStatusActive {
		return nil
	}
	return evaluateOrUnknown(loan, at)
}

// evaluateOrUnknown contains evaluation failures to the one loan that caused them
func evaluateOrUnknown(loan *domain.Loan, at time.Time) *domain.LoanStatus {
	status, err := domain.EvaluateLoanStatus(loan.Snapshot(), at)
	if err != nil {
		log.Warn().Err(err).Int32("workspace_id", loan.WorkspaceID).Int32("loan_id", loan.ID).Msg("Failed to evaluate loan status")
		return domain.UnknownLoanStatus()
	}
	return status
}
