package service

import (
	"context"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/cache"
	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/util"
	"github.com/cobrodiario/cobrodiario-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PaymentService handles collections against loans
type PaymentService struct {
	paymentRepo    domain.PaymentRepository
	loanRepo       domain.LoanRepository
	dailyCloseRepo domain.DailyCloseRepository
	receipts       *ReceiptService
	clock          util.Clock
	cache          cache.Cache
	publisher      websocket.EventPublisher
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo domain.PaymentRepository,
	loanRepo domain.LoanRepository,
	dailyCloseRepo domain.DailyCloseRepository,
	receipts *ReceiptService,
	clock util.Clock,
	c cache.Cache,
) *PaymentService {
	if c == nil {
		c = cache.NoOpCache{}
	}
	return &PaymentService{
		paymentRepo:    paymentRepo,
		loanRepo:       loanRepo,
		dailyCloseRepo: dailyCloseRepo,
		receipts:       receipts,
		clock:          clock,
		cache:          c,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *PaymentService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.publisher = publisher
}

func (s *PaymentService) publishEvent(workspaceID int32, event websocket.Event) {
	if s.publisher != nil {
		s.publisher.Publish(workspaceID, event)
	}
}

// RegisterPaymentInput contains input for recording a payment
type RegisterPaymentInput struct {
	LoanID int32
	Amount decimal.Decimal
	PaidAt *time.Time // defaults to now
	Notes  *string
}

// RegisterPayment records a payment and decrements the loan balance
func (s *PaymentService) RegisterPayment(workspaceID int32, actor Actor, input RegisterPaymentInput) (*domain.PaymentResult, error) {
	now := s.clock.Now()
	paidAt := now
	if input.PaidAt != nil {
		paidAt = input.PaidAt.In(now.Location())
		if util.IsFutureDay(paidAt, now) {
			return nil, domain.ErrPaymentInFuture
		}
	}

	payment := &domain.Payment{
		WorkspaceID: workspaceID,
		LoanID:      input.LoanID,
		Amount:      input.Amount,
		PaidAt:      paidAt,
		Notes:       trimmedOrNil(input.Notes),
	}
	if err := payment.Validate(); err != nil {
		return nil, err
	}
	if payment.Notes != nil && len(*payment.Notes) > domain.MaxNotesLength {
		return nil, domain.ErrLoanNotesTooLong
	}

	loan, err := s.loanRepo.GetByID(workspaceID, input.LoanID)
	if err != nil {
		return nil, err
	}
	scope := actor.Scope()
	if scope != nil && (loan.CollectorID == nil || *loan.CollectorID != *scope) {
		return nil, domain.ErrLoanNotFound
	}
	if loan.Status != domain.LoanStatusActive {
		return nil, domain.ErrLoanNotActive
	}

	// the payment belongs to whoever collected it, or to the loan's collector
	// when a manager records it on their behalf
	payment.CollectorID = loan.CollectorID
	if scope != nil {
		payment.CollectorID = scope
	}

	if err := s.ensureDayOpen(workspaceID, paidAt, payment.CollectorID); err != nil {
		return nil, err
	}

	result, err := s.paymentRepo.CreateAndApply(payment)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int32("workspace_id", workspaceID).
		Int32("loan_id", loan.ID).
		Int32("payment_id", result.Payment.ID).
		Str("amount", result.Payment.Amount.StringFixed(2)).
		Str("loan_status", result.Loan.Status).
		Msg("Payment registered")

	invalidateDashboard(s.cache, workspaceID)
	s.publishEvent(workspaceID, websocket.PaymentCreated(result).ForCollector(result.Loan.CollectorID))
	return result, nil
}

// DeletePayment removes a payment of an open day and restores the loan balance
func (s *PaymentService) DeletePayment(ctx context.Context, workspaceID int32, id int32) (*domain.Loan, error) {
	payment, err := s.paymentRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureDayOpen(workspaceID, payment.PaidAt, payment.CollectorID); err != nil {
		return nil, err
	}

	loan, err := s.paymentRepo.DeleteAndRevert(workspaceID, id)
	if err != nil {
		return nil, err
	}

	if payment.ReceiptPath != nil {
		if err := s.receipts.DeleteReceiptObject(ctx, *payment.ReceiptPath); err != nil {
			log.Warn().Err(err).Int32("payment_id", id).Msg("Failed to delete receipt of deleted payment")
		}
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("payment_id", id).Int32("loan_id", loan.ID).Msg("Payment deleted")
	invalidateDashboard(s.cache, workspaceID)
	s.publishEvent(workspaceID, websocket.PaymentDeleted(map[string]interface{}{
		"id":   id,
		"loan": loan,
	}).ForCollector(loan.CollectorID))
	return loan, nil
}

// GetPayment retrieves a payment. Collectors only see the payments they collected.
func (s *PaymentService) GetPayment(workspaceID int32, actor Actor, id int32) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	scope := actor.Scope()
	if scope != nil && (payment.CollectorID == nil || *payment.CollectorID != *scope) {
		return nil, domain.ErrPaymentNotFound
	}
	return payment, nil
}

// GetPaymentsByLoan lists the payments of a loan visible to the actor
func (s *PaymentService) GetPaymentsByLoan(workspaceID int32, actor Actor, loanID int32) ([]*domain.Payment, error) {
	loan, err := s.loanRepo.GetByID(workspaceID, loanID)
	if err != nil {
		return nil, err
	}
	scope := actor.Scope()
	if scope != nil && (loan.CollectorID == nil || *loan.CollectorID != *scope) {
		return nil, domain.ErrLoanNotFound
	}
	return s.paymentRepo.GetByLoanID(workspaceID, loanID)
}

// GetPaymentsByDay lists the payments made on a calendar day
func (s *PaymentService) GetPaymentsByDay(workspaceID int32, actor Actor, day time.Time, collectorID *uuid.UUID) ([]*domain.Payment, error) {
	start := util.StartOfDay(day)
	return s.paymentRepo.GetByDay(workspaceID, start, util.EndOfDay(start), actor.ScopeOr(collectorID))
}

func (s *PaymentService) ensureDayOpen(workspaceID int32, at time.Time, collectorID *uuid.UUID) error {
	closed, err := s.dailyCloseRepo.IsClosed(workspaceID, util.StartOfDay(at.In(s.clock.Now().Location())), collectorID)
	if err != nil {
		return err
	}
	if closed {
		return domain.ErrDayClosed
	}
	return nil
}
