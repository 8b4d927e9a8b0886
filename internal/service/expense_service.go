package service

import (
	"strings"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/cache"
	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/util"
	"github.com/cobrodiario/cobrodiario-backend/internal/websocket"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExpenseService handles operating expenses of collectors
type ExpenseService struct {
	expenseRepo    domain.ExpenseRepository
	dailyCloseRepo domain.DailyCloseRepository
	clock          util.Clock
	cache          cache.Cache
	publisher      websocket.EventPublisher
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(expenseRepo domain.ExpenseRepository, dailyCloseRepo domain.DailyCloseRepository, clock util.Clock, c cache.Cache) *ExpenseService {
	if c == nil {
		c = cache.NoOpCache{}
	}
	return &ExpenseService{
		expenseRepo:    expenseRepo,
		dailyCloseRepo: dailyCloseRepo,
		clock:          clock,
		cache:          c,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ExpenseService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.publisher = publisher
}

func (s *ExpenseService) publishEvent(workspaceID int32, event websocket.Event) {
	if s.publisher != nil {
		s.publisher.Publish(workspaceID, event)
	}
}

// CreateExpenseInput contains input for recording an expense
type CreateExpenseInput struct {
	Category    string
	Description string
	Amount      decimal.Decimal
	SpentOn     *time.Time // defaults to today
	CollectorID *uuid.UUID // ignored for collectors, who always record their own
}

// CreateExpense records an expense on an open day
func (s *ExpenseService) CreateExpense(workspaceID int32, actor Actor, input CreateExpenseInput) (*domain.Expense, error) {
	today := util.StartOfDay(s.clock.Now())
	spentOn := today
	if input.SpentOn != nil {
		spentOn = util.StartOfDay(input.SpentOn.In(today.Location()))
		if util.IsFutureDay(spentOn, today) {
			return nil, domain.ErrExpenseInFuture
		}
	}

	category := input.Category
	if category == "" {
		category = domain.ExpenseCategoryOther
	}

	expense := &domain.Expense{
		WorkspaceID: workspaceID,
		CollectorID: actor.ScopeOr(input.CollectorID),
		Category:    category,
		Description: strings.TrimSpace(input.Description),
		Amount:      input.Amount,
		SpentOn:     spentOn,
	}
	if err := expense.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureDayOpen(workspaceID, spentOn, expense.CollectorID); err != nil {
		return nil, err
	}

	created, err := s.expenseRepo.Create(expense)
	if err != nil {
		return nil, err
	}
	invalidateDashboard(s.cache, workspaceID)
	s.publishEvent(workspaceID, websocket.ExpenseCreated(created).ForCollector(created.CollectorID))
	return created, nil
}

// GetExpenses lists expenses between two days inclusive
func (s *ExpenseService) GetExpenses(workspaceID int32, actor Actor, from, to time.Time, collectorID *uuid.UUID) ([]*domain.Expense, error) {
	if to.Before(from) {
		return nil, domain.ErrInvalidDate
	}
	return s.expenseRepo.GetByDateRange(workspaceID, util.StartOfDay(from), util.StartOfDay(to), actor.ScopeOr(collectorID))
}

// DeleteExpense removes an expense of an open day. Collectors may only delete their own.
func (s *ExpenseService) DeleteExpense(workspaceID int32, actor Actor, id int32) error {
	expense, err := s.expenseRepo.GetByID(workspaceID, id)
	if err != nil {
		return err
	}
	scope := actor.Scope()
	if scope != nil && (expense.CollectorID == nil || *expense.CollectorID != *scope) {
		return domain.ErrExpenseNotFound
	}
	if err := s.ensureDayOpen(workspaceID, expense.SpentOn, expense.CollectorID); err != nil {
		return err
	}
	if err := s.expenseRepo.Delete(workspaceID, id); err != nil {
		return err
	}
	invalidateDashboard(s.cache, workspaceID)
	s.publishEvent(workspaceID, websocket.ExpenseDeleted(map[string]int32{"id": id}).ForCollector(expense.CollectorID))
	return nil
}

func (s *ExpenseService) ensureDayOpen(workspaceID int32, day time.Time, collectorID *uuid.UUID) error {
	closed, err := s.dailyCloseRepo.IsClosed(workspaceID, day, collectorID)
	if err != nil {
		return err
	}
	if closed {
		return domain.ErrDayClosed
	}
	return nil
}
