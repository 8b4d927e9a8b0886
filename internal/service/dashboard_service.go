package service

import (
	"sort"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/cache"
	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/util"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const dashboardCacheQuery = "dashboard"

// DashboardService computes portfolio metrics
type DashboardService struct {
	loanRepo    domain.LoanRepository
	paymentRepo domain.PaymentRepository
	clock       util.Clock
	cache       cache.Cache
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(loanRepo domain.LoanRepository, paymentRepo domain.PaymentRepository, clock util.Clock, c cache.Cache) *DashboardService {
	if c == nil {
		c = cache.NoOpCache{}
	}
	return &DashboardService{
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		clock:       clock,
		cache:       c,
	}
}

// GetSummary returns the portfolio summary as of now, served from cache when fresh.
// A non-nil collectorID restricts the summary to that collector's loans.
func (s *DashboardService) GetSummary(workspaceID int32, collectorID *uuid.UUID) (*domain.PortfolioSummary, error) {
	now := s.clock.Now()
	key := dashboardCacheKey(workspaceID, now, collectorID)

	var cached domain.PortfolioSummary
	if cache.GetJSON(s.cache, key, &cached) {
		return &cached, nil
	}
	return s.RefreshSummary(workspaceID, collectorID)
}

// RefreshSummary recomputes the summary and stores it in the cache
func (s *DashboardService) RefreshSummary(workspaceID int32, collectorID *uuid.UUID) (*domain.PortfolioSummary, error) {
	now := s.clock.Now()
	summary, err := s.computeSummary(workspaceID, collectorID, now)
	if err != nil {
		return nil, err
	}
	key := dashboardCacheKey(workspaceID, now, collectorID)
	if err := cache.SetJSON(s.cache, key, summary); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache portfolio summary")
	}
	return summary, nil
}

func (s *DashboardService) computeSummary(workspaceID int32, collectorID *uuid.UUID, now time.Time) (*domain.PortfolioSummary, error) {
	loans, err := s.loanRepo.List(workspaceID, domain.LoanFilter{Status: domain.LoanStatusActive, CollectorID: collectorID})
	if err != nil {
		return nil, err
	}

	today := util.StartOfDay(now)
	payments, err := s.paymentRepo.GetByDay(workspaceID, today, util.EndOfDay(today), collectorID)
	if err != nil {
		return nil, err
	}

	summary := &domain.PortfolioSummary{
		Date:             today,
		ActiveLoans:      len(loans),
		TotalOutstanding: decimal.Zero,
		TotalOverdue:     decimal.Zero,
		ExpectedDaily:    decimal.Zero,
		CollectedToday:   decimal.Zero,
		PaymentsToday:    len(payments),
	}

	for _, loan := range loans {
		summary.TotalOutstanding = summary.TotalOutstanding.Add(loan.RemainingAmount)
		summary.ExpectedDaily = summary.ExpectedDaily.Add(loan.Fee)

		status := evaluateOrUnknown(loan, now)
		summary.Tiers.Add(status.Tier)
		if status.Debt.IsPositive() {
			summary.TotalOverdue = summary.TotalOverdue.Add(status.Debt)
		}
	}
	for _, p := range payments {
		summary.CollectedToday = summary.CollectedToday.Add(p.Amount)
	}

	return summary, nil
}

// GetArrears lists the loans in arrears, most overdue first
func (s *DashboardService) GetArrears(workspaceID int32, collectorID *uuid.UUID) ([]*domain.ArrearsEntry, error) {
	loans, err := s.loanRepo.List(workspaceID, domain.LoanFilter{Status: domain.LoanStatusActive, CollectorID: collectorID})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	entries := make([]*domain.ArrearsEntry, 0)
	for _, loan := range loans {
		status := evaluateOrUnknown(loan, now)
		if !status.IsArrears() {
			continue
		}
		entries = append(entries, &domain.ArrearsEntry{
			LoanID:      loan.ID,
			ClientID:    loan.ClientID,
			Tier:        status.Tier,
			DaysOverdue: status.DaysOverdue,
			Debt:        status.Debt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].DaysOverdue != entries[j].DaysOverdue {
			return entries[i].DaysOverdue > entries[j].DaysOverdue
		}
		return entries[i].Debt.GreaterThan(entries[j].Debt)
	})
	return entries, nil
}

// InvalidateSummary drops every cached summary of a workspace
func (s *DashboardService) InvalidateSummary(workspaceID int32) {
	invalidateDashboard(s.cache, workspaceID)
}

// TallyTiers evaluates loans at a reference time and counts them per tier
func TallyTiers(loans []*domain.Loan, at time.Time) domain.TierCounts {
	var counts domain.TierCounts
	for _, loan := range loans {
		counts.Add(evaluateOrUnknown(loan, at).Tier)
	}
	return counts
}

func dashboardCacheKey(workspaceID int32, now time.Time, collectorID *uuid.UUID) string {
	scope := "all"
	if collectorID != nil {
		scope = collectorID.String()
	}
	return cache.Key(workspaceID, dashboardCacheQuery, "summary", util.FormatDate(now), scope)
}

func invalidateDashboard(c cache.Cache, workspaceID int32) {
	c.RemovePrefix(cache.Key(workspaceID, dashboardCacheQuery) + ":")
}
