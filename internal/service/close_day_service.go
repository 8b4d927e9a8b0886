package service

import (
	"bytes"
	"context"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/cache"
	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/messaging"
	"github.com/cobrodiario/cobrodiario-backend/internal/repository/storage"
	"github.com/cobrodiario/cobrodiario-backend/internal/util"
	"github.com/cobrodiario/cobrodiario-backend/internal/websocket"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// CloseDayReport is the aggregated activity of one collection day. It is
// returned by previews and stored as the JSON snapshot of a close.
type CloseDayReport struct {
	Close     *domain.DailyClose `json:"close"`
	Payments  []*domain.Payment  `json:"payments"`
	Expenses  []*domain.Expense  `json:"expenses"`
	Disbursed []*domain.Loan     `json:"disbursed"`
}

// CloseDayService freezes collection days
type CloseDayService struct {
	closeRepo   domain.DailyCloseRepository
	paymentRepo domain.PaymentRepository
	expenseRepo domain.ExpenseRepository
	loanRepo    domain.LoanRepository
	objects     storage.ObjectRepository
	broker      messaging.Publisher
	clock       util.Clock
	cache       cache.Cache
	publisher   websocket.EventPublisher
}

// NewCloseDayService creates a new CloseDayService. Snapshots are skipped when
// objects is nil and broker messages when broker is nil.
func NewCloseDayService(
	closeRepo domain.DailyCloseRepository,
	paymentRepo domain.PaymentRepository,
	expenseRepo domain.ExpenseRepository,
	loanRepo domain.LoanRepository,
	objects storage.ObjectRepository,
	broker messaging.Publisher,
	clock util.Clock,
	c cache.Cache,
) *CloseDayService {
	if broker == nil {
		broker = messaging.NoOpPublisher{}
	}
	if c == nil {
		c = cache.NoOpCache{}
	}
	return &CloseDayService{
		closeRepo:   closeRepo,
		paymentRepo: paymentRepo,
		expenseRepo: expenseRepo,
		loanRepo:    loanRepo,
		objects:     objects,
		broker:      broker,
		clock:       clock,
		cache:       c,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *CloseDayService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.publisher = publisher
}

func (s *CloseDayService) publishEvent(workspaceID int32, event websocket.Event) {
	if s.publisher != nil {
		s.publisher.Publish(workspaceID, event)
	}
}

// Preview aggregates a day without persisting anything. A nil collectorID covers the whole workspace.
func (s *CloseDayService) Preview(ctx context.Context, workspaceID int32, date time.Time, collectorID *uuid.UUID) (*CloseDayReport, error) {
	day := util.StartOfDay(date.In(s.clock.Now().Location()))
	dayEnd := util.EndOfDay(day)

	var (
		payments  []*domain.Payment
		expenses  []*domain.Expense
		disbursed []*domain.Loan
		active    []*domain.Loan
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var g errgroup.Group
	g.Go(func() error {
		var err error
		payments, err = s.paymentRepo.GetByDay(workspaceID, day, dayEnd, collectorID)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.expenseRepo.GetByDateRange(workspaceID, day, day, collectorID)
		return err
	})
	g.Go(func() error {
		var err error
		disbursed, err = s.loanRepo.GetStartedOn(workspaceID, day, collectorID)
		return err
	})
	g.Go(func() error {
		var err error
		active, err = s.loanRepo.List(workspaceID, domain.LoanFilter{Status: domain.LoanStatusActive, CollectorID: collectorID})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dc := &domain.DailyClose{
		WorkspaceID:    workspaceID,
		CollectorID:    collectorID,
		Date:           day,
		PaymentsCount:  int32(len(payments)),
		CollectedTotal: decimal.Zero,
		ExpensesCount:  int32(len(expenses)),
		ExpensesTotal:  decimal.Zero,
		LoansDisbursed: int32(len(disbursed)),
		DisbursedTotal: decimal.Zero,
		Arrears:        TallyTiers(active, dayEnd),
	}
	for _, p := range payments {
		dc.CollectedTotal = dc.CollectedTotal.Add(p.Amount)
	}
	for _, e := range expenses {
		dc.ExpensesTotal = dc.ExpensesTotal.Add(e.Amount)
	}
	for _, l := range disbursed {
		dc.DisbursedTotal = dc.DisbursedTotal.Add(l.Amount)
	}
	dc.NetCash = domain.CalculateNetCash(dc.CollectedTotal, dc.ExpensesTotal, dc.DisbursedTotal)

	return &CloseDayReport{
		Close:     dc,
		Payments:  payments,
		Expenses:  expenses,
		Disbursed: disbursed,
	}, nil
}

// CloseDay persists the close of a day. Collectors may only close their own day;
// managers close a collector's day or, with a nil collectorID, the whole workspace.
// Snapshot upload and broker delivery are best effort.
func (s *CloseDayService) CloseDay(ctx context.Context, workspaceID int32, actor Actor, date time.Time, collectorID *uuid.UUID) (*domain.DailyClose, error) {
	now := s.clock.Now()
	day := util.StartOfDay(date.In(now.Location()))
	if util.IsFutureDay(day, now) {
		return nil, domain.ErrCloseDateInFuture
	}

	if !actor.IsManager() {
		if collectorID != nil && *collectorID != actor.UserID {
			return nil, domain.ErrCloseOtherCollector
		}
		collectorID = actor.Scope()
	}

	report, err := s.Preview(ctx, workspaceID, day, collectorID)
	if err != nil {
		return nil, err
	}
	report.Close.ClosedBy = actor.UserID
	report.Close.ClosedAt = now

	created, err := s.closeRepo.Create(report.Close)
	if err != nil {
		return nil, err
	}
	report.Close = created

	log.Info().
		Int32("workspace_id", workspaceID).
		Int32("close_id", created.ID).
		Str("date", util.FormatDate(day)).
		Str("net_cash", created.NetCash.StringFixed(2)).
		Msg("Day closed")

	s.storeSnapshot(ctx, report)
	invalidateDashboard(s.cache, workspaceID)
	s.publishEvent(workspaceID, websocket.DailyCloseCreated(created).ForCollector(created.CollectorID))
	s.announce(ctx, created)

	return created, nil
}

func (s *CloseDayService) storeSnapshot(ctx context.Context, report *CloseDayReport) {
	if s.objects == nil {
		return
	}
	dc := report.Close

	data, err := json.Marshal(report)
	if err != nil {
		log.Error().Err(err).Int32("close_id", dc.ID).Msg("Failed to encode close snapshot")
		return
	}

	objectPath := storage.SnapshotObjectPath(dc.WorkspaceID, util.FormatDate(dc.Date), dc.CollectorID)
	if _, err := s.objects.Upload(ctx, objectPath, bytes.NewReader(data), "application/json", int64(len(data))); err != nil {
		log.Error().Err(err).Int32("close_id", dc.ID).Str("path", objectPath).Msg("Failed to upload close snapshot")
		return
	}
	if err := s.closeRepo.SetSnapshotPath(dc.WorkspaceID, dc.ID, objectPath); err != nil {
		log.Error().Err(err).Int32("close_id", dc.ID).Msg("Failed to store snapshot path")
		return
	}
	dc.SnapshotPath = &objectPath
}

func (s *CloseDayService) announce(ctx context.Context, dc *domain.DailyClose) {
	msg := &messaging.DailyClosedMessage{
		CloseID:        dc.ID,
		WorkspaceID:    dc.WorkspaceID,
		CollectorID:    dc.CollectorID,
		Date:           util.FormatDate(dc.Date),
		CollectedTotal: dc.CollectedTotal,
		ExpensesTotal:  dc.ExpensesTotal,
		DisbursedTotal: dc.DisbursedTotal,
		NetCash:        dc.NetCash,
		SnapshotPath:   dc.SnapshotPath,
		Timestamp:      dc.ClosedAt,
	}
	if err := s.broker.PublishDailyClosed(ctx, msg); err != nil {
		log.Error().Err(err).Int32("close_id", dc.ID).Msg("Failed to publish daily close message")
	}
}

// GetClose retrieves the close of a day for a collector, or the workspace-wide close when nil
func (s *CloseDayService) GetClose(workspaceID int32, actor Actor, date time.Time, collectorID *uuid.UUID) (*domain.DailyClose, error) {
	day := util.StartOfDay(date.In(s.clock.Now().Location()))
	return s.closeRepo.GetByDate(workspaceID, day, actor.ScopeOr(collectorID))
}

// ListCloses lists closes between two days inclusive. Collectors see their own
// closes and the workspace-wide ones.
func (s *CloseDayService) ListCloses(workspaceID int32, actor Actor, from, to time.Time) ([]*domain.DailyClose, error) {
	if to.Before(from) {
		return nil, domain.ErrInvalidDate
	}
	closes, err := s.closeRepo.ListByDateRange(workspaceID, util.StartOfDay(from), util.StartOfDay(to))
	if err != nil {
		return nil, err
	}

	scope := actor.Scope()
	if scope == nil {
		return closes, nil
	}
	visible := make([]*domain.DailyClose, 0, len(closes))
	for _, c := range closes {
		if c.CollectorID == nil || *c.CollectorID == *scope {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

// ReopenDay deletes a close so its day can be modified again
func (s *CloseDayService) ReopenDay(ctx context.Context, workspaceID int32, id int32) error {
	dc, err := s.closeRepo.GetByID(workspaceID, id)
	if err != nil {
		return err
	}
	if err := s.closeRepo.Delete(workspaceID, id); err != nil {
		return err
	}

	if dc.SnapshotPath != nil && s.objects != nil {
		if err := s.objects.Delete(ctx, *dc.SnapshotPath); err != nil {
			log.Warn().Err(err).Int32("close_id", id).Msg("Failed to delete close snapshot")
		}
	}

	log.Info().Int32("workspace_id", workspaceID).Int32("close_id", id).Str("date", util.FormatDate(dc.Date)).Msg("Day reopened")
	invalidateDashboard(s.cache, workspaceID)
	s.publishEvent(workspaceID, websocket.DailyCloseReopened(dc).ForCollector(dc.CollectorID))
	return nil
}
