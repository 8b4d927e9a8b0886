package service

import (
	"context"
	"sync"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// ArrearsWorker is a background worker that periodically re-evaluates every
// workspace's portfolio and notifies dashboards when the tier breakdown moves
type ArrearsWorker struct {
	dashboard     *DashboardService
	workspaceRepo domain.WorkspaceRepository
	publisher     websocket.EventPublisher
	logger        zerolog.Logger
	interval      time.Duration
	stopCh        chan struct{}
	doneCh        chan struct{}
	mu            sync.Mutex
	running       bool
	lastTiers     map[int32]domain.TierCounts
}

// ArrearsWorkerConfig holds configuration for the arrears worker
type ArrearsWorkerConfig struct {
	Interval time.Duration // How often to re-evaluate portfolios
}

// DefaultArrearsWorkerConfig returns sensible defaults
func DefaultArrearsWorkerConfig() ArrearsWorkerConfig {
	return ArrearsWorkerConfig{
		Interval: 15 * time.Minute,
	}
}

// NewArrearsWorker creates a new arrears worker
func NewArrearsWorker(
	dashboard *DashboardService,
	workspaceRepo domain.WorkspaceRepository,
	publisher websocket.EventPublisher,
	logger zerolog.Logger,
	config ArrearsWorkerConfig,
) *ArrearsWorker {
	if config.Interval <= 0 {
		config.Interval = DefaultArrearsWorkerConfig().Interval
	}
	if publisher == nil {
		publisher = &websocket.NoOpPublisher{}
	}

	return &ArrearsWorker{
		dashboard:     dashboard,
		workspaceRepo: workspaceRepo,
		publisher:     publisher,
		logger:        logger.With().Str("component", "arrears_worker").Logger(),
		interval:      config.Interval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
		lastTiers:     make(map[int32]domain.TierCounts),
	}
}

// Start begins the background evaluation
func (w *ArrearsWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().Dur("interval", w.interval).Msg("Starting arrears worker")

	go w.run(ctx)
}

// Stop gracefully stops the worker
func (w *ArrearsWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping arrears worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("Arrears worker stopped")
}

func (w *ArrearsWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	// Run immediately on startup
	w.evaluateAllWorkspaces(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.setStopped()
			return
		case <-w.stopCh:
			w.setStopped()
			return
		case <-ticker.C:
			w.evaluateAllWorkspaces(ctx)
		}
	}
}

func (w *ArrearsWorker) setStopped() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

func (w *ArrearsWorker) evaluateAllWorkspaces(ctx context.Context) {
	startTime := time.Now()

	ids, err := w.workspaceRepo.GetAllIDs()
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to get workspaces for arrears evaluation")
		return
	}

	changed := 0
	errCount := 0
	for _, id := range ids {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Context cancelled, stopping evaluation")
			return
		case <-w.stopCh:
			w.logger.Info().Msg("Stop signal received, stopping evaluation")
			return
		default:
		}

		moved, err := w.EvaluateWorkspace(id)
		if err != nil {
			w.logger.Error().Err(err).Int32("workspace_id", id).Msg("Failed to evaluate workspace portfolio")
			errCount++
			continue
		}
		if moved {
			changed++
		}
	}

	w.logger.Info().
		Int("workspaces", len(ids)).
		Int("changed", changed).
		Int("errors", errCount).
		Dur("elapsed", time.Since(startTime)).
		Msg("Completed arrears evaluation")
}

// EvaluateWorkspace refreshes the cached summary of a workspace and broadcasts
// portfolio.updated when its tier counts differ from the previous run.
// Returns whether the counts changed.
func (w *ArrearsWorker) EvaluateWorkspace(workspaceID int32) (bool, error) {
	summary, err := w.dashboard.RefreshSummary(workspaceID, nil)
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	previous, seen := w.lastTiers[workspaceID]
	w.lastTiers[workspaceID] = summary.Tiers
	w.mu.Unlock()

	if seen && previous == summary.Tiers {
		return false, nil
	}

	w.logger.Debug().
		Int32("workspace_id", workspaceID).
		Int("mild", summary.Tiers.MildArrears).
		Int("severe", summary.Tiers.SevereArrears).
		Msg("Portfolio tiers changed")
	w.publisher.Publish(workspaceID, websocket.PortfolioUpdated(summary).ForManagers())
	return true, nil
}

// IsRunning returns whether the worker is currently running
func (w *ArrearsWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
