package handler

import (
	"net/http"

	"github.com/cobrodiario/cobrodiario-backend/internal/middleware"
	"github.com/cobrodiario/cobrodiario-backend/internal/service"
	"github.com/cobrodiario/cobrodiario-backend/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// DashboardHandler handles dashboard-related HTTP requests
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// DashboardSummaryResponse represents the portfolio summary API response
type DashboardSummaryResponse struct {
	Date             string             `json:"date"`
	ActiveLoans      int                `json:"activeLoans"`
	TotalOutstanding string             `json:"totalOutstanding"`
	TotalOverdue     string             `json:"totalOverdue"`
	ExpectedDaily    string             `json:"expectedDaily"`
	CollectedToday   string             `json:"collectedToday"`
	PaymentsToday    int                `json:"paymentsToday"`
	Tiers            TierCountsResponse `json:"tiers"`
}

// ArrearsEntryResponse represents one loan behind schedule
type ArrearsEntryResponse struct {
	LoanID      int32  `json:"loanId"`
	ClientID    int32  `json:"clientId"`
	Tier        string `json:"tier"`
	DaysOverdue int    `json:"daysOverdue"`
	Debt        string `json:"debt"`
}

// GetSummary handles GET /api/v1/dashboard/summary?collectorId=
// Collectors always get their own portfolio.
func (h *DashboardHandler) GetSummary(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	collectorID, err := parseOptionalUUID(c.QueryParam("collectorId"))
	if err != nil {
		return NewValidationError(c, "Invalid collector ID", []ValidationError{
			{Field: "collectorId", Message: "Must be a valid UUID"},
		})
	}

	summary, err := h.dashboardService.GetSummary(workspaceID, actorFrom(c).ScopeOr(collectorID))
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to get dashboard summary")
		return NewInternalError(c, "Failed to get dashboard summary")
	}

	return c.JSON(http.StatusOK, DashboardSummaryResponse{
		Date:             util.FormatDate(summary.Date),
		ActiveLoans:      summary.ActiveLoans,
		TotalOutstanding: summary.TotalOutstanding.StringFixed(2),
		TotalOverdue:     summary.TotalOverdue.StringFixed(2),
		ExpectedDaily:    summary.ExpectedDaily.StringFixed(2),
		CollectedToday:   summary.CollectedToday.StringFixed(2),
		PaymentsToday:    summary.PaymentsToday,
		Tiers:            toTierCountsResponse(summary.Tiers),
	})
}

// GetArrears handles GET /api/v1/dashboard/arrears?collectorId=
// Loans are ordered by days overdue, worst first.
func (h *DashboardHandler) GetArrears(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	collectorID, err := parseOptionalUUID(c.QueryParam("collectorId"))
	if err != nil {
		return NewValidationError(c, "Invalid collector ID", []ValidationError{
			{Field: "collectorId", Message: "Must be a valid UUID"},
		})
	}

	entries, err := h.dashboardService.GetArrears(workspaceID, actorFrom(c).ScopeOr(collectorID))
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to get arrears")
		return NewInternalError(c, "Failed to get arrears")
	}

	response := make([]ArrearsEntryResponse, len(entries))
	for i, e := range entries {
		response[i] = ArrearsEntryResponse{
			LoanID:      e.LoanID,
			ClientID:    e.ClientID,
			Tier:        string(e.Tier),
			DaysOverdue: e.DaysOverdue,
			Debt:        e.Debt.StringFixed(2),
		}
	}
	return c.JSON(http.StatusOK, response)
}
