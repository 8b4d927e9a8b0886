package handler

import (
	"errors"
	"net/http"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/middleware"
	"github.com/cobrodiario/cobrodiario-backend/internal/service"
	"github.com/cobrodiario/cobrodiario-backend/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CloseHandler handles close-day requests
type CloseHandler struct {
	closeService *service.CloseDayService
	clock        util.Clock
}

// NewCloseHandler creates a new CloseHandler
func NewCloseHandler(closeService *service.CloseDayService, clock util.Clock) *CloseHandler {
	return &CloseHandler{closeService: closeService, clock: clock}
}

// CloseDayRequest represents the close day request body
type CloseDayRequest struct {
	Date        string  `json:"date"` // YYYY-MM-DD
	CollectorID *string `json:"collectorId,omitempty"`
}

// TierCountsResponse represents the tier breakdown of a portfolio
type TierCountsResponse struct {
	Recent        int `json:"recent"`
	OnTime        int `json:"onTime"`
	MildArrears   int `json:"mildArrears"`
	SevereArrears int `json:"severeArrears"`
	Unknown       int `json:"unknown,omitempty"`
}

// DailyCloseResponse represents a day close in API responses
type DailyCloseResponse struct {
	ID             int32              `json:"id,omitempty"`
	WorkspaceID    int32              `json:"workspaceId"`
	CollectorID    *string            `json:"collectorId,omitempty"`
	Date           string             `json:"date"`
	PaymentsCount  int32              `json:"paymentsCount"`
	CollectedTotal string             `json:"collectedTotal"`
	ExpensesCount  int32              `json:"expensesCount"`
	ExpensesTotal  string             `json:"expensesTotal"`
	LoansDisbursed int32              `json:"loansDisbursed"`
	DisbursedTotal string             `json:"disbursedTotal"`
	NetCash        string             `json:"netCash"`
	Arrears        TierCountsResponse `json:"arrears"`
	HasSnapshot    bool               `json:"hasSnapshot"`
	ClosedBy       *string            `json:"closedBy,omitempty"`
	ClosedAt       *string            `json:"closedAt,omitempty"`
}

// CloseDayReportResponse is the preview of a day before it is closed
type CloseDayReportResponse struct {
	Close     DailyCloseResponse `json:"close"`
	Payments  []PaymentResponse  `json:"payments"`
	Expenses  []ExpenseResponse  `json:"expenses"`
	Disbursed []LoanResponse     `json:"disbursed"`
}

// ListCloses handles GET /api/v1/closes?from=&to=
// Both bounds default to today.
func (h *CloseHandler) ListCloses(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	loc := h.clock.Now().Location()
	today := util.StartOfDay(h.clock.Now())
	from, to := today, today

	var errs []ValidationError
	if parsed, err := parseOptionalDate(c.QueryParam("from"), loc); err != nil {
		errs = append(errs, ValidationError{Field: "from", Message: "Must be in YYYY-MM-DD format"})
	} else if parsed != nil {
		from = *parsed
	}
	if parsed, err := parseOptionalDate(c.QueryParam("to"), loc); err != nil {
		errs = append(errs, ValidationError{Field: "to", Message: "Must be in YYYY-MM-DD format"})
	} else if parsed != nil {
		to = *parsed
	}
	if len(errs) > 0 {
		return NewValidationError(c, "Invalid query parameters", errs)
	}

	closes, err := h.closeService.ListCloses(workspaceID, actorFrom(c), from, to)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDate) {
			return NewValidationError(c, "Invalid date range", []ValidationError{
				{Field: "to", Message: "Must not be before from"},
			})
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to list closes")
		return NewInternalError(c, "Failed to list closes")
	}

	response := make([]DailyCloseResponse, len(closes))
	for i, dc := range closes {
		response[i] = toDailyCloseResponse(dc)
	}
	return c.JSON(http.StatusOK, response)
}

// PreviewClose handles GET /api/v1/closes/preview?date=&collectorId=
func (h *CloseHandler) PreviewClose(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	day := util.StartOfDay(h.clock.Now())
	if parsed, err := parseOptionalDate(c.QueryParam("date"), h.clock.Now().Location()); err != nil {
		return NewValidationError(c, "Invalid date", []ValidationError{
			{Field: "date", Message: "Must be in YYYY-MM-DD format"},
		})
	} else if parsed != nil {
		day = *parsed
	}
	collectorID, err := parseOptionalUUID(c.QueryParam("collectorId"))
	if err != nil {
		return NewValidationError(c, "Invalid collector ID", []ValidationError{
			{Field: "collectorId", Message: "Must be a valid UUID"},
		})
	}

	report, err := h.closeService.Preview(c.Request().Context(), workspaceID, day, actorFrom(c).ScopeOr(collectorID))
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to preview close")
		return NewInternalError(c, "Failed to preview close")
	}

	return c.JSON(http.StatusOK, toCloseDayReportResponse(report))
}

// CloseDay handles POST /api/v1/closes
func (h *CloseHandler) CloseDay(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CloseDayRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	day, err := util.ParseDate(req.Date, h.clock.Now().Location())
	if err != nil {
		return NewValidationError(c, "Invalid date", []ValidationError{
			{Field: "date", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	var rawCollector string
	if req.CollectorID != nil {
		rawCollector = *req.CollectorID
	}
	collectorID, err := parseOptionalUUID(rawCollector)
	if err != nil {
		return NewValidationError(c, "Invalid collector ID", []ValidationError{
			{Field: "collectorId", Message: "Must be a valid UUID"},
		})
	}

	dc, err := h.closeService.CloseDay(c.Request().Context(), workspaceID, actorFrom(c), day, collectorID)
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to close day")
	}

	return c.JSON(http.StatusCreated, toDailyCloseResponse(dc))
}

// GetClose handles GET /api/v1/closes/:date?collectorId=
func (h *CloseHandler) GetClose(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	day, err := util.ParseDate(c.Param("date"), h.clock.Now().Location())
	if err != nil {
		return NewValidationError(c, "Invalid date", []ValidationError{
			{Field: "date", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	collectorID, err := parseOptionalUUID(c.QueryParam("collectorId"))
	if err != nil {
		return NewValidationError(c, "Invalid collector ID", []ValidationError{
			{Field: "collectorId", Message: "Must be a valid UUID"},
		})
	}

	dc, err := h.closeService.GetClose(workspaceID, actorFrom(c), day, collectorID)
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to get close")
	}

	return c.JSON(http.StatusOK, toDailyCloseResponse(dc))
}

// ReopenDay handles DELETE /api/v1/closes/:id
func (h *CloseHandler) ReopenDay(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid close ID", []ValidationError{
			{Field: "id", Message: "Must be a positive integer"},
		})
	}

	if err := h.closeService.ReopenDay(c.Request().Context(), workspaceID, id); err != nil {
		return h.handleError(c, workspaceID, err, "Failed to reopen day")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *CloseHandler) handleError(c echo.Context, workspaceID int32, err error, msg string) error {
	switch {
	case errors.Is(err, domain.ErrDailyCloseNotFound):
		return NewNotFoundError(c, "Day is not closed")
	case errors.Is(err, domain.ErrDayAlreadyClosed):
		return NewConflictError(c, err.Error())
	case errors.Is(err, domain.ErrCloseOtherCollector):
		return NewForbiddenError(c, err.Error())
	case errors.Is(err, domain.ErrCloseDateInFuture):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "date", Message: err.Error()}})
	}
	log.Error().Err(err).Int32("workspace_id", workspaceID).Msg(msg)
	return NewInternalError(c, msg)
}

func toTierCountsResponse(counts domain.TierCounts) TierCountsResponse {
	return TierCountsResponse{
		Recent:        counts.Recent,
		OnTime:        counts.OnTime,
		MildArrears:   counts.MildArrears,
		SevereArrears: counts.SevereArrears,
		Unknown:       counts.Unknown,
	}
}

func toDailyCloseResponse(dc *domain.DailyClose) DailyCloseResponse {
	resp := DailyCloseResponse{
		ID:             dc.ID,
		WorkspaceID:    dc.WorkspaceID,
		CollectorID:    uuidString(dc.CollectorID),
		Date:           util.FormatDate(dc.Date),
		PaymentsCount:  dc.PaymentsCount,
		CollectedTotal: dc.CollectedTotal.StringFixed(2),
		ExpensesCount:  dc.ExpensesCount,
		ExpensesTotal:  dc.ExpensesTotal.StringFixed(2),
		LoansDisbursed: dc.LoansDisbursed,
		DisbursedTotal: dc.DisbursedTotal.StringFixed(2),
		NetCash:        dc.NetCash.StringFixed(2),
		Arrears:        toTierCountsResponse(dc.Arrears),
		HasSnapshot:    dc.SnapshotPath != nil,
	}
	if !dc.ClosedAt.IsZero() {
		closedBy := dc.ClosedBy.String()
		resp.ClosedBy = &closedBy
		resp.ClosedAt = formatTimePtr(&dc.ClosedAt)
	}
	return resp
}

func toCloseDayReportResponse(report *service.CloseDayReport) CloseDayReportResponse {
	resp := CloseDayReportResponse{
		Close:     toDailyCloseResponse(report.Close),
		Payments:  toPaymentResponses(report.Payments),
		Expenses:  make([]ExpenseResponse, len(report.Expenses)),
		Disbursed: make([]LoanResponse, len(report.Disbursed)),
	}
	for i, e := range report.Expenses {
		resp.Expenses[i] = toExpenseResponse(e)
	}
	for i, l := range report.Disbursed {
		resp.Disbursed[i] = toLoanResponse(l, nil)
	}
	return resp
}
