package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/middleware"
	"github.com/cobrodiario/cobrodiario-backend/internal/service"
	"github.com/cobrodiario/cobrodiario-backend/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ExpenseHandler handles operating expense requests
type ExpenseHandler struct {
	expenseService *service.ExpenseService
	clock          util.Clock
}

// NewExpenseHandler creates a new ExpenseHandler
func NewExpenseHandler(expenseService *service.ExpenseService, clock util.Clock) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService, clock: clock}
}

// CreateExpenseRequest represents the create expense request body
type CreateExpenseRequest struct {
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Amount      string  `json:"amount"`
	SpentOn     string  `json:"spentOn,omitempty"` // YYYY-MM-DD, defaults to today
	CollectorID *string `json:"collectorId,omitempty"`
}

// ExpenseResponse represents an expense in API responses
type ExpenseResponse struct {
	ID          int32   `json:"id"`
	WorkspaceID int32   `json:"workspaceId"`
	CollectorID *string `json:"collectorId,omitempty"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Amount      string  `json:"amount"`
	SpentOn     string  `json:"spentOn"`
	CreatedAt   string  `json:"createdAt"`
}

// GetExpenses handles GET /api/v1/expenses?from=&to=&collectorId=
// Both bounds default to today.
func (h *ExpenseHandler) GetExpenses(c echo.Context) error {
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
	collectorID, err := parseOptionalUUID(c.QueryParam("collectorId"))
	if err != nil {
		errs = append(errs, ValidationError{Field: "collectorId", Message: "Must be a valid UUID"})
	}
	if len(errs) > 0 {
		return NewValidationError(c, "Invalid query parameters", errs)
	}

	expenses, err := h.expenseService.GetExpenses(workspaceID, actorFrom(c), from, to, collectorID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDate) {
			return NewValidationError(c, "Invalid date range", []ValidationError{
				{Field: "to", Message: "Must not be before from"},
			})
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to get expenses")
		return NewInternalError(c, "Failed to get expenses")
	}

	response := make([]ExpenseResponse, len(expenses))
	for i, e := range expenses {
		response[i] = toExpenseResponse(e)
	}
	return c.JSON(http.StatusOK, response)
}

// CreateExpense handles POST /api/v1/expenses
func (h *ExpenseHandler) CreateExpense(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateExpenseRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}
	spentOn, err := parseOptionalDate(req.SpentOn, h.clock.Now().Location())
	if err != nil {
		return NewValidationError(c, "Invalid date", []ValidationError{
			{Field: "spentOn", Message: "Must be in YYYY-MM-DD format"},
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

	expense, err := h.expenseService.CreateExpense(workspaceID, actorFrom(c), service.CreateExpenseInput{
		Category:    req.Category,
		Description: req.Description,
		Amount:      amount,
		SpentOn:     spentOn,
		CollectorID: collectorID,
	})
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to create expense")
	}

	return c.JSON(http.StatusCreated, toExpenseResponse(expense))
}

// DeleteExpense handles DELETE /api/v1/expenses/:id
func (h *ExpenseHandler) DeleteExpense(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid expense ID", []ValidationError{
			{Field: "id", Message: "Must be a positive integer"},
		})
	}

	if err := h.expenseService.DeleteExpense(workspaceID, actorFrom(c), id); err != nil {
		return h.handleError(c, workspaceID, err, "Failed to delete expense")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *ExpenseHandler) handleError(c echo.Context, workspaceID int32, err error, msg string) error {
	var field string
	switch {
	case errors.Is(err, domain.ErrExpenseNotFound):
		return NewNotFoundError(c, "Expense not found")
	case errors.Is(err, domain.ErrDayClosed):
		return NewConflictError(c, err.Error())
	case errors.Is(err, domain.ErrExpenseAmountInvalid):
		field = "amount"
	case errors.Is(err, domain.ErrExpenseDescriptionEmpty), errors.Is(err, domain.ErrExpenseDescriptionTooLong):
		field = "description"
	case errors.Is(err, domain.ErrInvalidExpenseCategory):
		field = "category"
	case errors.Is(err, domain.ErrExpenseInFuture):
		field = "spentOn"
	case errors.Is(err, domain.ErrLoanCollectorInvalid):
		field = "collectorId"
	default:
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg(msg)
		return NewInternalError(c, msg)
	}
	return NewValidationError(c, err.Error(), []ValidationError{{Field: field, Message: err.Error()}})
}

func toExpenseResponse(expense *domain.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:          expense.ID,
		WorkspaceID: expense.WorkspaceID,
		CollectorID: uuidString(expense.CollectorID),
		Category:    expense.Category,
		Description: expense.Description,
		Amount:      expense.Amount.StringFixed(2),
		SpentOn:     util.FormatDate(expense.SpentOn),
		CreatedAt:   expense.CreatedAt.Format(time.RFC3339),
	}
}
