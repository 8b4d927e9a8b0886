package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/middleware"
	"github.com/cobrodiario/cobrodiario-backend/internal/service"
	"github.com/cobrodiario/cobrodiario-backend/internal/util"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// LoanHandler handles loan-related HTTP requests
type LoanHandler struct {
	loanService *service.LoanService
	clock       util.Clock
}

// NewLoanHandler creates a new LoanHandler. Dates in requests are calendar days in the clock's location.
func NewLoanHandler(loanService *service.LoanService, clock util.Clock) *LoanHandler {
	return &LoanHandler{loanService: loanService, clock: clock}
}

// LoanTermsRequest represents the financial terms of a new loan
type LoanTermsRequest struct {
	Amount       string `json:"amount"`
	InterestRate string `json:"interestRate"`
	TermDays     int32  `json:"termDays"`
	StartDate    string `json:"startDate,omitempty"` // defaults to today
}

// CreateLoanRequest represents the create loan request body
type CreateLoanRequest struct {
	LoanTermsRequest
	ClientID    int32   `json:"clientId"`
	CollectorID *string `json:"collectorId,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// UpdateLoanRequest represents the update loan request body.
// Financial terms are locked after creation.
type UpdateLoanRequest struct {
	Notes       *string `json:"notes,omitempty"`
	CollectorID *string `json:"collectorId,omitempty"`
}

// EvaluateLoanRequest is a raw loan snapshot to classify
type EvaluateLoanRequest struct {
	Amount          string  `json:"amount"`
	Interest        string  `json:"interest"`
	Fee             string  `json:"fee"`
	StartDate       string  `json:"startDate"`
	RemainingAmount *string `json:"remainingAmount"`
	ReferenceDate   string  `json:"referenceDate,omitempty"`
}

// LoanResponse represents a loan in API responses
type LoanResponse struct {
	ID              int32               `json:"id"`
	WorkspaceID     int32               `json:"workspaceId"`
	ClientID        int32               `json:"clientId"`
	CollectorID     *string             `json:"collectorId,omitempty"`
	Amount          string              `json:"amount"`
	InterestRate    string              `json:"interestRate"`
	Interest        string              `json:"interest"`
	Fee             string              `json:"fee"`
	TermDays        int32               `json:"termDays"`
	StartDate       string              `json:"startDate"`
	EndDate         string              `json:"endDate"`
	RemainingAmount string              `json:"remainingAmount"`
	Status          string              `json:"status"`
	Notes           *string             `json:"notes,omitempty"`
	LoanStatus      *LoanStatusResponse `json:"loanStatus,omitempty"`
	CreatedAt       string              `json:"createdAt"`
	UpdatedAt       string              `json:"updatedAt"`
}

// LoanDetailResponse is a loan with its payment history
type LoanDetailResponse struct {
	LoanResponse
	Payments []PaymentResponse `json:"payments"`
}

// LoanStatusResponse represents an evaluated collection status
type LoanStatusResponse struct {
	Tier        string `json:"tier"`
	Label       string `json:"label"`
	Severity    string `json:"severity"`
	DaysOverdue int    `json:"daysOverdue"`
	DaysElapsed int    `json:"daysElapsed"`
	TotalDue    string `json:"totalDue"`
	TotalPaid   string `json:"totalPaid"`
	Debt        string `json:"debt"`
}

// LoanTermsResponse represents the preview of a loan
type LoanTermsResponse struct {
	Amount          string `json:"amount"`
	InterestRate    string `json:"interestRate"`
	Interest        string `json:"interest"`
	Fee             string `json:"fee"`
	TotalObligation string `json:"totalObligation"`
	TermDays        int32  `json:"termDays"`
	StartDate       string `json:"startDate"`
	EndDate         string `json:"endDate"`
}

// ListLoans handles GET /api/v1/loans?status=&clientId=&collectorId=&tier=
func (h *LoanHandler) ListLoans(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	filter := service.LoanListFilter{
		LoanFilter: domain.LoanFilter{Status: c.QueryParam("status")},
		Tier:       domain.LoanStatusTier(c.QueryParam("tier")),
	}
	if raw := c.QueryParam("clientId"); raw != "" {
		clientID, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || clientID <= 0 {
			return NewValidationError(c, "Invalid client ID", []ValidationError{
				{Field: "clientId", Message: "Must be a positive integer"},
			})
		}
		filter.ClientID = int32(clientID)
	}
	collectorID, err := parseOptionalUUID(c.QueryParam("collectorId"))
	if err != nil {
		return NewValidationError(c, "Invalid collector ID", []ValidationError{
			{Field: "collectorId", Message: "Must be a valid UUID"},
		})
	}
	filter.CollectorID = actorFrom(c).ScopeOr(collectorID)

	loans, err := h.loanService.ListLoans(workspaceID, filter)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidLoanStatus) {
			return NewValidationError(c, err.Error(), []ValidationError{{Field: "status", Message: err.Error()}})
		}
		if errors.Is(err, domain.ErrInvalidTier) {
			return NewValidationError(c, err.Error(), []ValidationError{{Field: "tier", Message: err.Error()}})
		}
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to list loans")
		return NewInternalError(c, "Failed to list loans")
	}

	response := make([]LoanResponse, len(loans))
	for i, loan := range loans {
		response[i] = toLoanResponse(loan.Loan, loan.LoanStatus)
	}
	return c.JSON(http.StatusOK, response)
}

// PreviewLoan handles POST /api/v1/loans/preview
func (h *LoanHandler) PreviewLoan(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req LoanTermsRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	input, verr := h.parseTerms(c, req)
	if verr != nil {
		return verr
	}

	terms, err := h.loanService.PreviewLoan(input)
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to preview loan")
	}

	return c.JSON(http.StatusOK, LoanTermsResponse{
		Amount:          terms.Amount.StringFixed(2),
		InterestRate:    terms.InterestRate.StringFixed(2),
		Interest:        terms.Interest.StringFixed(2),
		Fee:             terms.Fee.StringFixed(2),
		TotalObligation: terms.TotalObligation.StringFixed(2),
		TermDays:        terms.TermDays,
		StartDate:       util.FormatDate(terms.StartDate),
		EndDate:         util.FormatDate(terms.EndDate),
	})
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	terms, verr := h.parseTerms(c, req.LoanTermsRequest)
	if verr != nil {
		return verr
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
	if scope := actorFrom(c).Scope(); scope != nil {
		collectorID = scope
	}

	loan, err := h.loanService.CreateLoan(workspaceID, service.CreateLoanInput{
		LoanTermsInput: terms,
		ClientID:       req.ClientID,
		CollectorID:    collectorID,
		Notes:          req.Notes,
	})
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to create loan")
	}

	return c.JSON(http.StatusCreated, toLoanResponse(loan, nil))
}

// GetLoan handles GET /api/v1/loans/:id
func (h *LoanHandler) GetLoan(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid loan ID", []ValidationError{
			{Field: "id", Message: "Must be a positive integer"},
		})
	}

	detail, err := h.loanService.GetLoan(workspaceID, id, actorFrom(c).Scope())
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to get loan")
	}

	payments := make([]PaymentResponse, len(detail.Payments))
	for i, p := range detail.Payments {
		payments[i] = toPaymentResponse(p)
	}
	return c.JSON(http.StatusOK, LoanDetailResponse{
		LoanResponse: toLoanResponse(detail.Loan, detail.LoanStatus),
		Payments:     payments,
	})
}

// UpdateLoan handles PUT /api/v1/loans/:id
func (h *LoanHandler) UpdateLoan(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid loan ID", []ValidationError{
			{Field: "id", Message: "Must be a positive integer"},
		})
	}

	var req UpdateLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
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

	actor := actorFrom(c)
	if !actor.IsManager() {
		// collectors may annotate their own loans but not reassign them
		current, err := h.loanService.GetLoan(workspaceID, id, actor.Scope())
		if err != nil {
			return h.handleError(c, workspaceID, err, "Failed to update loan")
		}
		collectorID = current.CollectorID
	}

	loan, err := h.loanService.UpdateLoan(workspaceID, id, service.UpdateLoanInput{
		Notes:       req.Notes,
		CollectorID: collectorID,
	})
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to update loan")
	}

	return c.JSON(http.StatusOK, toLoanResponse(loan, nil))
}

// CancelLoan handles POST /api/v1/loans/:id/cancel
func (h *LoanHandler) CancelLoan(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid loan ID", []ValidationError{
			{Field: "id", Message: "Must be a positive integer"},
		})
	}

	loan, err := h.loanService.CancelLoan(workspaceID, id)
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to cancel loan")
	}

	return c.JSON(http.StatusOK, toLoanResponse(loan, nil))
}

// EvaluateStatus handles POST /api/v1/loans/status/evaluate
func (h *LoanHandler) EvaluateStatus(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req EvaluateLoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var errs []ValidationError
	parse := func(field, value string) decimal.Decimal {
		d, err := decimal.NewFromString(value)
		if err != nil {
			errs = append(errs, ValidationError{Field: field, Message: "Must be a valid decimal number"})
		}
		return d
	}
	snapshot := domain.LoanSnapshot{
		Amount:    parse("amount", req.Amount),
		Interest:  parse("interest", req.Interest),
		Fee:       parse("fee", req.Fee),
		StartDate: req.StartDate,
	}
	if req.RemainingAmount != nil {
		remaining := parse("remainingAmount", *req.RemainingAmount)
		snapshot.RemainingAmount = &remaining
	}
	reference, err := parseOptionalDate(req.ReferenceDate, h.location())
	if err != nil {
		errs = append(errs, ValidationError{Field: "referenceDate", Message: "Must be a date (YYYY-MM-DD) or RFC3339 timestamp"})
	}
	if len(errs) > 0 {
		return NewValidationError(c, "Invalid loan snapshot", errs)
	}

	status, err := h.loanService.EvaluateSnapshot(snapshot, reference)
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to evaluate loan status")
	}

	return c.JSON(http.StatusOK, toLoanStatusResponse(status))
}

func (h *LoanHandler) parseTerms(c echo.Context, req LoanTermsRequest) (service.LoanTermsInput, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return service.LoanTermsInput{}, NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}
	rate, err := decimal.NewFromString(req.InterestRate)
	if err != nil {
		return service.LoanTermsInput{}, NewValidationError(c, "Invalid interest rate", []ValidationError{
			{Field: "interestRate", Message: "Must be a valid decimal number"},
		})
	}
	start, err := parseOptionalDate(req.StartDate, h.location())
	if err != nil {
		return service.LoanTermsInput{}, NewValidationError(c, "Invalid start date", []ValidationError{
			{Field: "startDate", Message: "Must be in YYYY-MM-DD format"},
		})
	}
	return service.LoanTermsInput{
		Amount:       amount,
		InterestRate: rate,
		TermDays:     req.TermDays,
		StartDate:    start,
	}, nil
}

func (h *LoanHandler) handleError(c echo.Context, workspaceID int32, err error, msg string) error {
	field := ""
	switch {
	case errors.Is(err, domain.ErrLoanNotFound):
		return NewNotFoundError(c, "Loan not found")
	case errors.Is(err, domain.ErrLoanNotActive), errors.Is(err, domain.ErrLoanHasPayments):
		return NewConflictError(c, err.Error())
	case errors.Is(err, domain.ErrLoanAmountInvalid):
		field = "amount"
	case errors.Is(err, domain.ErrLoanInterestInvalid):
		field = "interestRate"
	case errors.Is(err, domain.ErrLoanTermInvalid):
		field = "termDays"
	case errors.Is(err, domain.ErrLoanClientInvalid):
		field = "clientId"
	case errors.Is(err, domain.ErrLoanCollectorInvalid):
		field = "collectorId"
	case errors.Is(err, domain.ErrLoanNotesTooLong):
		field = "notes"
	case errors.Is(err, domain.ErrLoanStartDateInFuture), errors.Is(err, domain.ErrInvalidStartDate):
		field = "startDate"
	case errors.Is(err, domain.ErrLoanFeeInvalid):
		field = "fee"
	default:
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg(msg)
		return NewInternalError(c, msg)
	}
	return NewValidationError(c, err.Error(), []ValidationError{{Field: field, Message: err.Error()}})
}

func toLoanResponse(loan *domain.Loan, status *domain.LoanStatus) LoanResponse {
	resp := LoanResponse{
		ID:              loan.ID,
		WorkspaceID:     loan.WorkspaceID,
		ClientID:        loan.ClientID,
		CollectorID:     uuidString(loan.CollectorID),
		Amount:          loan.Amount.StringFixed(2),
		InterestRate:    loan.InterestRate.StringFixed(2),
		Interest:        loan.Interest.StringFixed(2),
		Fee:             loan.Fee.StringFixed(2),
		TermDays:        loan.TermDays,
		StartDate:       util.FormatDate(loan.StartDate),
		EndDate:         util.FormatDate(loan.EndDate()),
		RemainingAmount: loan.RemainingAmount.StringFixed(2),
		Status:          loan.Status,
		Notes:           loan.Notes,
		CreatedAt:       loan.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       loan.UpdatedAt.Format(time.RFC3339),
	}
	if status != nil {
		s := toLoanStatusResponse(status)
		resp.LoanStatus = &s
	}
	return resp
}

func toLoanStatusResponse(status *domain.LoanStatus) LoanStatusResponse {
	return LoanStatusResponse{
		Tier:        string(status.Tier),
		Label:       status.Label,
		Severity:    status.Severity,
		DaysOverdue: status.DaysOverdue,
		DaysElapsed: status.DaysElapsed,
		TotalDue:    status.TotalDue.StringFixed(2),
		TotalPaid:   status.TotalPaid.StringFixed(2),
		Debt:        status.Debt.StringFixed(2),
	}
}

func (h *LoanHandler) location() *time.Location {
	return h.clock.Now().Location()
}
