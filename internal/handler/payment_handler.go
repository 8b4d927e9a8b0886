package handler

import (
	"errors"
	"io"
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

// PaymentHandler handles payment and receipt HTTP requests
type PaymentHandler struct {
	paymentService *service.PaymentService
	receiptService *service.ReceiptService
	clock          util.Clock
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *service.PaymentService, receiptService *service.ReceiptService, clock util.Clock) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		receiptService: receiptService,
		clock:          clock,
	}
}

// RegisterPaymentRequest represents the register payment request body
type RegisterPaymentRequest struct {
	Amount string  `json:"amount"`
	PaidAt string  `json:"paidAt,omitempty"` // RFC3339, defaults to now
	Notes  *string `json:"notes,omitempty"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID          int32   `json:"id"`
	WorkspaceID int32   `json:"workspaceId"`
	LoanID      int32   `json:"loanId"`
	CollectorID *string `json:"collectorId,omitempty"`
	Amount      string  `json:"amount"`
	PaidAt      string  `json:"paidAt"`
	Notes       *string `json:"notes,omitempty"`
	HasReceipt  bool    `json:"hasReceipt"`
	CreatedAt   string  `json:"createdAt"`
}

// PaymentResultResponse is a recorded payment together with the updated loan
type PaymentResultResponse struct {
	Payment PaymentResponse `json:"payment"`
	Loan    LoanResponse    `json:"loan"`
}

// ReceiptResponse represents a receipt download link
type ReceiptResponse struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expiresAt"`
}

// RegisterPayment handles POST /api/v1/loans/:id/payments
func (h *PaymentHandler) RegisterPayment(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	loanID, ok := parseIDParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid loan ID", []ValidationError{
			{Field: "id", Message: "Must be a positive integer"},
		})
	}

	var req RegisterPaymentRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return NewValidationError(c, "Invalid amount", []ValidationError{
			{Field: "amount", Message: "Must be a valid decimal number"},
		})
	}

	input := service.RegisterPaymentInput{
		LoanID: loanID,
		Amount: amount,
		Notes:  req.Notes,
	}
	if req.PaidAt != "" {
		paidAt, err := time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			return NewValidationError(c, "Invalid payment date", []ValidationError{
				{Field: "paidAt", Message: "Must be an RFC3339 timestamp"},
			})
		}
		input.PaidAt = &paidAt
	}

	result, err := h.paymentService.RegisterPayment(workspaceID, actorFrom(c), input)
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to register payment")
	}

	return c.JSON(http.StatusCreated, PaymentResultResponse{
		Payment: toPaymentResponse(result.Payment),
		Loan:    toLoanResponse(result.Loan, nil),
	})
}

// GetLoanPayments handles GET /api/v1/loans/:id/payments
func (h *PaymentHandler) GetLoanPayments(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	loanID, ok := parseIDParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid loan ID", []ValidationError{
			{Field: "id", Message: "Must be a positive integer"},
		})
	}

	payments, err := h.paymentService.GetPaymentsByLoan(workspaceID, actorFrom(c), loanID)
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to get payments")
	}

	return c.JSON(http.StatusOK, toPaymentResponses(payments))
}

// GetPaymentsByDay handles GET /api/v1/payments?date=&collectorId=
func (h *PaymentHandler) GetPaymentsByDay(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	day := util.StartOfDay(h.clock.Now())
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := util.ParseDate(raw, h.location())
		if err != nil {
			return NewValidationError(c, "Invalid date", []ValidationError{
				{Field: "date", Message: "Must be in YYYY-MM-DD format"},
			})
		}
		day = parsed
	}

	collectorID, err := parseOptionalUUID(c.QueryParam("collectorId"))
	if err != nil {
		return NewValidationError(c, "Invalid collector ID", []ValidationError{
			{Field: "collectorId", Message: "Must be a valid UUID"},
		})
	}

	payments, err := h.paymentService.GetPaymentsByDay(workspaceID, actorFrom(c), day, collectorID)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to get payments")
		return NewInternalError(c, "Failed to get payments")
	}

	return c.JSON(http.StatusOK, toPaymentResponses(payments))
}

// DeletePayment handles DELETE /api/v1/payments/:id
func (h *PaymentHandler) DeletePayment(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid payment ID", []ValidationError{
			{Field: "id", Message: "Must be a positive integer"},
		})
	}

	loan, err := h.paymentService.DeletePayment(c.Request().Context(), workspaceID, id)
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to delete payment")
	}

	return c.JSON(http.StatusOK, toLoanResponse(loan, nil))
}

// UploadReceipt handles POST /api/v1/payments/:id/receipt
func (h *PaymentHandler) UploadReceipt(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	if !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipt uploads are disabled (storage not configured)")
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid payment ID", []ValidationError{
			{Field: "id", Message: "Must be a positive integer"},
		})
	}

	if _, err := h.paymentService.GetPayment(workspaceID, actorFrom(c), id); err != nil {
		return h.handleError(c, workspaceID, err, "Failed to upload receipt")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return NewValidationError(c, "No file provided", []ValidationError{
			{Field: "file", Message: "File is required"},
		})
	}
	if file.Size > service.MaxImageSize {
		return NewPayloadTooLargeError(c, "File too large. Maximum size is 5MB")
	}

	src, err := file.Open()
	if err != nil {
		log.Error().Err(err).Msg("Failed to open uploaded file")
		return NewInternalError(c, "Failed to process file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, service.MaxImageSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		return NewInternalError(c, "Failed to read file")
	}

	receipt, err := h.receiptService.UploadReceipt(c.Request().Context(), workspaceID, id, data, file.Filename)
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to upload receipt")
	}

	log.Info().
		Int32("workspace_id", workspaceID).
		Int32("payment_id", id).
		Str("path", receipt.Path).
		Msg("Receipt uploaded")

	return c.JSON(http.StatusCreated, toReceiptResponse(receipt))
}

// GetReceipt handles GET /api/v1/payments/:id/receipt
func (h *PaymentHandler) GetReceipt(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	if !h.receiptService.IsEnabled() {
		return NewServiceUnavailableError(c, "Receipts are disabled (storage not configured)")
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid payment ID", []ValidationError{
			{Field: "id", Message: "Must be a positive integer"},
		})
	}

	if _, err := h.paymentService.GetPayment(workspaceID, actorFrom(c), id); err != nil {
		return h.handleError(c, workspaceID, err, "Failed to get receipt")
	}

	receipt, err := h.receiptService.GetReceipt(c.Request().Context(), workspaceID, id)
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to get receipt")
	}

	return c.JSON(http.StatusOK, toReceiptResponse(receipt))
}

func (h *PaymentHandler) handleError(c echo.Context, workspaceID int32, err error, msg string) error {
	switch {
	case errors.Is(err, domain.ErrLoanNotFound):
		return NewNotFoundError(c, "Loan not found")
	case errors.Is(err, domain.ErrPaymentNotFound):
		return NewNotFoundError(c, "Payment not found")
	case errors.Is(err, service.ErrReceiptNotFound):
		return NewNotFoundError(c, "Payment has no receipt")
	case errors.Is(err, domain.ErrLoanNotActive), errors.Is(err, domain.ErrDayClosed):
		return NewConflictError(c, err.Error())
	case errors.Is(err, domain.ErrPaymentAmountInvalid), errors.Is(err, domain.ErrPaymentExceedsBalance):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "amount", Message: err.Error()}})
	case errors.Is(err, domain.ErrPaymentInFuture):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "paidAt", Message: err.Error()}})
	case errors.Is(err, domain.ErrLoanNotesTooLong):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "notes", Message: err.Error()}})
	case errors.Is(err, service.ErrImageTooLarge):
		return NewPayloadTooLargeError(c, "File too large. Maximum size is 5MB")
	case errors.Is(err, service.ErrInvalidFormat):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "file", Message: "Invalid format. Supported: JPEG, PNG, WebP"},
		})
	case errors.Is(err, service.ErrImageTooSmall):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "file", Message: "Image too small. Minimum 50x50 pixels"},
		})
	case errors.Is(err, service.ErrInvalidImageData):
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: "file", Message: "Invalid image data"},
		})
	case errors.Is(err, service.ErrImageStorageNotConfigured):
		return NewServiceUnavailableError(c, "Receipts are disabled (storage not configured)")
	}
	log.Error().Err(err).Int32("workspace_id", workspaceID).Msg(msg)
	return NewInternalError(c, msg)
}

func toPaymentResponse(payment *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          payment.ID,
		WorkspaceID: payment.WorkspaceID,
		LoanID:      payment.LoanID,
		CollectorID: uuidString(payment.CollectorID),
		Amount:      payment.Amount.StringFixed(2),
		PaidAt:      payment.PaidAt.Format(time.RFC3339),
		Notes:       payment.Notes,
		HasReceipt:  payment.ReceiptPath != nil,
		CreatedAt:   payment.CreatedAt.Format(time.RFC3339),
	}
}

func toPaymentResponses(payments []*domain.Payment) []PaymentResponse {
	response := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		response[i] = toPaymentResponse(p)
	}
	return response
}

func toReceiptResponse(receipt *service.Receipt) ReceiptResponse {
	return ReceiptResponse{
		URL:       receipt.URL,
		ExpiresAt: receipt.ExpiresAt.Format(time.RFC3339),
	}
}

func (h *PaymentHandler) location() *time.Location {
	return h.clock.Now().Location()
}
