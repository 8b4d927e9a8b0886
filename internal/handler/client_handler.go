package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/middleware"
	"github.com/cobrodiario/cobrodiario-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ClientHandler handles borrower-related HTTP requests
type ClientHandler struct {
	clientService *service.ClientService
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(clientService *service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// ClientRequest represents the create/update client request body
type ClientRequest struct {
	Name        string  `json:"name"`
	DocumentID  *string `json:"documentId,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	CollectorID *string `json:"collectorId,omitempty"`
}

// ClientResponse represents a client in API responses
type ClientResponse struct {
	ID          int32   `json:"id"`
	WorkspaceID int32   `json:"workspaceId"`
	Name        string  `json:"name"`
	DocumentID  *string `json:"documentId,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	CollectorID *string `json:"collectorId,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// ListClients handles GET /api/v1/clients?search=&collectorId=
func (h *ClientHandler) ListClients(c echo.Context) error {
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

	clients, err := h.clientService.ListClients(workspaceID, domain.ClientFilter{
		Search:      c.QueryParam("search"),
		CollectorID: actorFrom(c).ScopeOr(collectorID),
	})
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to list clients")
		return NewInternalError(c, "Failed to list clients")
	}

	response := make([]ClientResponse, len(clients))
	for i, client := range clients {
		response[i] = toClientResponse(client)
	}
	return c.JSON(http.StatusOK, response)
}

// CreateClient handles POST /api/v1/clients
func (h *ClientHandler) CreateClient(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	input, verr := h.bindClientInput(c)
	if verr != nil {
		return verr
	}
	// clients created by a collector are assigned to them
	if scope := actorFrom(c).Scope(); scope != nil {
		input.CollectorID = scope
	}

	client, err := h.clientService.CreateClient(workspaceID, input)
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to create client")
	}

	return c.JSON(http.StatusCreated, toClientResponse(client))
}

// GetClient handles GET /api/v1/clients/:id
func (h *ClientHandler) GetClient(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid client ID", []ValidationError{
			{Field: "id", Message: "Must be a positive integer"},
		})
	}

	client, err := h.clientService.GetClient(workspaceID, actorFrom(c), id)
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to get client")
	}

	return c.JSON(http.StatusOK, toClientResponse(client))
}

// UpdateClient handles PUT /api/v1/clients/:id
func (h *ClientHandler) UpdateClient(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid client ID", []ValidationError{
			{Field: "id", Message: "Must be a positive integer"},
		})
	}

	input, verr := h.bindClientInput(c)
	if verr != nil {
		return verr
	}

	client, err := h.clientService.UpdateClient(workspaceID, actorFrom(c), id, input)
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to update client")
	}

	return c.JSON(http.StatusOK, toClientResponse(client))
}

// DeleteClient handles DELETE /api/v1/clients/:id
func (h *ClientHandler) DeleteClient(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return NewValidationError(c, "Invalid client ID", []ValidationError{
			{Field: "id", Message: "Must be a positive integer"},
		})
	}

	if err := h.clientService.DeleteClient(workspaceID, actorFrom(c), id); err != nil {
		return h.handleError(c, workspaceID, err, "Failed to delete client")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *ClientHandler) bindClientInput(c echo.Context) (service.ClientInput, error) {
	var req ClientRequest
	if err := c.Bind(&req); err != nil {
		return service.ClientInput{}, NewValidationError(c, "Invalid request body", nil)
	}

	var collectorID string
	if req.CollectorID != nil {
		collectorID = *req.CollectorID
	}
	parsed, err := parseOptionalUUID(collectorID)
	if err != nil {
		return service.ClientInput{}, NewValidationError(c, "Invalid collector ID", []ValidationError{
			{Field: "collectorId", Message: "Must be a valid UUID"},
		})
	}

	return service.ClientInput{
		Name:        req.Name,
		DocumentID:  req.DocumentID,
		Phone:       req.Phone,
		Address:     req.Address,
		Notes:       req.Notes,
		CollectorID: parsed,
	}, nil
}

func (h *ClientHandler) handleError(c echo.Context, workspaceID int32, err error, msg string) error {
	switch {
	case errors.Is(err, domain.ErrClientNotFound):
		return NewNotFoundError(c, "Client not found")
	case errors.Is(err, domain.ErrClientHasActiveLoans):
		return NewConflictError(c, "Client has active loans and cannot be deleted")
	case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrNameTooLong):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "name", Message: err.Error()}})
	case errors.Is(err, domain.ErrClientNotesTooLong):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "notes", Message: err.Error()}})
	case errors.Is(err, domain.ErrLoanCollectorInvalid):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "collectorId", Message: err.Error()}})
	}
	log.Error().Err(err).Int32("workspace_id", workspaceID).Msg(msg)
	return NewInternalError(c, msg)
}

func toClientResponse(client *domain.Client) ClientResponse {
	return ClientResponse{
		ID:          client.ID,
		WorkspaceID: client.WorkspaceID,
		Name:        client.Name,
		DocumentID:  client.DocumentID,
		Phone:       client.Phone,
		Address:     client.Address,
		Notes:       client.Notes,
		CollectorID: uuidString(client.CollectorID),
		CreatedAt:   client.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   client.UpdatedAt.Format(time.RFC3339),
	}
}
