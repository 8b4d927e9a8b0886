package handler

import (
	"errors"
	"net/http"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/middleware"
	"github.com/cobrodiario/cobrodiario-backend/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CollectorHandler handles staff management requests
type CollectorHandler struct {
	collectorService *service.CollectorService
}

// NewCollectorHandler creates a new CollectorHandler
func NewCollectorHandler(collectorService *service.CollectorService) *CollectorHandler {
	return &CollectorHandler{collectorService: collectorService}
}

// CreateCollectorRequest represents the invite request body
type CreateCollectorRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// UpdateCollectorRequest represents the update request body
type UpdateCollectorRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// SetActiveRequest represents the activation toggle body
type SetActiveRequest struct {
	Active *bool `json:"active"`
}

// ListCollectors handles GET /api/v1/collectors
func (h *CollectorHandler) ListCollectors(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	activeOnly := c.QueryParam("active") == "true"
	users, err := h.collectorService.ListCollectors(workspaceID, activeOnly)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to list collectors")
		return NewInternalError(c, "Failed to list collectors")
	}

	response := make([]UserResponse, len(users))
	for i, u := range users {
		response[i] = toUserResponse(u)
	}
	return c.JSON(http.StatusOK, response)
}

// CreateCollector handles POST /api/v1/collectors
func (h *CollectorHandler) CreateCollector(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	var req CreateCollectorRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	user, err := h.collectorService.CreateCollector(workspaceID, service.CreateCollectorInput{
		Email: req.Email,
		Name:  req.Name,
		Role:  req.Role,
	})
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to create collector")
	}

	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// UpdateCollector handles PUT /api/v1/collectors/:id
func (h *CollectorHandler) UpdateCollector(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid collector ID", []ValidationError{
			{Field: "id", Message: "Must be a valid UUID"},
		})
	}

	var req UpdateCollectorRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	user, err := h.collectorService.UpdateCollector(workspaceID, id, service.UpdateCollectorInput{
		Name: req.Name,
		Role: req.Role,
	})
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to update collector")
	}

	return c.JSON(http.StatusOK, toUserResponse(user))
}

// SetCollectorActive handles PATCH /api/v1/collectors/:id/active
func (h *CollectorHandler) SetCollectorActive(c echo.Context) error {
	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		return NewUnauthorizedError(c, "Workspace required")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return NewValidationError(c, "Invalid collector ID", []ValidationError{
			{Field: "id", Message: "Must be a valid UUID"},
		})
	}

	var req SetActiveRequest
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return NewValidationError(c, "Invalid request body", []ValidationError{
			{Field: "active", Message: "Active flag is required"},
		})
	}

	if id == middleware.GetUserID(c) && !*req.Active {
		return NewConflictError(c, "You cannot deactivate yourself")
	}

	user, err := h.collectorService.SetCollectorActive(workspaceID, id, *req.Active)
	if err != nil {
		return h.handleError(c, workspaceID, err, "Failed to change collector status")
	}

	return c.JSON(http.StatusOK, toUserResponse(user))
}

func (h *CollectorHandler) handleError(c echo.Context, workspaceID int32, err error, msg string) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return NewNotFoundError(c, "Collector not found")
	case errors.Is(err, domain.ErrUserEmailExists):
		return NewConflictError(c, err.Error())
	case errors.Is(err, domain.ErrOwnerImmutable):
		return NewForbiddenError(c, err.Error())
	case errors.Is(err, domain.ErrUserEmailRequired):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "email", Message: err.Error()}})
	case errors.Is(err, domain.ErrInvalidRole):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "role", Message: err.Error()}})
	case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrNameTooLong):
		return NewValidationError(c, err.Error(), []ValidationError{{Field: "name", Message: err.Error()}})
	}
	log.Error().Err(err).Int32("workspace_id", workspaceID).Msg(msg)
	return NewInternalError(c, msg)
}
