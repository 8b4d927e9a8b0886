package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/cache"
	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/middleware"
	"github.com/cobrodiario/cobrodiario-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *service.AuthService
	cache       cache.Cache
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService, c cache.Cache) *AuthHandler {
	if c == nil {
		c = cache.NoOpCache{}
	}
	return &AuthHandler{
		authService: authService,
		cache:       c,
	}
}

// AuthCallbackResponse represents the response from the auth callback
type AuthCallbackResponse struct {
	User      UserResponse      `json:"user"`
	Workspace WorkspaceResponse `json:"workspace"`
	IsNewUser bool              `json:"isNewUser"`
}

// UserResponse represents a staff member in API responses
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	Pending   bool   `json:"pending"`
	CreatedAt string `json:"createdAt"`
}

// WorkspaceResponse represents a workspace in API responses
type WorkspaceResponse struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

// Callback handles the Auth0 callback after successful authentication.
// The caller may not be a member yet, so only the token is validated.
// POST /auth/callback
func (h *AuthHandler) Callback(c echo.Context) error {
	auth0ID := middleware.GetAuth0ID(c)
	if auth0ID == "" {
		log.Error().Msg("No Auth0 ID in context - middleware may not be configured")
		return NewUnauthorizedError(c, "Authentication required")
	}

	var email, name string
	if claims := middleware.GetCustomClaims(c); claims != nil {
		email = claims.Email
		name = claims.Name
	}

	result, err := h.authService.AuthenticateUser(auth0ID, email, name)
	if err != nil {
		if errors.Is(err, domain.ErrUserEmailRequired) {
			return NewValidationError(c, "Email is required for authentication", []ValidationError{
				{Field: "email", Message: "Email claim is missing from token"},
			})
		}
		if errors.Is(err, domain.ErrUserInactive) {
			return NewForbiddenError(c, "This account has been deactivated")
		}
		log.Error().Err(err).Str("auth0_id", auth0ID).Msg("Failed to authenticate user")
		return NewInternalError(c, "Failed to authenticate user")
	}

	return c.JSON(http.StatusOK, AuthCallbackResponse{
		User:      toUserResponse(result.User),
		Workspace: toWorkspaceResponse(result.Workspace),
		IsNewUser: result.IsNewUser,
	})
}

// Me returns the current authenticated member
// GET /auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	auth0ID := middleware.GetAuth0ID(c)
	if auth0ID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	workspaceID := middleware.GetWorkspaceID(c)
	if workspaceID == 0 {
		log.Error().Str("auth0_id", auth0ID).Msg("No workspace ID in context")
		return NewInternalError(c, "Workspace not available")
	}

	user, err := h.authService.GetUserByAuth0ID(auth0ID)
	if err != nil {
		log.Error().Err(err).Str("auth0_id", auth0ID).Msg("Failed to get user")
		return NewNotFoundError(c, "User not found")
	}

	workspace, err := h.authService.GetWorkspaceByID(workspaceID)
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspaceID).Msg("Failed to get workspace")
		return NewInternalError(c, "Failed to get workspace")
	}

	return c.JSON(http.StatusOK, AuthCallbackResponse{
		User:      toUserResponse(user),
		Workspace: toWorkspaceResponse(workspace),
	})
}

// LogoutResponse represents the response from logout
type LogoutResponse struct {
	Message string `json:"message"`
}

// Logout drops the cached queries of the caller's workspace
// POST /auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	auth0ID := middleware.GetAuth0ID(c)
	if auth0ID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	if workspaceID := middleware.GetWorkspaceID(c); workspaceID != 0 {
		h.cache.RemovePrefix(cache.WorkspacePrefix(workspaceID))
	}

	log.Info().Str("auth0_id", auth0ID).Msg("User logged out")

	// Auth0 handles actual session termination
	return c.JSON(http.StatusOK, LogoutResponse{
		Message: "Logged out successfully",
	})
}

func toUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		Active:    user.Active,
		Pending:   user.Auth0ID == nil,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func toWorkspaceResponse(workspace *domain.Workspace) WorkspaceResponse {
	return WorkspaceResponse{
		ID:   workspace.ID,
		Name: workspace.Name,
	}
}
