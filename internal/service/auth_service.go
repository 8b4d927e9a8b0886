package service

import (
	"errors"
	"strings"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/cobrodiario/cobrodiario-backend/internal/middleware"
	"github.com/cobrodiario/cobrodiario-backend/internal/websocket"
	"github.com/rs/zerolog/log"
)

// AuthService handles authentication-related business logic
type AuthService struct {
	userRepo      domain.UserRepository
	workspaceRepo domain.WorkspaceRepository
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo domain.UserRepository, workspaceRepo domain.WorkspaceRepository) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		workspaceRepo: workspaceRepo,
	}
}

// AuthResult represents the result of an authentication operation
type AuthResult struct {
	User      *domain.User
	Workspace *domain.Workspace
	IsNewUser bool
}

// AuthenticateUser handles the sign-in flow after the Auth0 callback.
// Resolution order: member already linked to the Auth0 ID, then a pending
// invitation with the same email, then a brand new workspace owned by the caller.
func (s *AuthService) AuthenticateUser(auth0ID, email, name string) (*AuthResult, error) {
	user, err := s.userRepo.GetByAuth0ID(auth0ID)
	if err == nil {
		return s.resultFor(user, false)
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		log.Error().Err(err).Str("auth0_id", auth0ID).Msg("Failed to get user")
		return nil, err
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.ErrUserEmailRequired
	}

	invited, err := s.userRepo.GetPendingByEmail(email)
	if err == nil {
		user, err = s.userRepo.LinkAuth0ID(invited.ID, auth0ID)
		if err != nil {
			log.Error().Err(err).Str("user_id", invited.ID.String()).Msg("Failed to link invited member")
			return nil, err
		}
		log.Info().Str("user_id", user.ID.String()).Int32("workspace_id", user.WorkspaceID).Msg("Invited member signed in")
		return s.resultFor(user, false)
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	return s.createOwner(auth0ID, email, name)
}

// GetUserByAuth0ID retrieves a member by their Auth0 ID
func (s *AuthService) GetUserByAuth0ID(auth0ID string) (*domain.User, error) {
	return s.userRepo.GetByAuth0ID(auth0ID)
}

// GetWorkspaceByID retrieves a workspace by its ID
func (s *AuthService) GetWorkspaceByID(id int32) (*domain.Workspace, error) {
	return s.workspaceRepo.GetByID(id)
}

// GetMembershipByAuth0ID resolves a token subject for the HTTP auth middleware
func (s *AuthService) GetMembershipByAuth0ID(auth0ID string) (*middleware.Membership, error) {
	user, err := s.activeUser(auth0ID)
	if err != nil {
		return nil, err
	}
	return &middleware.Membership{
		WorkspaceID: user.WorkspaceID,
		UserID:      user.ID,
		Role:        user.Role,
	}, nil
}

// LookupMember resolves a token subject for websocket connections
func (s *AuthService) LookupMember(auth0ID string) (int32, websocket.Member, error) {
	user, err := s.activeUser(auth0ID)
	if err != nil {
		return 0, websocket.Member{}, err
	}
	return user.WorkspaceID, websocket.Member{UserID: user.ID, Role: user.Role}, nil
}

func (s *AuthService) activeUser(auth0ID string) (*domain.User, error) {
	user, err := s.userRepo.GetByAuth0ID(auth0ID)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, domain.ErrUserInactive
	}
	return user, nil
}

func (s *AuthService) resultFor(user *domain.User, isNew bool) (*AuthResult, error) {
	if !user.Active {
		return nil, domain.ErrUserInactive
	}
	workspace, err := s.workspaceRepo.GetByID(user.WorkspaceID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to get workspace")
		return nil, err
	}
	return &AuthResult{User: user, Workspace: workspace, IsNewUser: isNew}, nil
}

func (s *AuthService) createOwner(auth0ID, email, name string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = email
		if at := strings.Index(email, "@"); at > 0 {
			name = email[:at]
		}
	}
	if len(name) > domain.MaxUserNameLength {
		name = name[:domain.MaxUserNameLength]
	}

	workspace, err := s.workspaceRepo.Create(&domain.Workspace{Name: name})
	if err != nil {
		log.Error().Err(err).Str("auth0_id", auth0ID).Msg("Failed to create workspace")
		return nil, err
	}

	user, err := s.userRepo.Create(&domain.User{
		WorkspaceID: workspace.ID,
		Auth0ID:     &auth0ID,
		Email:       email,
		Name:        name,
		Role:        domain.RoleOwner,
		Active:      true,
	})
	if err != nil {
		log.Error().Err(err).Int32("workspace_id", workspace.ID).Msg("Failed to create owner")
		return nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Int32("workspace_id", workspace.ID).Msg("Created new owner with workspace")
	return &AuthResult{User: user, Workspace: workspace, IsNewUser: true}, nil
}
