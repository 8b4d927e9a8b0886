package service

import (
	"errors"
	"strings"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CollectorService manages the staff of a workspace
type CollectorService struct {
	userRepo domain.UserRepository
}

// NewCollectorService creates a new CollectorService
func NewCollectorService(userRepo domain.UserRepository) *CollectorService {
	return &CollectorService{userRepo: userRepo}
}

// CreateCollectorInput contains the input for inviting a staff member
type CreateCollectorInput struct {
	Email string
	Name  string
	Role  string
}

// CreateCollector invites a staff member. The member links its Auth0 identity on first sign-in.
func (s *CollectorService) CreateCollector(workspaceID int32, input CreateCollectorInput) (*domain.User, error) {
	if input.Role == "" {
		input.Role = domain.RoleCollector
	}
	if input.Role == domain.RoleOwner {
		return nil, domain.ErrInvalidRole
	}

	user := &domain.User{
		WorkspaceID: workspaceID,
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		Name:        strings.TrimSpace(input.Name),
		Role:        input.Role,
		Active:      true,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByWorkspaceAndEmail(workspaceID, user.Email); err == nil {
		return nil, domain.ErrUserEmailExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	created, err := s.userRepo.Create(user)
	if err != nil {
		return nil, err
	}
	log.Info().Int32("workspace_id", workspaceID).Str("user_id", created.ID.String()).Str("role", created.Role).Msg("Staff member invited")
	return created, nil
}

// GetCollector retrieves a staff member
func (s *CollectorService) GetCollector(workspaceID int32, id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(workspaceID, id)
}

// ListCollectors lists the staff of a workspace
func (s *CollectorService) ListCollectors(workspaceID int32, activeOnly bool) ([]*domain.User, error) {
	return s.userRepo.ListByWorkspace(workspaceID, activeOnly)
}

// UpdateCollectorInput contains the editable fields of a staff member
type UpdateCollectorInput struct {
	Name string
	Role string
}

// UpdateCollector changes name and role. The owner cannot be modified and cannot be assigned.
func (s *CollectorService) UpdateCollector(workspaceID int32, id uuid.UUID, input UpdateCollectorInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleOwner {
		return nil, domain.ErrOwnerImmutable
	}
	if input.Role == domain.RoleOwner {
		return nil, domain.ErrInvalidRole
	}

	updated := *user
	updated.Name = strings.TrimSpace(input.Name)
	if input.Role != "" {
		updated.Role = input.Role
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	return s.userRepo.Update(&updated)
}

// SetCollectorActive deactivates or reactivates a staff member
func (s *CollectorService) SetCollectorActive(workspaceID int32, id uuid.UUID, active bool) (*domain.User, error) {
	user, err := s.userRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleOwner {
		return nil, domain.ErrOwnerImmutable
	}
	updated, err := s.userRepo.SetActive(workspaceID, id, active)
	if err != nil {
		return nil, err
	}
	log.Info().Int32("workspace_id", workspaceID).Str("user_id", id.String()).Bool("active", active).Msg("Staff member status changed")
	return updated, nil
}

// ValidateCollector checks that an optional collector reference points to an active member
func (s *CollectorService) ValidateCollector(workspaceID int32, collectorID *uuid.UUID) error {
	if collectorID == nil {
		return nil
	}
	user, err := s.userRepo.GetByID(workspaceID, *collectorID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrLoanCollectorInvalid
		}
		return err
	}
	if !user.Active {
		return domain.ErrLoanCollectorInvalid
	}
	return nil
}
