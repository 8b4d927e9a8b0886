package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Staff roles
const (
	RoleOwner     = "owner"
	RoleAdmin     = "admin"
	RoleCollector = "collector"
)

var (
	ErrUserEmailRequired = errors.New("email is required")
	ErrUserEmailExists   = errors.New("a member with this email already exists")
	ErrInvalidRole       = errors.New("role must be 'admin' or 'collector'")
	ErrOwnerImmutable    = errors.New("the workspace owner cannot be modified")
)

// User represents a staff member of a lending workspace
type User struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID int32     `json:"workspaceId"`
	Auth0ID     *string   `json:"auth0Id,omitempty"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (u *User) Validate() error {
	if strings.TrimSpace(u.Email) == "" {
		return ErrUserEmailRequired
	}
	if strings.TrimSpace(u.Name) == "" {
		return ErrNameRequired
	}
	if len(u.Name) > MaxUserNameLength {
		return ErrNameTooLong
	}
	if !IsValidRole(u.Role) {
		return ErrInvalidRole
	}
	return nil
}

// IsValidRole checks if the given role exists
func IsValidRole(role string) bool {
	return role == RoleOwner || role == RoleAdmin || role == RoleCollector
}

// CanManage returns true for roles allowed to administer the workspace
func (u *User) CanManage() bool {
	return u.Role == RoleOwner || u.Role == RoleAdmin
}

// UserRepository defines the interface for staff persistence operations
type UserRepository interface {
	GetByID(workspaceID int32, id uuid.UUID) (*User, error)
	GetByAuth0ID(auth0ID string) (*User, error)
	GetPendingByEmail(email string) (*User, error)
	GetByWorkspaceAndEmail(workspaceID int32, email string) (*User, error)
	ListByWorkspace(workspaceID int32, activeOnly bool) ([]*User, error)
	Create(user *User) (*User, error)
	Update(user *User) (*User, error)
	LinkAuth0ID(id uuid.UUID, auth0ID string) (*User, error)
	SetActive(workspaceID int32, id uuid.UUID, active bool) (*User, error)
}
