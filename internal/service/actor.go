package service

import (
	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/google/uuid"
)

// Actor is the staff member performing an operation
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// IsManager returns true for owners and admins
func (a Actor) IsManager() bool {
	return a.Role == domain.RoleOwner || a.Role == domain.RoleAdmin
}

// Scope returns the collector filter implied by the actor: nil for managers,
// the actor's own ID for collectors
func (a Actor) Scope() *uuid.UUID {
	if a.IsManager() {
		return nil
	}
	id := a.UserID
	return &id
}

// ScopeOr narrows a requested collector filter to what the actor may see
func (a Actor) ScopeOr(requested *uuid.UUID) *uuid.UUID {
	if a.IsManager() {
		return requested
	}
	return a.Scope()
}
