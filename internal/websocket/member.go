package websocket

import "github.com/google/uuid"

// Member identifies the staff member behind a connection
type Member struct {
	UserID uuid.UUID
	Role   string
}

// IsManager returns true for owners and admins
func (m Member) IsManager() bool {
	return m.Role == "owner" || m.Role == "admin"
}
