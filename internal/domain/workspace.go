package domain

import (
	"time"
)

// Workspace represents one lending business
type Workspace struct {
	ID        int32     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WorkspaceRepository defines the interface for workspace persistence operations
type WorkspaceRepository interface {
	GetByID(id int32) (*Workspace, error)
	GetAllIDs() ([]int32, error)
	Create(workspace *Workspace) (*Workspace, error)
}
