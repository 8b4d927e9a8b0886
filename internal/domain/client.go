package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClientNotFound       = errors.New("client not found")
	ErrClientHasActiveLoans = errors.New("client has active loans")
	ErrClientNotesTooLong   = errors.New("notes must be 500 characters or less")
)

type Client struct {
	ID          int32      `json:"id"`
	WorkspaceID int32      `json:"workspaceId"`
	Name        string     `json:"name"`
	DocumentID  *string    `json:"documentId,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Address     *string    `json:"address,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	CollectorID *uuid.UUID `json:"collectorId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

func (c *Client) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrNameRequired
	}
	if len(name) > MaxClientNameLength {
		return ErrNameTooLong
	}
	if c.Notes != nil && len(*c.Notes) > MaxNotesLength {
		return ErrClientNotesTooLong
	}
	return nil
}

// ClientFilter narrows client listings. Zero values mean "any".
type ClientFilter struct {
	Search      string
	CollectorID *uuid.UUID
}

type ClientRepository interface {
	Create(client *Client) (*Client, error)
	GetByID(workspaceID int32, id int32) (*Client, error)
	List(workspaceID int32, filter ClientFilter) ([]*Client, error)
	Update(client *Client) (*Client, error)
	SoftDelete(workspaceID int32, id int32) error
}
