package service

import (
	"strings"

	"github.com/cobrodiario/cobrodiario-backend/internal/cache"
	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const clientsCacheQuery = "clients"

// ClientService handles borrower-related business logic
type ClientService struct {
	clientRepo domain.ClientRepository
	loanRepo   domain.LoanRepository
	collectors *CollectorService
	cache      cache.Cache
}

// NewClientService creates a new ClientService
func NewClientService(clientRepo domain.ClientRepository, loanRepo domain.LoanRepository, collectors *CollectorService, c cache.Cache) *ClientService {
	if c == nil {
		c = cache.NoOpCache{}
	}
	return &ClientService{
		clientRepo: clientRepo,
		loanRepo:   loanRepo,
		collectors: collectors,
		cache:      c,
	}
}

// ClientInput contains the editable fields of a client
type ClientInput struct {
	Name        string
	DocumentID  *string
	Phone       *string
	Address     *string
	Notes       *string
	CollectorID *uuid.UUID
}

// CreateClient creates a new client
func (s *ClientService) CreateClient(workspaceID int32, input ClientInput) (*domain.Client, error) {
	client := &domain.Client{WorkspaceID: workspaceID}
	applyClientInput(client, input)
	if err := client.Validate(); err != nil {
		return nil, err
	}
	if err := s.collectors.ValidateCollector(workspaceID, client.CollectorID); err != nil {
		return nil, err
	}

	created, err := s.clientRepo.Create(client)
	if err != nil {
		return nil, err
	}
	s.invalidate(workspaceID)
	return created, nil
}

// GetClient retrieves a client by ID. Collectors only see their own clients.
func (s *ClientService) GetClient(workspaceID int32, actor Actor, id int32) (*domain.Client, error) {
	client, err := s.clientRepo.GetByID(workspaceID, id)
	if err != nil {
		return nil, err
	}
	scope := actor.Scope()
	if scope != nil && (client.CollectorID == nil || *client.CollectorID != *scope) {
		return nil, domain.ErrClientNotFound
	}
	return client, nil
}

// ListClients lists clients, read-through cached per filter
func (s *ClientService) ListClients(workspaceID int32, filter domain.ClientFilter) ([]*domain.Client, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	key := clientsCacheKey(workspaceID, filter)

	var cached []*domain.Client
	if cache.GetJSON(s.cache, key, &cached) {
		return cached, nil
	}

	clients, err := s.clientRepo.List(workspaceID, filter)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(s.cache, key, clients); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache client listing")
	}
	return clients, nil
}

// UpdateClient replaces the editable fields of a client. A collector's client stays assigned to them.
func (s *ClientService) UpdateClient(workspaceID int32, actor Actor, id int32, input ClientInput) (*domain.Client, error) {
	existing, err := s.GetClient(workspaceID, actor, id)
	if err != nil {
		return nil, err
	}
	if scope := actor.Scope(); scope != nil {
		input.CollectorID = scope
	}

	client := *existing
	applyClientInput(&client, input)
	if err := client.Validate(); err != nil {
		return nil, err
	}
	if err := s.collectors.ValidateCollector(workspaceID, client.CollectorID); err != nil {
		return nil, err
	}

	updated, err := s.clientRepo.Update(&client)
	if err != nil {
		return nil, err
	}
	s.invalidate(workspaceID)
	return updated, nil
}

// DeleteClient soft-deletes a client without active loans
func (s *ClientService) DeleteClient(workspaceID int32, actor Actor, id int32) error {
	if _, err := s.GetClient(workspaceID, actor, id); err != nil {
		return err
	}
	active, err := s.loanRepo.CountActiveByClient(workspaceID, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return domain.ErrClientHasActiveLoans
	}
	if err := s.clientRepo.SoftDelete(workspaceID, id); err != nil {
		return err
	}
	s.invalidate(workspaceID)
	return nil
}

func (s *ClientService) invalidate(workspaceID int32) {
	s.cache.RemovePrefix(cache.Key(workspaceID, clientsCacheQuery) + ":")
}

func clientsCacheKey(workspaceID int32, filter domain.ClientFilter) string {
	collector := "any"
	if filter.CollectorID != nil {
		collector = filter.CollectorID.String()
	}
	return cache.Key(workspaceID, clientsCacheQuery, strings.ToLower(filter.Search), collector)
}

func applyClientInput(client *domain.Client, input ClientInput) {
	client.Name = strings.TrimSpace(input.Name)
	client.DocumentID = trimmedOrNil(input.DocumentID)
	client.Phone = trimmedOrNil(input.Phone)
	client.Address = trimmedOrNil(input.Address)
	client.Notes = trimmedOrNil(input.Notes)
	client.CollectorID = input.CollectorID
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
