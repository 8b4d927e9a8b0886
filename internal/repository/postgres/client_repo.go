package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClientRepository implements domain.ClientRepository using PostgreSQL
type ClientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository creates a new ClientRepository
func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

const clientColumns = `id, workspace_id, name, document_id, phone, address, notes, collector_id, created_at, updated_at, deleted_at`

// Create creates a new client
func (r *ClientRepository) Create(client *domain.Client) (*domain.Client, error) {
	row := r.pool.QueryRow(context.Background(), `INSERT INTO clients
		(workspace_id, name, document_id, phone, address, notes, collector_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+clientColumns,
		client.WorkspaceID,
		strings.TrimSpace(client.Name),
		stringPtrToPgText(client.DocumentID),
		stringPtrToPgText(client.Phone),
		stringPtrToPgText(client.Address),
		stringPtrToPgText(client.Notes),
		uuidPtrToPg(client.CollectorID),
	)
	return scanClient(row)
}

// GetByID retrieves a client that has not been deleted
func (r *ClientRepository) GetByID(workspaceID int32, id int32) (*domain.Client, error) {
	row := r.pool.QueryRow(context.Background(), `SELECT `+clientColumns+` FROM clients
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`, workspaceID, id)
	return notFoundAsClient(scanClient(row))
}

// List retrieves clients matching the filter ordered by name.
// Search matches name, document or phone, case-insensitively.
func (r *ClientRepository) List(workspaceID int32, filter domain.ClientFilter) ([]*domain.Client, error) {
	var search pgtype.Text
	if term := strings.TrimSpace(filter.Search); term != "" {
		search = pgtype.Text{String: "%" + term + "%", Valid: true}
	}

	rows, err := r.pool.Query(context.Background(), `SELECT `+clientColumns+` FROM clients
		WHERE workspace_id = $1 AND deleted_at IS NULL
			AND ($2::text IS NULL OR name ILIKE $2 OR document_id ILIKE $2 OR phone ILIKE $2)
			AND ($3::uuid IS NULL OR collector_id = $3)
		ORDER BY name, id`,
		workspaceID, search, uuidPtrToPg(filter.CollectorID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := make([]*domain.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// Update updates a client
func (r *ClientRepository) Update(client *domain.Client) (*domain.Client, error) {
	row := r.pool.QueryRow(context.Background(), `UPDATE clients
		SET name = $3, document_id = $4, phone = $5, address = $6, notes = $7, collector_id = $8, updated_at = NOW()
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL
		RETURNING `+clientColumns,
		client.WorkspaceID,
		client.ID,
		strings.TrimSpace(client.Name),
		stringPtrToPgText(client.DocumentID),
		stringPtrToPgText(client.Phone),
		stringPtrToPgText(client.Address),
		stringPtrToPgText(client.Notes),
		uuidPtrToPg(client.CollectorID),
	)
	return notFoundAsClient(scanClient(row))
}

// SoftDelete marks a client as deleted
func (r *ClientRepository) SoftDelete(workspaceID int32, id int32) error {
	tag, err := r.pool.Exec(context.Background(), `UPDATE clients SET deleted_at = NOW()
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`, workspaceID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

func notFoundAsClient(client *domain.Client, err error) (*domain.Client, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, err
	}
	return client, nil
}

func scanClient(row pgx.Row) (*domain.Client, error) {
	var (
		c                                 domain.Client
		documentID, phone, address, notes pgtype.Text
		collectorID                       pgtype.UUID
		deletedAt                         pgtype.Timestamptz
	)
	err := row.Scan(&c.ID, &c.WorkspaceID, &c.Name, &documentID, &phone, &address, &notes,
		&collectorID, &c.CreatedAt, &c.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	c.DocumentID = pgTextToStringPtr(documentID)
	c.Phone = pgTextToStringPtr(phone)
	c.Address = pgTextToStringPtr(address)
	c.Notes = pgTextToStringPtr(notes)
	c.CollectorID = pgToUUIDPtr(collectorID)
	c.DeletedAt = pgTimestamptzToTimePtr(deletedAt)
	return &c, nil
}
