package postgres

import (
	"context"
	"errors"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository implements domain.UserRepository using PostgreSQL
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, workspace_id, auth0_id, email, name, role, active, created_at, updated_at`

// GetByID retrieves a staff member of a workspace
func (r *UserRepository) GetByID(workspaceID int32, id uuid.UUID) (*domain.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users WHERE workspace_id = $1 AND id = $2`,
		workspaceID, pgtype.UUID{Bytes: id, Valid: true})
}

// GetByAuth0ID retrieves a user by their Auth0 ID
func (r *UserRepository) GetByAuth0ID(auth0ID string) (*domain.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users WHERE auth0_id = $1`, auth0ID)
}

// GetPendingByEmail finds an invited member that has not signed in yet.
// When the email was invited to several workspaces the oldest invitation wins.
func (r *UserRepository) GetPendingByEmail(email string) (*domain.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users
		WHERE auth0_id IS NULL AND LOWER(email) = LOWER($1) AND active
		ORDER BY created_at LIMIT 1`, email)
}

// GetByWorkspaceAndEmail retrieves a member by email within a workspace
func (r *UserRepository) GetByWorkspaceAndEmail(workspaceID int32, email string) (*domain.User, error) {
	return r.getOne(`SELECT `+userColumns+` FROM users WHERE workspace_id = $1 AND LOWER(email) = LOWER($2)`,
		workspaceID, email)
}

// ListByWorkspace lists the staff of a workspace ordered by name
func (r *UserRepository) ListByWorkspace(workspaceID int32, activeOnly bool) ([]*domain.User, error) {
	rows, err := r.pool.Query(context.Background(), `SELECT `+userColumns+` FROM users
		WHERE workspace_id = $1 AND (NOT $2 OR active)
		ORDER BY name, created_at`, workspaceID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Create creates a new staff member
func (r *UserRepository) Create(user *domain.User) (*domain.User, error) {
	row := r.pool.QueryRow(context.Background(), `INSERT INTO users (workspace_id, auth0_id, email, name, role, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		user.WorkspaceID, stringPtrToPgText(user.Auth0ID), user.Email, user.Name, user.Role, user.Active)

	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUserEmailExists
		}
		return nil, err
	}
	return created, nil
}

// Update updates the name and role of a member
func (r *UserRepository) Update(user *domain.User) (*domain.User, error) {
	return r.getOne(`UPDATE users SET name = $3, role = $4, updated_at = NOW()
		WHERE workspace_id = $1 AND id = $2
		RETURNING `+userColumns,
		user.WorkspaceID, pgtype.UUID{Bytes: user.ID, Valid: true}, user.Name, user.Role)
}

// LinkAuth0ID attaches an Auth0 identity to an invited member
func (r *UserRepository) LinkAuth0ID(id uuid.UUID, auth0ID string) (*domain.User, error) {
	return r.getOne(`UPDATE users SET auth0_id = $2, updated_at = NOW()
		WHERE id = $1 AND auth0_id IS NULL
		RETURNING `+userColumns,
		pgtype.UUID{Bytes: id, Valid: true}, auth0ID)
}

// SetActive activates or deactivates a member
func (r *UserRepository) SetActive(workspaceID int32, id uuid.UUID, active bool) (*domain.User, error) {
	return r.getOne(`UPDATE users SET active = $3, updated_at = NOW()
		WHERE workspace_id = $1 AND id = $2
		RETURNING `+userColumns,
		workspaceID, pgtype.UUID{Bytes: id, Valid: true}, active)
}

func (r *UserRepository) getOne(sql string, args ...any) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(context.Background(), sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		u       domain.User
		id      pgtype.UUID
		auth0ID pgtype.Text
	)
	err := row.Scan(&id, &u.WorkspaceID, &auth0ID, &u.Email, &u.Name, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.ID = uuid.UUID(id.Bytes)
	u.Auth0ID = pgTextToStringPtr(auth0ID)
	return &u, nil
}
