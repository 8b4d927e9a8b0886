package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExpenseRepository implements domain.ExpenseRepository using PostgreSQL
type ExpenseRepository struct {
	pool *pgxpool.Pool
}

// NewExpenseRepository creates a new ExpenseRepository
func NewExpenseRepository(pool *pgxpool.Pool) *ExpenseRepository {
	return &ExpenseRepository{pool: pool}
}

const expenseColumns = `id, workspace_id, collector_id, category, description, amount, spent_on, created_at`

// Create creates a new expense
func (r *ExpenseRepository) Create(expense *domain.Expense) (*domain.Expense, error) {
	row := r.pool.QueryRow(context.Background(), `INSERT INTO expenses
		(workspace_id, collector_id, category, description, amount, spent_on)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+expenseColumns,
		expense.WorkspaceID,
		uuidPtrToPg(expense.CollectorID),
		expense.Category,
		strings.TrimSpace(expense.Description),
		decimalToPgNumeric(expense.Amount),
		dateToPg(expense.SpentOn),
	)
	return scanExpense(row)
}

// GetByID retrieves an expense of a workspace
func (r *ExpenseRepository) GetByID(workspaceID int32, id int32) (*domain.Expense, error) {
	expense, err := scanExpense(r.pool.QueryRow(context.Background(),
		`SELECT `+expenseColumns+` FROM expenses WHERE workspace_id = $1 AND id = $2`, workspaceID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrExpenseNotFound
		}
		return nil, err
	}
	return expense, nil
}

// GetByDateRange retrieves expenses spent between two calendar days inclusive
func (r *ExpenseRepository) GetByDateRange(workspaceID int32, from, to time.Time, collectorID *uuid.UUID) ([]*domain.Expense, error) {
	rows, err := r.pool.Query(context.Background(), `SELECT `+expenseColumns+` FROM expenses
		WHERE workspace_id = $1 AND spent_on BETWEEN $2 AND $3
			AND ($4::uuid IS NULL OR collector_id = $4)
		ORDER BY spent_on, id`,
		workspaceID, dateToPg(from), dateToPg(to), uuidPtrToPg(collectorID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]*domain.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// Delete removes an expense
func (r *ExpenseRepository) Delete(workspaceID int32, id int32) error {
	tag, err := r.pool.Exec(context.Background(),
		`DELETE FROM expenses WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrExpenseNotFound
	}
	return nil
}

func scanExpense(row pgx.Row) (*domain.Expense, error) {
	var (
		e           domain.Expense
		collectorID pgtype.UUID
		amount      pgtype.Numeric
		spentOn     pgtype.Date
	)
	err := row.Scan(&e.ID, &e.WorkspaceID, &collectorID, &e.Category, &e.Description, &amount, &spentOn, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.CollectorID = pgToUUIDPtr(collectorID)
	e.Amount = pgNumericToDecimal(amount)
	e.SpentOn = spentOn.Time
	return &e, nil
}
