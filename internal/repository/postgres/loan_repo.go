package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cobrodiario/cobrodiario-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LoanRepository implements domain.LoanRepository using PostgreSQL
type LoanRepository struct {
	pool *pgxpool.Pool
}

// NewLoanRepository creates a new LoanRepository
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{pool: pool}
}

const loanColumns = `id, workspace_id, client_id, collector_id, amount, interest_rate, interest, fee,
	term_days, start_date, remaining_amount, status, notes, created_at, updated_at, deleted_at`

// Create creates a new loan
func (r *LoanRepository) Create(loan *domain.Loan) (*domain.Loan, error) {
	status := loan.Status
	if status == "" {
		status = domain.LoanStatusActive
	}
	row := r.pool.QueryRow(context.Background(), `INSERT INTO loans
		(workspace_id, client_id, collector_id, amount, interest_rate, interest, fee, term_days, start_date, remaining_amount, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+loanColumns,
		loan.WorkspaceID,
		loan.ClientID,
		uuidPtrToPg(loan.CollectorID),
		decimalToPgNumeric(loan.Amount),
		decimalToPgNumeric(loan.InterestRate),
		decimalToPgNumeric(loan.Interest),
		decimalToPgNumeric(loan.Fee),
		loan.TermDays,
		dateToPg(loan.StartDate),
		decimalToPgNumeric(loan.RemainingAmount),
		status,
		stringPtrToPgText(loan.Notes),
	)
	return scanLoan(row)
}

// GetByID retrieves a loan of a workspace
func (r *LoanRepository) GetByID(workspaceID int32, id int32) (*domain.Loan, error) {
	return getLoan(context.Background(), r.pool, workspaceID, id, false)
}

// List retrieves loans matching the filter, newest first
func (r *LoanRepository) List(workspaceID int32, filter domain.LoanFilter) ([]*domain.Loan, error) {
	var clientID pgtype.Int4
	if filter.ClientID > 0 {
		clientID = pgtype.Int4{Int32: filter.ClientID, Valid: true}
	}
	var status pgtype.Text
	if filter.Status != "" {
		status = pgtype.Text{String: filter.Status, Valid: true}
	}

	return r.query(`SELECT `+loanColumns+` FROM loans
		WHERE workspace_id = $1 AND deleted_at IS NULL
			AND ($2::varchar IS NULL OR status = $2)
			AND ($3::int IS NULL OR client_id = $3)
			AND ($4::uuid IS NULL OR collector_id = $4)
		ORDER BY start_date DESC, id DESC`,
		workspaceID, status, clientID, uuidPtrToPg(filter.CollectorID))
}

// GetActiveByWorkspace retrieves every active loan of a workspace
func (r *LoanRepository) GetActiveByWorkspace(workspaceID int32) ([]*domain.Loan, error) {
	return r.query(`SELECT `+loanColumns+` FROM loans
		WHERE workspace_id = $1 AND status = 'active' AND deleted_at IS NULL
		ORDER BY start_date, id`, workspaceID)
}

// GetStartedOn retrieves the loans disbursed on a day, optionally for one collector
func (r *LoanRepository) GetStartedOn(workspaceID int32, day time.Time, collectorID *uuid.UUID) ([]*domain.Loan, error) {
	return r.query(`SELECT `+loanColumns+` FROM loans
		WHERE workspace_id = $1 AND start_date = $2 AND status <> 'cancelled' AND deleted_at IS NULL
			AND ($3::uuid IS NULL OR collector_id = $3)
		ORDER BY id`, workspaceID, dateToPg(day), uuidPtrToPg(collectorID))
}

// CountActiveByClient counts the active loans of a client
func (r *LoanRepository) CountActiveByClient(workspaceID int32, clientID int32) (int64, error) {
	var count int64
	err := r.pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM loans
		WHERE workspace_id = $1 AND client_id = $2 AND status = 'active' AND deleted_at IS NULL`,
		workspaceID, clientID).Scan(&count)
	return count, err
}

// Update saves the editable fields of a loan (notes and collector)
func (r *LoanRepository) Update(loan *domain.Loan) (*domain.Loan, error) {
	row := r.pool.QueryRow(context.Background(), `UPDATE loans
		SET notes = $3, collector_id = $4, updated_at = NOW()
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL
		RETURNING `+loanColumns,
		loan.WorkspaceID, loan.ID, stringPtrToPgText(loan.Notes), uuidPtrToPg(loan.CollectorID))
	return notFoundAsLoan(scanLoan(row))
}

// UpdateStatus changes the status of a loan
func (r *LoanRepository) UpdateStatus(workspaceID int32, id int32, status string) (*domain.Loan, error) {
	row := r.pool.QueryRow(context.Background(), `UPDATE loans
		SET status = $3, updated_at = NOW()
		WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL
		RETURNING `+loanColumns,
		workspaceID, id, status)
	return notFoundAsLoan(scanLoan(row))
}

func (r *LoanRepository) query(sql string, args ...any) ([]*domain.Loan, error) {
	rows, err := r.pool.Query(context.Background(), sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := make([]*domain.Loan, 0)
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

// getLoan loads a loan, locking the row when forUpdate is set
func getLoan(ctx context.Context, q querier, workspaceID, id int32, forUpdate bool) (*domain.Loan, error) {
	sql := `SELECT ` + loanColumns + ` FROM loans WHERE workspace_id = $1 AND id = $2 AND deleted_at IS NULL`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	return notFoundAsLoan(scanLoan(q.QueryRow(ctx, sql, workspaceID, id)))
}

func notFoundAsLoan(loan *domain.Loan, err error) (*domain.Loan, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var (
		l                                              domain.Loan
		collectorID                                    pgtype.UUID
		amount, interestRate, interest, fee, remaining pgtype.Numeric
		startDate                                      pgtype.Date
		notes                                          pgtype.Text
		deletedAt                                      pgtype.Timestamptz
	)
	err := row.Scan(
		&l.ID, &l.WorkspaceID, &l.ClientID, &collectorID,
		&amount, &interestRate, &interest, &fee,
		&l.TermDays, &startDate, &remaining, &l.Status, &notes,
		&l.CreatedAt, &l.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	l.CollectorID = pgToUUIDPtr(collectorID)
	l.Amount = pgNumericToDecimal(amount)
	l.InterestRate = pgNumericToDecimal(interestRate)
	l.Interest = pgNumericToDecimal(interest)
	l.Fee = pgNumericToDecimal(fee)
	l.RemainingAmount = pgNumericToDecimal(remaining)
	l.StartDate = startDate.Time
	l.Notes = pgTextToStringPtr(notes)
	l.DeletedAt = pgTimestamptzToTimePtr(deletedAt)
	return &l, nil
}
