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
	"github.com/shopspring/decimal"
)

// PaymentRepository implements domain.PaymentRepository using PostgreSQL
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `id, workspace_id, loan_id, collector_id, amount, paid_at, notes, receipt_path, created_at`

// CreateAndApply inserts the payment and decrements the loan balance in one transaction.
// The loan row is locked so concurrent payments cannot overdraw it.
func (r *PaymentRepository) CreateAndApply(payment *domain.Payment) (*domain.PaymentResult, error) {
	ctx := context.Background()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	loan, err := getLoan(ctx, tx, payment.WorkspaceID, payment.LoanID, true)
	if err != nil {
		return nil, err
	}
	if loan.Status != domain.LoanStatusActive {
		return nil, domain.ErrLoanNotActive
	}
	if payment.Amount.GreaterThan(loan.RemainingAmount) {
		return nil, domain.ErrPaymentExceedsBalance
	}

	row := tx.QueryRow(ctx, `INSERT INTO payments (workspace_id, loan_id, collector_id, amount, paid_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+paymentColumns,
		payment.WorkspaceID,
		payment.LoanID,
		uuidPtrToPg(payment.CollectorID),
		decimalToPgNumeric(payment.Amount),
		payment.PaidAt,
		stringPtrToPgText(payment.Notes),
	)
	created, err := scanPayment(row)
	if err != nil {
		return nil, err
	}

	remaining := loan.RemainingAmount.Sub(payment.Amount)
	status := domain.LoanStatusActive
	if remaining.LessThanOrEqual(decimal.Zero) {
		remaining = decimal.Zero
		status = domain.LoanStatusPaid
	}

	updated, err := setLoanBalance(ctx, tx, loan, remaining, status)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.PaymentResult{Payment: created, Loan: updated}, nil
}

// DeleteAndRevert deletes the payment and gives its amount back to the loan.
// A loan that was paid off by the payment becomes active again.
func (r *PaymentRepository) DeleteAndRevert(workspaceID int32, id int32) (*domain.Loan, error) {
	ctx := context.Background()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	payment, err := notFoundAsPayment(scanPayment(tx.QueryRow(ctx,
		`DELETE FROM payments WHERE workspace_id = $1 AND id = $2 RETURNING `+paymentColumns, workspaceID, id)))
	if err != nil {
		return nil, err
	}

	loan, err := getLoan(ctx, tx, workspaceID, payment.LoanID, true)
	if err != nil {
		return nil, err
	}

	remaining := loan.RemainingAmount.Add(payment.Amount)
	if total := loan.TotalObligation(); remaining.GreaterThan(total) {
		remaining = total
	}
	status := loan.Status
	if status == domain.LoanStatusPaid {
		status = domain.LoanStatusActive
	}

	updated, err := setLoanBalance(ctx, tx, loan, remaining, status)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// GetByID retrieves a payment of a workspace
func (r *PaymentRepository) GetByID(workspaceID int32, id int32) (*domain.Payment, error) {
	return notFoundAsPayment(scanPayment(r.pool.QueryRow(context.Background(),
		`SELECT `+paymentColumns+` FROM payments WHERE workspace_id = $1 AND id = $2`, workspaceID, id)))
}

// GetByLoanID retrieves the payment history of a loan, newest first
func (r *PaymentRepository) GetByLoanID(workspaceID int32, loanID int32) ([]*domain.Payment, error) {
	return r.query(`SELECT `+paymentColumns+` FROM payments
		WHERE workspace_id = $1 AND loan_id = $2
		ORDER BY paid_at DESC, id DESC`, workspaceID, loanID)
}

// GetByDay retrieves payments made in [from, to], optionally for one collector
func (r *PaymentRepository) GetByDay(workspaceID int32, from, to time.Time, collectorID *uuid.UUID) ([]*domain.Payment, error) {
	return r.query(`SELECT `+paymentColumns+` FROM payments
		WHERE workspace_id = $1 AND paid_at >= $2 AND paid_at <= $3
			AND ($4::uuid IS NULL OR collector_id = $4)
		ORDER BY paid_at, id`, workspaceID, from, to, uuidPtrToPg(collectorID))
}

// CountByLoan counts the payments recorded against a loan
func (r *PaymentRepository) CountByLoan(workspaceID int32, loanID int32) (int64, error) {
	var count int64
	err := r.pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM payments WHERE workspace_id = $1 AND loan_id = $2`, workspaceID, loanID).Scan(&count)
	return count, err
}

// SetReceiptPath stores the object key of the receipt photo
func (r *PaymentRepository) SetReceiptPath(workspaceID int32, id int32, path string) (*domain.Payment, error) {
	return notFoundAsPayment(scanPayment(r.pool.QueryRow(context.Background(),
		`UPDATE payments SET receipt_path = $3 WHERE workspace_id = $1 AND id = $2 RETURNING `+paymentColumns,
		workspaceID, id, path)))
}

func (r *PaymentRepository) query(sql string, args ...any) ([]*domain.Payment, error) {
	rows, err := r.pool.Query(context.Background(), sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func setLoanBalance(ctx context.Context, q querier, loan *domain.Loan, remaining decimal.Decimal, status string) (*domain.Loan, error) {
	row := q.QueryRow(ctx, `UPDATE loans SET remaining_amount = $3, status = $4, updated_at = NOW()
		WHERE workspace_id = $1 AND id = $2
		RETURNING `+loanColumns,
		loan.WorkspaceID, loan.ID, decimalToPgNumeric(remaining), status)
	return notFoundAsLoan(scanLoan(row))
}

func notFoundAsPayment(payment *domain.Payment, err error) (*domain.Payment, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		p                  domain.Payment
		collectorID        pgtype.UUID
		amount             pgtype.Numeric
		notes, receiptPath pgtype.Text
	)
	err := row.Scan(&p.ID, &p.WorkspaceID, &p.LoanID, &collectorID, &amount, &p.PaidAt, &notes, &receiptPath, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.CollectorID = pgToUUIDPtr(collectorID)
	p.Amount = pgNumericToDecimal(amount)
	p.Notes = pgTextToStringPtr(notes)
	p.ReceiptPath = pgTextToStringPtr(receiptPath)
	return &p, nil
}
