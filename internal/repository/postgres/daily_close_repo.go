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

// DailyCloseRepository implements domain.DailyCloseRepository using PostgreSQL
type DailyCloseRepository struct {
	pool *pgxpool.Pool
}

// NewDailyCloseRepository creates a new DailyCloseRepository
func NewDailyCloseRepository(pool *pgxpool.Pool) *DailyCloseRepository {
	return &DailyCloseRepository{pool: pool}
}

const dailyCloseColumns = `id, workspace_id, collector_id, close_date, payments_count, collected_total,
	expenses_count, expenses_total, loans_disbursed, disbursed_total, net_cash,
	recent_count, on_time_count, mild_count, severe_count, unknown_count,
	snapshot_path, closed_by, closed_at`

// Create stores a close. The partial unique indexes reject a second close of the same day.
func (r *DailyCloseRepository) Create(close *domain.DailyClose) (*domain.DailyClose, error) {
	row := r.pool.QueryRow(context.Background(), `INSERT INTO daily_closes
		(workspace_id, collector_id, close_date, payments_count, collected_total, expenses_count, expenses_total,
		 loans_disbursed, disbursed_total, net_cash, recent_count, on_time_count, mild_count, severe_count,
		 unknown_count, snapshot_path, closed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING `+dailyCloseColumns,
		close.WorkspaceID,
		uuidPtrToPg(close.CollectorID),
		dateToPg(close.Date),
		close.PaymentsCount,
		decimalToPgNumeric(close.CollectedTotal),
		close.ExpensesCount,
		decimalToPgNumeric(close.ExpensesTotal),
		close.LoansDisbursed,
		decimalToPgNumeric(close.DisbursedTotal),
		decimalToPgNumeric(close.NetCash),
		close.Arrears.Recent,
		close.Arrears.OnTime,
		close.Arrears.MildArrears,
		close.Arrears.SevereArrears,
		close.Arrears.Unknown,
		stringPtrToPgText(close.SnapshotPath),
		pgtype.UUID{Bytes: close.ClosedBy, Valid: true},
	)
	created, err := scanDailyClose(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDayAlreadyClosed
		}
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a close of a workspace
func (r *DailyCloseRepository) GetByID(workspaceID int32, id int32) (*domain.DailyClose, error) {
	return notFoundAsDailyClose(scanDailyClose(r.pool.QueryRow(context.Background(),
		`SELECT `+dailyCloseColumns+` FROM daily_closes WHERE workspace_id = $1 AND id = $2`, workspaceID, id)))
}

// GetByDate retrieves the close of a day for a collector, or the workspace-wide close when collectorID is nil
func (r *DailyCloseRepository) GetByDate(workspaceID int32, date time.Time, collectorID *uuid.UUID) (*domain.DailyClose, error) {
	return notFoundAsDailyClose(scanDailyClose(r.pool.QueryRow(context.Background(),
		`SELECT `+dailyCloseColumns+` FROM daily_closes
		WHERE workspace_id = $1 AND close_date = $2 AND collector_id IS NOT DISTINCT FROM $3`,
		workspaceID, dateToPg(date), uuidPtrToPg(collectorID))))
}

// ListByDateRange lists closes between two days inclusive, newest first
func (r *DailyCloseRepository) ListByDateRange(workspaceID int32, from, to time.Time) ([]*domain.DailyClose, error) {
	rows, err := r.pool.Query(context.Background(), `SELECT `+dailyCloseColumns+` FROM daily_closes
		WHERE workspace_id = $1 AND close_date BETWEEN $2 AND $3
		ORDER BY close_date DESC, closed_at DESC`,
		workspaceID, dateToPg(from), dateToPg(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	closes := make([]*domain.DailyClose, 0)
	for rows.Next() {
		c, err := scanDailyClose(rows)
		if err != nil {
			return nil, err
		}
		closes = append(closes, c)
	}
	return closes, rows.Err()
}

// IsClosed reports whether a workspace-wide close or the collector's own close exists for the day
func (r *DailyCloseRepository) IsClosed(workspaceID int32, date time.Time, collectorID *uuid.UUID) (bool, error) {
	var closed bool
	err := r.pool.QueryRow(context.Background(), `SELECT EXISTS (
		SELECT 1 FROM daily_closes
		WHERE workspace_id = $1 AND close_date = $2
			AND (collector_id IS NULL OR collector_id = $3)
	)`, workspaceID, dateToPg(date), uuidPtrToPg(collectorID)).Scan(&closed)
	return closed, err
}

// SetSnapshotPath stores the object key of the close snapshot
func (r *DailyCloseRepository) SetSnapshotPath(workspaceID int32, id int32, path string) error {
	tag, err := r.pool.Exec(context.Background(),
		`UPDATE daily_closes SET snapshot_path = $3 WHERE workspace_id = $1 AND id = $2`, workspaceID, id, path)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDailyCloseNotFound
	}
	return nil
}

// Delete removes a close, reopening the day
func (r *DailyCloseRepository) Delete(workspaceID int32, id int32) error {
	tag, err := r.pool.Exec(context.Background(),
		`DELETE FROM daily_closes WHERE workspace_id = $1 AND id = $2`, workspaceID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDailyCloseNotFound
	}
	return nil
}

func notFoundAsDailyClose(close *domain.DailyClose, err error) (*domain.DailyClose, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDailyCloseNotFound
		}
		return nil, err
	}
	return close, nil
}

func scanDailyClose(row pgx.Row) (*domain.DailyClose, error) {
	var (
		c                                       domain.DailyClose
		collectorID, closedBy                   pgtype.UUID
		date                                    pgtype.Date
		collected, expenses, disbursed, netCash pgtype.Numeric
		snapshotPath                            pgtype.Text
	)
	err := row.Scan(
		&c.ID, &c.WorkspaceID, &collectorID, &date, &c.PaymentsCount, &collected,
		&c.ExpensesCount, &expenses, &c.LoansDisbursed, &disbursed, &netCash,
		&c.Arrears.Recent, &c.Arrears.OnTime, &c.Arrears.MildArrears, &c.Arrears.SevereArrears, &c.Arrears.Unknown,
		&snapshotPath, &closedBy, &c.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	c.CollectorID = pgToUUIDPtr(collectorID)
	c.Date = date.Time
	c.CollectedTotal = pgNumericToDecimal(collected)
	c.ExpensesTotal = pgNumericToDecimal(expenses)
	c.DisbursedTotal = pgNumericToDecimal(disbursed)
	c.NetCash = pgNumericToDecimal(netCash)
	c.SnapshotPath = pgTextToStringPtr(snapshotPath)
	c.ClosedBy = uuid.UUID(closedBy.Bytes)
	return &c, nil
}
