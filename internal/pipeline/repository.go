package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fenghou-lab/hotpick/internal/contracts"
)

// Advisory lock namespace for report runs, shared by every process writing
// to the same database.
const runLockNamespace int64 = 0x686F7470 // "hotp"

// Repository persists reports and owns the per-report run lock.
type Repository struct {
	db *pgxpool.Pool

	mu    sync.Mutex
	locks map[int64]*pgxpool.Conn
}

// NewRepository creates a new Repository instance.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db, locks: make(map[int64]*pgxpool.Conn)}
}

const reportColumns = `id, report_date, status, error_stage, error_message, created_at, updated_at`

// GetOrCreate returns the report for a date, inserting it when absent. The
// unique constraint on report_date decides races: the loser re-reads the
// winner's row.
func (r *Repository) GetOrCreate(ctx context.Context, date time.Time) (*contracts.Report, error) {
	day := date.Format("2006-01-02")

	query := fmt.Sprintf(`
		INSERT INTO reports (report_date, status)
		VALUES ($1, $2)
		ON CONFLICT (report_date) DO NOTHING
		RETURNING %s
	`, reportColumns)

	report, err := r.scanReport(r.db.QueryRow(ctx, query, day, contracts.StatusPending))
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("insert report: %w", err)
	}

	return r.GetByDate(ctx, date)
}

// GetByID returns one report.
func (r *Repository) GetByID(ctx context.Context, id int64) (*contracts.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM reports WHERE id = $1`, reportColumns)
	report, err := r.scanReport(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("query report %d: %w", id, err)
	}
	return report, nil
}

// GetByDate returns the report for a calendar date.
func (r *Repository) GetByDate(ctx context.Context, date time.Time) (*contracts.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM reports WHERE report_date = $1`, reportColumns)
	report, err := r.scanReport(r.db.QueryRow(ctx, query, date.Format("2006-01-02")))
	if err != nil {
		return nil, fmt.Errorf("query report for %s: %w", date.Format("2006-01-02"), err)
	}
	return report, nil
}

// List returns recent reports, newest date first.
func (r *Repository) List(ctx context.Context, limit int) ([]contracts.Report, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM reports
		ORDER BY report_date DESC
		LIMIT $1
	`, reportColumns)

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var reports []contracts.Report
	for rows.Next() {
		var rep contracts.Report
		if err := rows.Scan(&rep.ID, &rep.Date, &rep.Status, &rep.ErrorStage,
			&rep.ErrorMessage, &rep.CreatedAt, &rep.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, rep)
	}

	return reports, rows.Err()
}

// UpdateStatus moves a report through its lifecycle and clears any previous
// error fields.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status contracts.ReportStatus) error {
	query := `
		UPDATE reports
		SET status = $2, error_stage = 0, error_message = '', updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("report %d not found", id)
	}
	return nil
}

// MarkError records a stage failure.
func (r *Repository) MarkError(ctx context.Context, id int64, stage int, cause string) error {
	query := `
		UPDATE reports
		SET status = $2, error_stage = $3, error_message = $4, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id, contracts.StatusError, stage, cause); err != nil {
		return fmt.Errorf("mark report error: %w", err)
	}
	return nil
}

// Delete removes a report. Stage rows cascade through foreign keys.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("report %d not found", id)
	}
	return nil
}

// AcquireRunLock takes a session advisory lock for the report. The lock
// lives on a dedicated pooled connection held until release, so it guards
// across processes, not just goroutines.
func (r *Repository) AcquireRunLock(ctx context.Context, id int64) (bool, error) {
	conn, err := r.db.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lock connection: %w", err)
	}

	var locked bool
	err = conn.QueryRow(ctx,
		`SELECT pg_try_advisory_lock($1::int, $2::int)`, runLockNamespace, id,
	).Scan(&locked)
	if err != nil {
		conn.Release()
		return false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !locked {
		conn.Release()
		return false, nil
	}

	r.mu.Lock()
	r.locks[id] = conn
	r.mu.Unlock()

	return true, nil
}

// ReleaseRunLock releases a lock taken by AcquireRunLock in this process.
func (r *Repository) ReleaseRunLock(ctx context.Context, id int64) error {
	r.mu.Lock()
	conn, ok := r.locks[id]
	delete(r.locks, id)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock($1::int, $2::int)`, runLockNamespace, id); err != nil {
		return fmt.Errorf("advisory unlock: %w", err)
	}
	return nil
}

func (r *Repository) scanReport(row pgx.Row) (*contracts.Report, error) {
	var rep contracts.Report
	err := row.Scan(&rep.ID, &rep.Date, &rep.Status, &rep.ErrorStage,
		&rep.ErrorMessage, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}
