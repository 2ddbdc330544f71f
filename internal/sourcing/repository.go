package sourcing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fenghou-lab/hotpick/internal/contracts"
)

// Repository persists pool-1 candidates. Snapshots are stored as jsonb so
// new metrics never need a schema change.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListByReport returns a report's candidates in insertion order.
func (r *Repository) ListByReport(ctx context.Context, reportID int64) ([]contracts.Candidate, error) {
	query := `
		SELECT id, report_id, topic_id, stock_code, stock_name, snapshot, match_reason
		FROM report_candidates
		WHERE report_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []contracts.Candidate
	for rows.Next() {
		var c contracts.Candidate
		if err := rows.Scan(&c.ID, &c.ReportID, &c.TopicID,
			&c.StockCode, &c.StockName, &c.Snapshot, &c.MatchReason); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// CountByReport returns how many candidates a report has.
func (r *Repository) CountByReport(ctx context.Context, reportID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM report_candidates WHERE report_id = $1`, reportID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count candidates: %w", err)
	}
	return count, nil
}

// Add inserts one candidate and returns its id.
func (r *Repository) Add(ctx context.Context, candidate *contracts.Candidate) (int64, error) {
	query := `
		INSERT INTO report_candidates (
			report_id, topic_id, stock_code, stock_name, snapshot, match_reason
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query,
		candidate.ReportID, candidate.TopicID, candidate.StockCode,
		candidate.StockName, candidate.Snapshot, candidate.MatchReason,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert candidate %s: %w", candidate.StockCode, err)
	}

	return id, nil
}

// DeleteByReport removes all candidates of a report.
func (r *Repository) DeleteByReport(ctx context.Context, reportID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM report_candidates WHERE report_id = $1`, reportID)
	if err != nil {
		return 0, fmt.Errorf("delete candidates: %w", err)
	}
	return tag.RowsAffected(), nil
}
