package selection

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fenghou-lab/hotpick/internal/contracts"
)

// Repository persists pool-2 selections. Rule outcomes are stored as jsonb
// in rule sort order so operators can read the full verdict chain.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListByReport returns a report's selections, best scores first.
func (r *Repository) ListByReport(ctx context.Context, reportID int64) ([]contracts.Selection, error) {
	query := `
		SELECT id, report_id, candidate_id, stock_code, stock_name,
		       tech_score, fund_score, total_score, rule_outcomes, is_selected
		FROM report_selections
		WHERE report_id = $1
		ORDER BY is_selected DESC, total_score DESC, id
	`

	rows, err := r.db.Query(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	var selections []contracts.Selection
	for rows.Next() {
		var s contracts.Selection
		if err := rows.Scan(&s.ID, &s.ReportID, &s.CandidateID, &s.StockCode, &s.StockName,
			&s.TechScore, &s.FundScore, &s.TotalScore, &s.RuleOutcomes, &s.IsSelected); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		selections = append(selections, s)
	}

	return selections, rows.Err()
}

// Add inserts one selection and returns its id.
func (r *Repository) Add(ctx context.Context, selection *contracts.Selection) (int64, error) {
	query := `
		INSERT INTO report_selections (
			report_id, candidate_id, stock_code, stock_name,
			tech_score, fund_score, total_score, rule_outcomes, is_selected
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query,
		selection.ReportID, selection.CandidateID, selection.StockCode, selection.StockName,
		selection.TechScore, selection.FundScore, selection.TotalScore,
		selection.RuleOutcomes, selection.IsSelected,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert selection %s: %w", selection.StockCode, err)
	}

	return id, nil
}

// DeleteByReport removes all selections of a report.
func (r *Repository) DeleteByReport(ctx context.Context, reportID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM report_selections WHERE report_id = $1`, reportID)
	if err != nil {
		return 0, fmt.Errorf("delete selections: %w", err)
	}
	return tag.RowsAffected(), nil
}
