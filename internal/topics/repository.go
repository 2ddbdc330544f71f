package topics

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fenghou-lab/hotpick/internal/contracts"
)

// Repository persists report topics. Related boards and source article ids
// are stored as jsonb columns.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListByReport returns a report's topics in insertion order.
func (r *Repository) ListByReport(ctx context.Context, reportID int64) ([]contracts.Topic, error) {
	query := `
		SELECT id, report_id, topic_name, related_boards, logic_summary, article_ids
		FROM report_topics
		WHERE report_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var topics []contracts.Topic
	for rows.Next() {
		var t contracts.Topic
		if err := rows.Scan(&t.ID, &t.ReportID, &t.Name,
			&t.RelatedBoards, &t.Rationale, &t.ArticleIDs); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, t)
	}

	return topics, rows.Err()
}

// Add inserts one topic and returns its id.
func (r *Repository) Add(ctx context.Context, topic *contracts.Topic) (int64, error) {
	query := `
		INSERT INTO report_topics (
			report_id, topic_name, related_boards, logic_summary, article_ids
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query,
		topic.ReportID, topic.Name, topic.RelatedBoards, topic.Rationale, topic.ArticleIDs,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert topic %s: %w", topic.Name, err)
	}

	return id, nil
}

// DeleteByReport removes all topics of a report.
func (r *Repository) DeleteByReport(ctx context.Context, reportID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM report_topics WHERE report_id = $1`, reportID)
	if err != nil {
		return 0, fmt.Errorf("delete topics: %w", err)
	}
	return tag.RowsAffected(), nil
}
