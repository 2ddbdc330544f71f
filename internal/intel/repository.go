package intel

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fenghou-lab/hotpick/internal/contracts"
)

// Repository persists report articles.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListByReport returns a report's articles, newest first.
func (r *Repository) ListByReport(ctx context.Context, reportID int64) ([]contracts.Article, error) {
	query := `
		SELECT id, report_id, title, content, source_account, published_at, url
		FROM report_articles
		WHERE report_id = $1
		ORDER BY published_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var articles []contracts.Article
	for rows.Next() {
		var a contracts.Article
		if err := rows.Scan(&a.ID, &a.ReportID, &a.Title, &a.Content,
			&a.SourceAccount, &a.PublishedAt, &a.URL); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}

	return articles, rows.Err()
}

// CountByReport returns how many articles a report has.
func (r *Repository) CountByReport(ctx context.Context, reportID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM report_articles WHERE report_id = $1`, reportID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return count, nil
}

// Upsert writes articles keyed by (report_id, url). Re-fetching the same
// URL updates the stored copy instead of duplicating it.
func (r *Repository) Upsert(ctx context.Context, reportID int64, articles []contracts.SourcedArticle) (int, error) {
	query := `
		INSERT INTO report_articles (
			report_id, title, content, source_account, published_at, url
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (report_id, url) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			source_account = EXCLUDED.source_account,
			published_at = EXCLUDED.published_at
	`

	written := 0
	for _, a := range articles {
		if _, err := r.db.Exec(ctx, query,
			reportID, a.Title, a.Content, a.SourceAccount, a.PublishedAt, a.URL,
		); err != nil {
			return written, fmt.Errorf("upsert article %s: %w", a.URL, err)
		}
		written++
	}

	return written, nil
}
