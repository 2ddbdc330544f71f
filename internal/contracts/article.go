package contracts

import (
	"context"
	"time"
)

// Article is one sourced WeChat public-account article. Articles are
// immutable once stored for a report; a re-fetch updates by URL identity.
type Article struct {
	ID            int64
	ReportID      int64
	Title         string
	Content       string
	SourceAccount string
	PublishedAt   time.Time
	URL           string
}

// SourcedArticle is an article as returned by an upstream source, before it
// is attached to a report.
type SourcedArticle struct {
	Title         string
	Content       string
	SourceAccount string
	PublishedAt   time.Time
	URL           string
}

// ArticleSource fetches recent articles for one public account.
type ArticleSource interface {
	FetchLatest(ctx context.Context, account string, limit int) ([]SourcedArticle, error)
}

// ArticleRepository manages report articles.
type ArticleRepository interface {
	ListByReport(ctx context.Context, reportID int64) ([]Article, error)
	CountByReport(ctx context.Context, reportID int64) (int, error)
	// Upsert inserts articles keyed by URL; existing URLs are updated in
	// place rather than duplicated. Returns the number of rows written.
	Upsert(ctx context.Context, reportID int64, articles []SourcedArticle) (int, error)
}
