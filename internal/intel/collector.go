package intel

import (
	"context"
	"fmt"
	"time"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

// Collector runs stage 1: fill the report's article set from the configured
// public accounts. It implements contracts.ArticleCollector.
type Collector struct {
	source     contracts.ArticleSource
	articles   contracts.ArticleRepository
	accounts   []string
	perAccount int
	logger     *logger.Logger
}

// NewCollector creates a collector over the configured accounts.
func NewCollector(source contracts.ArticleSource, articles contracts.ArticleRepository,
	accounts []string, perAccount int, log *logger.Logger) *Collector {
	return &Collector{
		source:     source,
		articles:   articles,
		accounts:   accounts,
		perAccount: perAccount,
		logger:     log,
	}
}

// Collect fetches articles for the report. A report that already has
// articles is left untouched so reruns of later stages keep their inputs.
// One failing account is skipped; the stage fails only when every account
// yields nothing.
func (c *Collector) Collect(ctx context.Context, reportID int64, date time.Time) (int, error) {
	existing, err := c.articles.CountByReport(ctx, reportID)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		c.logger.WithFields(map[string]interface{}{
			"report_id": reportID,
			"articles":  existing,
		}).Info("Report already has articles, skipping collection")
		return existing, nil
	}

	if len(c.accounts) == 0 {
		return 0, fmt.Errorf("no source accounts configured")
	}

	seen := make(map[string]bool)
	var fetched []contracts.SourcedArticle
	for _, account := range c.accounts {
		articles, err := c.source.FetchLatest(ctx, account, c.perAccount)
		if err != nil {
			c.logger.WithError(err).WithField("account", account).Warn("Account fetch failed, skipping")
			continue
		}
		for _, a := range articles {
			if seen[a.URL] {
				continue
			}
			seen[a.URL] = true
			fetched = append(fetched, a)
		}
	}

	if len(fetched) == 0 {
		return 0, fmt.Errorf("no articles fetched from %d accounts", len(c.accounts))
	}

	written, err := c.articles.Upsert(ctx, reportID, fetched)
	if err != nil {
		return written, fmt.Errorf("store articles: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"report_id": reportID,
		"articles":  written,
		"date":      date.Format("2006-01-02"),
	}).Info("Articles collected")

	return written, nil
}
