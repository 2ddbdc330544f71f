package topics

import (
	"context"
	"fmt"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

// Builder runs stage 2: turn the report's articles into hot topics through
// one batched extraction call. It implements contracts.TopicBuilder.
type Builder struct {
	articles  contracts.ArticleRepository
	topics    contracts.TopicRepository
	extractor contracts.TopicExtractor
	resolver  contracts.BoardResolver

	maxArticles int
	bodyLimit   int
	logger      *logger.Logger
}

// NewBuilder creates a topic builder. resolver supplies candidate board
// names for the prompt and may be nil.
func NewBuilder(articles contracts.ArticleRepository, topics contracts.TopicRepository,
	extractor contracts.TopicExtractor, resolver contracts.BoardResolver,
	maxArticles, bodyLimit int, log *logger.Logger) *Builder {
	return &Builder{
		articles:    articles,
		topics:      topics,
		extractor:   extractor,
		resolver:    resolver,
		maxArticles: maxArticles,
		bodyLimit:   bodyLimit,
		logger:      log,
	}
}

// Build extracts topics for the report. Zero stored articles and zero
// extracted topics are both fatal; a single topic failing to persist is
// skipped as long as at least one lands.
func (b *Builder) Build(ctx context.Context, reportID int64) (int, error) {
	articles, err := b.articles.ListByReport(ctx, reportID)
	if err != nil {
		return 0, err
	}
	if len(articles) == 0 {
		return 0, fmt.Errorf("report %d has no articles", reportID)
	}

	if len(articles) > b.maxArticles {
		articles = articles[:b.maxArticles]
	}

	req := contracts.ExtractionRequest{
		Articles: make([]contracts.ExtractionArticle, 0, len(articles)),
	}
	articleIDs := make([]int64, 0, len(articles))
	for _, a := range articles {
		req.Articles = append(req.Articles, contracts.ExtractionArticle{
			ID:      a.ID,
			Title:   a.Title,
			Content: truncateRunes(a.Content, b.bodyLimit),
		})
		articleIDs = append(articleIDs, a.ID)
	}

	if b.resolver != nil {
		names, err := b.resolver.CatalogNames(ctx)
		if err != nil {
			b.logger.WithError(err).Warn("Board catalog unavailable, extracting without candidates")
		} else {
			req.CandidateBoards = names
		}
	}

	extracted, err := b.extractor.ExtractTopics(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("extract topics: %w", err)
	}
	if len(extracted) == 0 {
		return 0, fmt.Errorf("no topics extracted from %d articles", len(articles))
	}

	added := 0
	for _, t := range extracted {
		topic := &contracts.Topic{
			ReportID:      reportID,
			Name:          t.Name,
			RelatedBoards: t.RelatedBoards,
			Rationale:     t.Rationale,
			ArticleIDs:    articleIDs,
		}
		if _, err := b.topics.Add(ctx, topic); err != nil {
			b.logger.WithError(err).WithField("topic", t.Name).Warn("Topic insert failed, skipping")
			continue
		}
		added++
	}

	if added == 0 {
		return 0, fmt.Errorf("no topics stored for report %d", reportID)
	}

	b.logger.WithFields(map[string]interface{}{
		"report_id": reportID,
		"topics":    added,
	}).Info("Topics built")

	return added, nil
}

// truncateRunes keeps the head of s up to limit runes. Article openings
// carry the theme; tails are mostly boilerplate.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
