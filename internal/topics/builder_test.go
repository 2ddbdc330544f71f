package topics

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

type fakeArticles struct {
	articles []contracts.Article
}

func (f *fakeArticles) ListByReport(ctx context.Context, reportID int64) ([]contracts.Article, error) {
	return f.articles, nil
}

func (f *fakeArticles) CountByReport(ctx context.Context, reportID int64) (int, error) {
	return len(f.articles), nil
}

func (f *fakeArticles) Upsert(ctx context.Context, reportID int64, articles []contracts.SourcedArticle) (int, error) {
	return 0, nil
}

type fakeTopics struct {
	added   []contracts.Topic
	failFor map[string]bool
}

func (f *fakeTopics) ListByReport(ctx context.Context, reportID int64) ([]contracts.Topic, error) {
	return f.added, nil
}

func (f *fakeTopics) Add(ctx context.Context, topic *contracts.Topic) (int64, error) {
	if f.failFor[topic.Name] {
		return 0, errors.New("insert failed")
	}
	f.added = append(f.added, *topic)
	return int64(len(f.added)), nil
}

func (f *fakeTopics) DeleteByReport(ctx context.Context, reportID int64) (int64, error) {
	n := int64(len(f.added))
	f.added = nil
	return n, nil
}

type fakeExtractor struct {
	gotReq contracts.ExtractionRequest
	topics []contracts.ExtractedTopic
	err    error
}

func (f *fakeExtractor) ExtractTopics(ctx context.Context, req contracts.ExtractionRequest) ([]contracts.ExtractedTopic, error) {
	f.gotReq = req
	return f.topics, f.err
}

type fakeResolver struct {
	names []string
	err   error
}

func (f *fakeResolver) Resolve(ctx context.Context, name string) (*contracts.Board, error) {
	return nil, errors.New("not used")
}

func (f *fakeResolver) CatalogNames(ctx context.Context) ([]string, error) {
	return f.names, f.err
}

func articlesN(n int, bodyLen int) []contracts.Article {
	out := make([]contracts.Article, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, contracts.Article{
			ID:      int64(i + 1),
			Title:   "文章",
			Content: strings.Repeat("市", bodyLen),
		})
	}
	return out
}

func TestBuild_StoresExtractedTopics(t *testing.T) {
	extractor := &fakeExtractor{topics: []contracts.ExtractedTopic{
		{Name: "人工智能", RelatedBoards: []string{"AI算力"}, Rationale: "算力需求"},
		{Name: "黄金", RelatedBoards: []string{"黄金概念"}, Rationale: "避险"},
	}}
	topicRepo := &fakeTopics{}

	b := NewBuilder(&fakeArticles{articles: articlesN(2, 10)}, topicRepo,
		extractor, &fakeResolver{names: []string{"AI算力", "黄金概念"}}, 5, 2000, logger.NewNop())

	n, err := b.Build(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, topicRepo.added, 2)
	assert.Equal(t, int64(7), topicRepo.added[0].ReportID)
	assert.Equal(t, []int64{1, 2}, topicRepo.added[0].ArticleIDs)
	assert.Equal(t, []string{"AI算力", "黄金概念"}, extractor.gotReq.CandidateBoards)
}

func TestBuild_CapsArticlesAndTruncatesBodies(t *testing.T) {
	extractor := &fakeExtractor{topics: []contracts.ExtractedTopic{{Name: "芯片"}}}

	b := NewBuilder(&fakeArticles{articles: articlesN(8, 3000)}, &fakeTopics{},
		extractor, nil, 5, 2000, logger.NewNop())

	_, err := b.Build(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, extractor.gotReq.Articles, 5)
	for _, a := range extractor.gotReq.Articles {
		assert.Len(t, []rune(a.Content), 2000)
	}
}

func TestBuild_NoArticlesIsFatal(t *testing.T) {
	b := NewBuilder(&fakeArticles{}, &fakeTopics{}, &fakeExtractor{}, nil, 5, 2000, logger.NewNop())

	_, err := b.Build(context.Background(), 1)
	assert.Error(t, err)
}

func TestBuild_ZeroExtractedTopicsIsFatal(t *testing.T) {
	b := NewBuilder(&fakeArticles{articles: articlesN(1, 10)}, &fakeTopics{},
		&fakeExtractor{}, nil, 5, 2000, logger.NewNop())

	_, err := b.Build(context.Background(), 1)
	assert.Error(t, err)
}

func TestBuild_ExtractorErrorPropagates(t *testing.T) {
	b := NewBuilder(&fakeArticles{articles: articlesN(1, 10)}, &fakeTopics{},
		&fakeExtractor{err: errors.New("llm down")}, nil, 5, 2000, logger.NewNop())

	_, err := b.Build(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm down")
}

func TestBuild_SkipsFailingTopicInsert(t *testing.T) {
	extractor := &fakeExtractor{topics: []contracts.ExtractedTopic{
		{Name: "坏题材"}, {Name: "好题材"},
	}}
	topicRepo := &fakeTopics{failFor: map[string]bool{"坏题材": true}}

	b := NewBuilder(&fakeArticles{articles: articlesN(1, 10)}, topicRepo,
		extractor, nil, 5, 2000, logger.NewNop())

	n, err := b.Build(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBuild_CatalogFailureStillExtracts(t *testing.T) {
	extractor := &fakeExtractor{topics: []contracts.ExtractedTopic{{Name: "军工"}}}

	b := NewBuilder(&fakeArticles{articles: articlesN(1, 10)}, &fakeTopics{},
		extractor, &fakeResolver{err: errors.New("catalog down")}, 5, 2000, logger.NewNop())

	n, err := b.Build(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, extractor.gotReq.CandidateBoards)
}
