package contracts

import "context"

// Topic is one LLM-derived hot theme for a report. RelatedBoards are
// free-text candidates from the extractor; they are validated against the
// board catalog only in stage 3.
type Topic struct {
	ID            int64
	ReportID      int64
	Name          string
	RelatedBoards []string
	Rationale     string
	ArticleIDs    []int64
}

// ExtractionArticle is the trimmed article payload sent to the extractor.
type ExtractionArticle struct {
	ID      int64
	Title   string
	Content string
}

// ExtractionRequest is the topic-extractor boundary input. CandidateBoards
// is optional; when present the extractor is asked to pick board names from
// it verbatim instead of inventing its own.
type ExtractionRequest struct {
	Articles        []ExtractionArticle
	CandidateBoards []string
}

// ExtractedTopic is one topic candidate from the extractor, not yet persisted.
type ExtractedTopic struct {
	Name          string
	RelatedBoards []string
	Rationale     string
}

// TopicExtractor turns a batch of articles into topic candidates. Malformed
// upstream responses surface as a typed error, never a panic.
type TopicExtractor interface {
	ExtractTopics(ctx context.Context, req ExtractionRequest) ([]ExtractedTopic, error)
}

// TopicRepository manages report topics.
type TopicRepository interface {
	ListByReport(ctx context.Context, reportID int64) ([]Topic, error)
	Add(ctx context.Context, topic *Topic) (int64, error)
	DeleteByReport(ctx context.Context, reportID int64) (int64, error)
}
