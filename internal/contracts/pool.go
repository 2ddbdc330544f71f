package contracts

import "context"

// Candidate is one pool-1 row: a stock sourced from a board related to a
// topic, pre-filter. The same stock may appear once per sourcing topic.
// TopicID is a weak reference; deleting a topic must not break reads.
type Candidate struct {
	ID          int64
	ReportID    int64
	TopicID     *int64
	StockCode   string
	StockName   string
	Snapshot    Snapshot
	MatchReason string
}

// RuleOutcome is one rule's verdict for one stock, in rule sort order.
type RuleOutcome struct {
	RuleKey string                 `json:"rule_key"`
	Passed  bool                   `json:"passed"`
	Score   float64                `json:"score"`
	Reason  string                 `json:"reason"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Selection is one pool-2 row, 1:1 with its originating candidate.
// IsSelected holds iff every enabled rule passed and TotalScore > 0.
type Selection struct {
	ID           int64
	ReportID     int64
	CandidateID  int64
	StockCode    string
	StockName    string
	TechScore    float64
	FundScore    float64
	TotalScore   float64
	RuleOutcomes []RuleOutcome
	IsSelected   bool
}

// CandidateRepository manages pool-1 rows.
type CandidateRepository interface {
	ListByReport(ctx context.Context, reportID int64) ([]Candidate, error)
	CountByReport(ctx context.Context, reportID int64) (int, error)
	Add(ctx context.Context, candidate *Candidate) (int64, error)
	DeleteByReport(ctx context.Context, reportID int64) (int64, error)
}

// SelectionRepository manages pool-2 rows.
type SelectionRepository interface {
	ListByReport(ctx context.Context, reportID int64) ([]Selection, error)
	Add(ctx context.Context, selection *Selection) (int64, error)
	DeleteByReport(ctx context.Context, reportID int64) (int64, error)
}
