package contracts

import (
	"context"
	"time"
)

// Stage numbers of the report pipeline.
const (
	StageArticles   = 1
	StageTopics     = 2
	StageCandidates = 3
	StageSelection  = 4
)

// StageName returns the operator-facing name of a pipeline stage.
func StageName(stage int) string {
	switch stage {
	case StageArticles:
		return "情报源"
	case StageTopics:
		return "热点风口"
	case StageCandidates:
		return "异动初筛"
	case StageSelection:
		return "深度精选"
	default:
		return "unknown"
	}
}

// ArticleCollector runs stage 1: ensure the report has articles.
type ArticleCollector interface {
	Collect(ctx context.Context, reportID int64, date time.Time) (int, error)
}

// TopicBuilder runs stage 2: extract topics from the report's articles.
type TopicBuilder interface {
	Build(ctx context.Context, reportID int64) (int, error)
}

// CandidateSourcer runs stage 3: resolve boards and fill pool 1.
type CandidateSourcer interface {
	Source(ctx context.Context, reportID int64) (int, error)
}

// Selector runs stage 4: apply rules to pool 1, producing pool 2.
// Returns the selected count; zero selections is a valid outcome.
type Selector interface {
	Select(ctx context.Context, reportID int64) (int, error)
}

// StageEvent is a pipeline progress notification.
type StageEvent struct {
	ReportID int64     `json:"report_id"`
	Stage    int       `json:"stage"`
	Name     string    `json:"name"`
	Status   string    `json:"status"` // started, completed, failed
	Count    int       `json:"count"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Notifier receives progress events. Implementations must not block the
// pipeline; drop rather than stall.
type Notifier interface {
	Notify(event StageEvent)
}
