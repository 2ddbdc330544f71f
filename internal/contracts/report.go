package contracts

import (
	"context"
	"time"
)

// ReportStatus is the lifecycle state of a daily report.
type ReportStatus string

const (
	StatusPending    ReportStatus = "pending"
	StatusProcessing ReportStatus = "processing"
	StatusCompleted  ReportStatus = "completed"
	StatusError      ReportStatus = "error"
)

// Report is the root entity of one pipeline run. At most one non-deleted
// report exists per calendar date; the unique constraint on report_date is
// the authority.
type Report struct {
	ID           int64
	Date         time.Time
	Status       ReportStatus
	ErrorStage   int    // 1..4 when Status == error, 0 otherwise
	ErrorMessage string // summarized cause for operators
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReportRepository manages report rows. Only the orchestrator mutates status.
type ReportRepository interface {
	GetOrCreate(ctx context.Context, date time.Time) (*Report, error)
	GetByID(ctx context.Context, id int64) (*Report, error)
	GetByDate(ctx context.Context, date time.Time) (*Report, error)
	List(ctx context.Context, limit int) ([]Report, error)
	UpdateStatus(ctx context.Context, id int64, status ReportStatus) error
	MarkError(ctx context.Context, id int64, stage int, cause string) error
	Delete(ctx context.Context, id int64) error

	// AcquireRunLock guards against concurrent runs of the same report.
	// Returns false when another run already holds the lock.
	AcquireRunLock(ctx context.Context, id int64) (bool, error)
	ReleaseRunLock(ctx context.Context, id int64) error
}
