package jobs

import (
	"context"
	"fmt"

	"github.com/fenghou-lab/hotpick/internal/boards"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

// BoardRefreshJob re-fetches the exchange board catalog ahead of the
// morning pipeline run so stage 3 resolves against fresh names.
type BoardRefreshJob struct {
	catalog *boards.Catalog
	logger  *logger.Logger
}

// NewBoardRefreshJob creates the board catalog refresh job.
func NewBoardRefreshJob(catalog *boards.Catalog, log *logger.Logger) *BoardRefreshJob {
	return &BoardRefreshJob{catalog: catalog, logger: log}
}

// Name returns the job name.
func (j *BoardRefreshJob) Name() string {
	return "board_refresh"
}

// Schedule returns the cron schedule (8 AM on weekdays, before the daily run).
func (j *BoardRefreshJob) Schedule() string {
	return "0 0 8 * * MON-FRI"
}

// Run drops the cached catalog and warms it again.
func (j *BoardRefreshJob) Run(ctx context.Context) error {
	j.logger.Info("Refreshing board catalog")

	if err := j.catalog.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh board catalog: %w", err)
	}

	list, err := j.catalog.Boards(ctx)
	if err != nil {
		return fmt.Errorf("warm board catalog: %w", err)
	}

	j.logger.WithField("boards", len(list)).Info("Board catalog refreshed")
	return nil
}
