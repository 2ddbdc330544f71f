package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fenghou-lab/hotpick/internal/pipeline"
	"github.com/fenghou-lab/hotpick/pkg/config"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

// DailyReportJob runs the full report pipeline for the current date.
type DailyReportJob struct {
	orch     *pipeline.Orchestrator
	schedule string
	logger   *logger.Logger
}

// NewDailyReportJob creates the scheduled daily report run.
func NewDailyReportJob(orch *pipeline.Orchestrator, cfg *config.Config, log *logger.Logger) *DailyReportJob {
	return &DailyReportJob{
		orch:     orch,
		schedule: cfg.Pipeline.DailyRunSchedule,
		logger:   log,
	}
}

// Name returns the job name.
func (j *DailyReportJob) Name() string {
	return "daily_report"
}

// Schedule returns the cron schedule, configured via PIPELINE_DAILY_SCHEDULE.
func (j *DailyReportJob) Schedule() string {
	return j.schedule
}

// Run executes the full pipeline for today.
func (j *DailyReportJob) Run(ctx context.Context) error {
	date := time.Now()
	j.logger.WithField("date", date.Format("2006-01-02")).Info("Starting scheduled report run")

	report, err := j.orch.RunFull(ctx, date)
	if err != nil {
		// Another runner already holds today's report; not a failure worth retrying.
		if errors.Is(err, pipeline.ErrReportBusy) {
			j.logger.Warn("Report already running, skipping scheduled run")
			return nil
		}
		return fmt.Errorf("run full pipeline: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"report_id": report.ID,
		"status":    report.Status,
	}).Info("Scheduled report run completed")
	return nil
}
