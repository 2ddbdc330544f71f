package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

// ErrReportBusy is returned when another run already holds the report's run
// lock. The caller retries later instead of queueing.
var ErrReportBusy = errors.New("report is already being processed")

// ErrInvalidStage is returned for rerun requests outside stages 2..4.
var ErrInvalidStage = errors.New("rerun stage must be 2, 3 or 4")

// Orchestrator drives the four-stage report pipeline and owns all report
// status transitions. Stage outputs are cleared before re-execution so any
// run is idempotent: same date, same inputs, same final pools.
type Orchestrator struct {
	reports    contracts.ReportRepository
	topics     contracts.TopicRepository
	candidates contracts.CandidateRepository
	selections contracts.SelectionRepository

	collector contracts.ArticleCollector
	builder   contracts.TopicBuilder
	sourcer   contracts.CandidateSourcer
	selector  contracts.Selector

	notifier     contracts.Notifier
	stageTimeout time.Duration
	logger       *logger.Logger
}

// NewOrchestrator wires the pipeline. notifier may be nil.
func NewOrchestrator(
	reports contracts.ReportRepository,
	topics contracts.TopicRepository,
	candidates contracts.CandidateRepository,
	selections contracts.SelectionRepository,
	collector contracts.ArticleCollector,
	builder contracts.TopicBuilder,
	sourcer contracts.CandidateSourcer,
	selector contracts.Selector,
	notifier contracts.Notifier,
	stageTimeout time.Duration,
	log *logger.Logger,
) *Orchestrator {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Orchestrator{
		reports:      reports,
		topics:       topics,
		candidates:   candidates,
		selections:   selections,
		collector:    collector,
		builder:      builder,
		sourcer:      sourcer,
		selector:     selector,
		notifier:     notifier,
		stageTimeout: stageTimeout,
		logger:       log,
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(contracts.StageEvent) {}

// RunFull executes all four stages for the given date, creating the report
// if needed. Re-running a date replays stages 2..4 on the stored articles.
func (o *Orchestrator) RunFull(ctx context.Context, date time.Time) (*contracts.Report, error) {
	report, err := o.reports.GetOrCreate(ctx, date)
	if err != nil {
		return nil, err
	}

	if runErr := o.run(ctx, report, contracts.StageArticles, contracts.StageSelection); runErr != nil {
		return o.refetch(ctx, report), runErr
	}

	return o.reports.GetByID(ctx, report.ID)
}

// RerunFrom re-executes the pipeline for an existing report starting at the
// given stage. Stage 1 inputs are permanent; only stages 2..4 can be replayed.
func (o *Orchestrator) RerunFrom(ctx context.Context, reportID int64, stage int) (*contracts.Report, error) {
	if stage < contracts.StageTopics || stage > contracts.StageSelection {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidStage, stage)
	}

	report, err := o.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if runErr := o.run(ctx, report, stage, contracts.StageSelection); runErr != nil {
		return o.refetch(ctx, report), runErr
	}

	return o.reports.GetByID(ctx, report.ID)
}

// RunStage re-executes a single stage in isolation. Outputs of the stage and
// everything downstream are still cleared first, so later stages must be
// replayed afterwards; callers use this to iterate on one stage without
// paying for the whole cascade.
func (o *Orchestrator) RunStage(ctx context.Context, reportID int64, stage int) (*contracts.Report, error) {
	if stage < contracts.StageTopics || stage > contracts.StageSelection {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidStage, stage)
	}

	report, err := o.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if runErr := o.run(ctx, report, stage, stage); runErr != nil {
		return o.refetch(ctx, report), runErr
	}

	return o.reports.GetByID(ctx, report.ID)
}

// refetch reloads the report so callers see the recorded error state even
// when the run context is already cancelled. Falls back to the stale copy.
func (o *Orchestrator) refetch(ctx context.Context, report *contracts.Report) *contracts.Report {
	fresh, err := o.reports.GetByID(context.WithoutCancel(ctx), report.ID)
	if err != nil {
		return report
	}
	return fresh
}

// run takes the run lock, clears downstream outputs and executes stages
// from..to in order.
func (o *Orchestrator) run(ctx context.Context, report *contracts.Report, from, to int) error {
	locked, err := o.reports.AcquireRunLock(ctx, report.ID)
	if err != nil {
		return err
	}
	if !locked {
		return fmt.Errorf("%w: report %d", ErrReportBusy, report.ID)
	}
	defer func() {
		if err := o.reports.ReleaseRunLock(context.WithoutCancel(ctx), report.ID); err != nil {
			o.logger.WithError(err).WithField("report_id", report.ID).Error("Run lock release failed")
		}
	}()

	if err := o.reports.UpdateStatus(ctx, report.ID, contracts.StatusProcessing); err != nil {
		return err
	}

	if err := o.clearFrom(ctx, report.ID, from); err != nil {
		return o.fail(ctx, report.ID, from, err)
	}

	for stage := from; stage <= to; stage++ {
		if err := o.runStage(ctx, report, stage); err != nil {
			return o.fail(ctx, report.ID, stage, err)
		}
	}

	if err := o.reports.UpdateStatus(ctx, report.ID, contracts.StatusCompleted); err != nil {
		return err
	}

	o.logger.WithFields(map[string]interface{}{
		"report_id": report.ID,
		"date":      report.Date.Format("2006-01-02"),
	}).Info("Pipeline completed")

	return nil
}

// clearFrom deletes stage outputs from the given stage downward, later
// stages first, so a crash mid-delete never leaves rows whose inputs are
// already gone.
func (o *Orchestrator) clearFrom(ctx context.Context, reportID int64, from int) error {
	if from <= contracts.StageSelection {
		if _, err := o.selections.DeleteByReport(ctx, reportID); err != nil {
			return err
		}
	}
	if from <= contracts.StageCandidates {
		if _, err := o.candidates.DeleteByReport(ctx, reportID); err != nil {
			return err
		}
	}
	if from <= contracts.StageTopics {
		if _, err := o.topics.DeleteByReport(ctx, reportID); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, report *contracts.Report, stage int) error {
	o.notify(report.ID, stage, "started", 0, nil)

	stageCtx := ctx
	if o.stageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, o.stageTimeout)
		defer cancel()
	}

	var count int
	var err error
	switch stage {
	case contracts.StageArticles:
		count, err = o.collector.Collect(stageCtx, report.ID, report.Date)
	case contracts.StageTopics:
		count, err = o.builder.Build(stageCtx, report.ID)
	case contracts.StageCandidates:
		count, err = o.sourcer.Source(stageCtx, report.ID)
	case contracts.StageSelection:
		count, err = o.selector.Select(stageCtx, report.ID)
	default:
		err = fmt.Errorf("unknown stage %d", stage)
	}

	if err != nil {
		o.notify(report.ID, stage, "failed", count, err)
		return err
	}

	o.notify(report.ID, stage, "completed", count, nil)
	return nil
}

// fail records the stage failure on the report, preferring the stage error
// over any bookkeeping error.
func (o *Orchestrator) fail(ctx context.Context, reportID int64, stage int, cause error) error {
	if err := o.reports.MarkError(context.WithoutCancel(ctx), reportID, stage, cause.Error()); err != nil {
		o.logger.WithError(err).WithField("report_id", reportID).Error("Failed to record report error")
	}
	return fmt.Errorf("stage %d (%s) failed: %w", stage, contracts.StageName(stage), cause)
}

func (o *Orchestrator) notify(reportID int64, stage int, status string, count int, cause error) {
	event := contracts.StageEvent{
		ReportID: reportID,
		Stage:    stage,
		Name:     contracts.StageName(stage),
		Status:   status,
		Count:    count,
		At:       time.Now(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	o.notifier.Notify(event)
}
