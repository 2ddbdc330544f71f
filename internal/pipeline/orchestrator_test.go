package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenghou-lab/hotpick/internal/contracts"
	"github.com/fenghou-lab/hotpick/pkg/logger"
)

type fakeReports struct {
	report    contracts.Report
	lockBusy  bool
	lockHeld  bool
	statuses  []contracts.ReportStatus
	errStage  int
	errCause  string
}

func (f *fakeReports) GetOrCreate(ctx context.Context, date time.Time) (*contracts.Report, error) {
	f.report.Date = date
	r := f.report
	return &r, nil
}

func (f *fakeReports) GetByID(ctx context.Context, id int64) (*contracts.Report, error) {
	r := f.report
	return &r, nil
}

func (f *fakeReports) GetByDate(ctx context.Context, date time.Time) (*contracts.Report, error) {
	r := f.report
	return &r, nil
}

func (f *fakeReports) List(ctx context.Context, limit int) ([]contracts.Report, error) {
	return []contracts.Report{f.report}, nil
}

func (f *fakeReports) UpdateStatus(ctx context.Context, id int64, status contracts.ReportStatus) error {
	f.statuses = append(f.statuses, status)
	f.report.Status = status
	return nil
}

func (f *fakeReports) MarkError(ctx context.Context, id int64, stage int, cause string) error {
	f.statuses = append(f.statuses, contracts.StatusError)
	f.report.Status = contracts.StatusError
	f.errStage = stage
	f.errCause = cause
	return nil
}

func (f *fakeReports) Delete(ctx context.Context, id int64) error { return nil }

func (f *fakeReports) AcquireRunLock(ctx context.Context, id int64) (bool, error) {
	if f.lockBusy {
		return false, nil
	}
	f.lockHeld = true
	return true, nil
}

func (f *fakeReports) ReleaseRunLock(ctx context.Context, id int64) error {
	f.lockHeld = false
	return nil
}

// stageLog orders stage executions and deletions for cascade assertions.
type stageLog struct {
	entries []string
}

func (l *stageLog) add(entry string) { l.entries = append(l.entries, entry) }

type fakeTopicsRepo struct{ log *stageLog }

func (f *fakeTopicsRepo) ListByReport(ctx context.Context, reportID int64) ([]contracts.Topic, error) {
	return nil, nil
}

func (f *fakeTopicsRepo) Add(ctx context.Context, topic *contracts.Topic) (int64, error) {
	return 0, nil
}

func (f *fakeTopicsRepo) DeleteByReport(ctx context.Context, reportID int64) (int64, error) {
	f.log.add("delete:topics")
	return 0, nil
}

type fakeCandidatesRepo struct{ log *stageLog }

func (f *fakeCandidatesRepo) ListByReport(ctx context.Context, reportID int64) ([]contracts.Candidate, error) {
	return nil, nil
}

func (f *fakeCandidatesRepo) CountByReport(ctx context.Context, reportID int64) (int, error) {
	return 0, nil
}

func (f *fakeCandidatesRepo) Add(ctx context.Context, candidate *contracts.Candidate) (int64, error) {
	return 0, nil
}

func (f *fakeCandidatesRepo) DeleteByReport(ctx context.Context, reportID int64) (int64, error) {
	f.log.add("delete:candidates")
	return 0, nil
}

type fakeSelectionsRepo struct{ log *stageLog }

func (f *fakeSelectionsRepo) ListByReport(ctx context.Context, reportID int64) ([]contracts.Selection, error) {
	return nil, nil
}

func (f *fakeSelectionsRepo) Add(ctx context.Context, selection *contracts.Selection) (int64, error) {
	return 0, nil
}

func (f *fakeSelectionsRepo) DeleteByReport(ctx context.Context, reportID int64) (int64, error) {
	f.log.add("delete:selections")
	return 0, nil
}

type fakeStage struct {
	log   *stageLog
	name  string
	count int
	err   error
}

func (f *fakeStage) run() (int, error) {
	f.log.add("run:" + f.name)
	return f.count, f.err
}

type fakeCollector struct{ fakeStage }

func (f *fakeCollector) Collect(ctx context.Context, reportID int64, date time.Time) (int, error) {
	return f.run()
}

type fakeBuilder struct{ fakeStage }

func (f *fakeBuilder) Build(ctx context.Context, reportID int64) (int, error) { return f.run() }

type fakeSourcer struct{ fakeStage }

func (f *fakeSourcer) Source(ctx context.Context, reportID int64) (int, error) { return f.run() }

type fakeSelector struct{ fakeStage }

func (f *fakeSelector) Select(ctx context.Context, reportID int64) (int, error) { return f.run() }

type recordingNotifier struct {
	events []contracts.StageEvent
}

func (r *recordingNotifier) Notify(event contracts.StageEvent) {
	r.events = append(r.events, event)
}

type harness struct {
	reports  *fakeReports
	log      *stageLog
	notifier *recordingNotifier

	collector *fakeCollector
	builder   *fakeBuilder
	sourcer   *fakeSourcer
	selector  *fakeSelector

	orch *Orchestrator
}

func newHarness() *harness {
	log := &stageLog{}
	h := &harness{
		reports:   &fakeReports{report: contracts.Report{ID: 42, Status: contracts.StatusPending}},
		log:       log,
		notifier:  &recordingNotifier{},
		collector: &fakeCollector{fakeStage{log: log, name: "articles", count: 3}},
		builder:   &fakeBuilder{fakeStage{log: log, name: "topics", count: 2}},
		sourcer:   &fakeSourcer{fakeStage{log: log, name: "candidates", count: 30}},
		selector:  &fakeSelector{fakeStage{log: log, name: "selection", count: 1}},
	}
	h.orch = NewOrchestrator(
		h.reports,
		&fakeTopicsRepo{log: log},
		&fakeCandidatesRepo{log: log},
		&fakeSelectionsRepo{log: log},
		h.collector, h.builder, h.sourcer, h.selector,
		h.notifier, time.Minute, logger.NewNop(),
	)
	return h
}

func TestRunFull_ExecutesAllStagesInOrder(t *testing.T) {
	h := newHarness()

	report, err := h.orch.RunFull(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusCompleted, report.Status)

	assert.Equal(t, []string{
		"delete:selections", "delete:candidates", "delete:topics",
		"run:articles", "run:topics", "run:candidates", "run:selection",
	}, h.log.entries)

	assert.Equal(t, []contracts.ReportStatus{
		contracts.StatusProcessing, contracts.StatusCompleted,
	}, h.reports.statuses)

	assert.False(t, h.reports.lockHeld, "lock must be released after the run")
}

func TestRunFull_EmitsStageEvents(t *testing.T) {
	h := newHarness()

	_, err := h.orch.RunFull(context.Background(), time.Now())
	require.NoError(t, err)

	require.Len(t, h.notifier.events, 8)
	assert.Equal(t, "started", h.notifier.events[0].Status)
	assert.Equal(t, contracts.StageArticles, h.notifier.events[0].Stage)
	assert.Equal(t, "情报源", h.notifier.events[0].Name)

	last := h.notifier.events[7]
	assert.Equal(t, contracts.StageSelection, last.Stage)
	assert.Equal(t, "completed", last.Status)
	assert.Equal(t, 1, last.Count)
}

func TestRunFull_StageFailureStopsAndMarksError(t *testing.T) {
	h := newHarness()
	h.builder.err = errors.New("llm unavailable")

	_, err := h.orch.RunFull(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "热点风口")

	assert.Equal(t, contracts.StageTopics, h.reports.errStage)
	assert.Contains(t, h.reports.errCause, "llm unavailable")

	assert.NotContains(t, h.log.entries, "run:candidates")
	assert.NotContains(t, h.log.entries, "run:selection")
	assert.False(t, h.reports.lockHeld)

	var failed *contracts.StageEvent
	for i := range h.notifier.events {
		if h.notifier.events[i].Status == "failed" {
			failed = &h.notifier.events[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, contracts.StageTopics, failed.Stage)
}

func TestRunFull_ZeroSelectionsCompletes(t *testing.T) {
	h := newHarness()
	h.selector.count = 0

	report, err := h.orch.RunFull(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusCompleted, report.Status)
}

func TestRerunFrom_ClearsOnlyDownstreamStages(t *testing.T) {
	h := newHarness()

	_, err := h.orch.RerunFrom(context.Background(), 42, contracts.StageCandidates)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"delete:selections", "delete:candidates",
		"run:candidates", "run:selection",
	}, h.log.entries)
}

func TestRerunFrom_StageTwoReplaysEverythingButArticles(t *testing.T) {
	h := newHarness()

	_, err := h.orch.RerunFrom(context.Background(), 42, contracts.StageTopics)
	require.NoError(t, err)

	assert.NotContains(t, h.log.entries, "run:articles")
	assert.Contains(t, h.log.entries, "delete:topics")
	assert.Contains(t, h.log.entries, "run:topics")
}

func TestRerunFrom_RejectsInvalidStages(t *testing.T) {
	h := newHarness()

	for _, stage := range []int{0, 1, 5} {
		_, err := h.orch.RerunFrom(context.Background(), 42, stage)
		assert.ErrorIs(t, err, ErrInvalidStage, "stage %d", stage)
	}
	assert.Empty(t, h.log.entries)
}

func TestRunStage_ExecutesOnlyTheRequestedStage(t *testing.T) {
	h := newHarness()

	report, err := h.orch.RunStage(context.Background(), 42, contracts.StageCandidates)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusCompleted, report.Status)

	assert.Equal(t, []string{
		"delete:selections", "delete:candidates",
		"run:candidates",
	}, h.log.entries)
	assert.False(t, h.reports.lockHeld)
}

func TestRunStage_SelectionStageClearsOnlySelections(t *testing.T) {
	h := newHarness()

	_, err := h.orch.RunStage(context.Background(), 42, contracts.StageSelection)
	require.NoError(t, err)

	assert.Equal(t, []string{"delete:selections", "run:selection"}, h.log.entries)
}

func TestRunStage_RejectsInvalidStages(t *testing.T) {
	h := newHarness()

	for _, stage := range []int{0, 1, 5} {
		_, err := h.orch.RunStage(context.Background(), 42, stage)
		assert.ErrorIs(t, err, ErrInvalidStage, "stage %d", stage)
	}
	assert.Empty(t, h.log.entries)
}

func TestRun_BusyLockIsRejected(t *testing.T) {
	h := newHarness()
	h.reports.lockBusy = true

	_, err := h.orch.RunFull(context.Background(), time.Now())
	assert.ErrorIs(t, err, ErrReportBusy)
	assert.Empty(t, h.log.entries)
}
