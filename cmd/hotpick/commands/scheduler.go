package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fenghou-lab/hotpick/internal/scheduler"
	"github.com/fenghou-lab/hotpick/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command group
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "定时任务管理",
	Long: `启动定时任务守护进程或立即触发某个任务。

注册的任务:
- daily_report:  工作日早间执行完整流水线 (PIPELINE_DAILY_SCHEDULE)
- board_refresh: 工作日 8 点刷新板块目录

Subcommands:
  start - 启动调度器
  list  - 列出注册任务
  run   - 立即触发指定任务

Example:
  go run ./cmd/hotpick scheduler start
  go run ./cmd/hotpick scheduler run daily_report`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "启动调度器",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "列出注册任务",
		RunE:  listScheduledJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "立即触发指定任务",
		Args:  cobra.ExactArgs(1),
		RunE:  runScheduledJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== HotPick Scheduler ===")

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listScheduledJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runScheduledJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	a, sched, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// RunJob is asynchronous; block until interrupted so the job can finish.
	fmt.Println("Job started. Press Ctrl+C once it completes.")
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return nil
}

func initScheduler() (*app, *scheduler.Scheduler, error) {
	a, err := newApp(nil)
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log)

	if err := sched.AddJob(jobs.NewDailyReportJob(a.orch, a.cfg, a.log)); err != nil {
		a.Close()
		return nil, nil, err
	}
	if err := sched.AddJob(jobs.NewBoardRefreshJob(a.catalog, a.log)); err != nil {
		a.Close()
		return nil, nil, err
	}

	return a, sched, nil
}
