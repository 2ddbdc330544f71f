package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [date]",
	Short: "执行完整选股流水线",
	Long: `对指定日期执行完整四阶段流水线。

阶段:
  1. 情报源   - 采集公众号文章
  2. 热点风口 - LLM 提炼热点题材
  3. 异动初筛 - 板块成分股入池
  4. 深度精选 - 规则引擎打分筛选

日期格式 YYYY-MM-DD, 缺省为今天。同一日期重复执行会
基于已采集的文章重放 2-4 阶段。

Example:
  go run ./cmd/hotpick run
  go run ./cmd/hotpick run 2026-08-25`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	date := time.Now()
	if len(args) == 1 {
		parsed, err := time.Parse("2006-01-02", args[0])
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", args[0])
		}
		date = parsed
	}

	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("=== HotPick Pipeline: %s ===\n", date.Format("2006-01-02"))

	start := time.Now()
	report, err := a.orch.RunFull(context.Background(), date)
	if err != nil {
		if report != nil {
			fmt.Printf("\n❌ Pipeline failed at stage %d: %s\n", report.ErrorStage, report.ErrorMessage)
		}
		return fmt.Errorf("run pipeline: %w", err)
	}

	fmt.Printf("\n✅ Pipeline completed in %s (report #%d)\n", time.Since(start).Round(time.Second), report.ID)

	return printSelections(a, report.ID)
}

// printSelections writes the final picks to stdout, selected rows first.
func printSelections(a *app, reportID int64) error {
	rows, err := a.selections.ListByReport(context.Background(), reportID)
	if err != nil {
		return fmt.Errorf("list selections: %w", err)
	}

	selected := 0
	for _, row := range rows {
		if row.IsSelected {
			selected++
		}
	}

	fmt.Printf("\nEvaluated %d candidates, %d selected:\n\n", len(rows), selected)
	for _, row := range rows {
		if !row.IsSelected {
			continue
		}
		fmt.Printf("  %s %s  total=%.2f tech=%.2f fund=%.2f\n",
			row.StockCode, row.StockName, row.TotalScore, row.TechScore, row.FundScore)
	}
	if selected == 0 {
		fmt.Println("  (no stock passed every enabled rule)")
	}

	return nil
}
