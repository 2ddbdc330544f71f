package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenghou-lab/hotpick/internal/contracts"
)

// rerunCmd represents the rerun command
var rerunCmd = &cobra.Command{
	Use:   "rerun [report-id]",
	Short: "从指定阶段重跑报告",
	Long: `对已存在的报告从指定阶段开始重跑。

阶段 1 (情报源) 的文章是永久输入, 只有 2-4 阶段可以重放。
重跑会先清除该阶段及之后阶段的产出, 再顺序执行到阶段 4。

--from:
  2  热点风口 (重新提炼题材)
  3  异动初筛 (重新拉取板块成分)
  4  深度精选 (只重算规则打分)

--only 只执行指定的单个阶段, 不级联到后续阶段。

Example:
  go run ./cmd/hotpick rerun 42
  go run ./cmd/hotpick rerun 42 --from 4
  go run ./cmd/hotpick rerun 42 --only 3`,
	Args: cobra.ExactArgs(1),
	RunE: rerunReport,
}

var (
	rerunFromStage int
	rerunOnlyStage int
)

func init() {
	rootCmd.AddCommand(rerunCmd)

	rerunCmd.Flags().IntVar(&rerunFromStage, "from", contracts.StageTopics, "起始阶段 (2-4)")
	rerunCmd.Flags().IntVar(&rerunOnlyStage, "only", 0, "只执行该阶段 (2-4)")
}

func rerunReport(cmd *cobra.Command, args []string) error {
	reportID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid report id %q", args[0])
	}

	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	var report *contracts.Report
	if rerunOnlyStage != 0 {
		fmt.Printf("=== HotPick Rerun: report #%d stage %d (%s) only ===\n",
			reportID, rerunOnlyStage, contracts.StageName(rerunOnlyStage))
		report, err = a.orch.RunStage(context.Background(), reportID, rerunOnlyStage)
	} else {
		fmt.Printf("=== HotPick Rerun: report #%d from stage %d (%s) ===\n",
			reportID, rerunFromStage, contracts.StageName(rerunFromStage))
		report, err = a.orch.RerunFrom(context.Background(), reportID, rerunFromStage)
	}
	if err != nil {
		if report != nil && report.Status == contracts.StatusError {
			fmt.Printf("\n❌ Rerun failed at stage %d: %s\n", report.ErrorStage, report.ErrorMessage)
		}
		return fmt.Errorf("rerun report: %w", err)
	}

	fmt.Printf("\n✅ Rerun completed in %s\n", time.Since(start).Round(time.Second))

	return printSelections(a, report.ID)
}
