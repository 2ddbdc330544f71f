package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hotpick",
	Short: "热点风口选股系统",
	Long: `热点风口选股 CLI

公众号文章采集 → LLM 热点提炼 → 板块成分股初筛 → 规则精选，
每天产出一份候选股报告。

Usage:
  go run ./cmd/hotpick [command]

Examples:
  go run ./cmd/hotpick api
  go run ./cmd/hotpick run
  go run ./cmd/hotpick rerun 42 --from 3
  go run ./cmd/hotpick rules list`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
