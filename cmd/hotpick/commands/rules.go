package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// rulesCmd represents the rules command group
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "规则配置管理",
	Long: `查看和初始化精选规则配置。

Subcommands:
  list  - 列出全部规则配置
  init  - 写入缺省规则 (已有配置保持不变)

Example:
  go run ./cmd/hotpick rules list
  go run ./cmd/hotpick rules init`,
}

var (
	rulesListCmd = &cobra.Command{
		Use:   "list",
		Short: "列出全部规则配置",
		RunE:  listRules,
	}

	rulesInitCmd = &cobra.Command{
		Use:   "init",
		Short: "写入缺省规则配置",
		RunE:  initRules,
	}
)

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesInitCmd)
}

func listRules(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	configs, err := a.ruleConfigs.List(context.Background())
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}

	if len(configs) == 0 {
		fmt.Println("No rules configured. Run `hotpick rules init` to seed defaults.")
		return nil
	}

	fmt.Println("Configured rules:")
	for _, cfg := range configs {
		state := "enabled"
		if !cfg.Enabled {
			state = "disabled"
		}
		fmt.Printf("  [%s] %-15s %s  params=%v\n", state, cfg.RuleKey, cfg.Name, cfg.Params)
	}

	return nil
}

func initRules(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.ruleConfigs.Seed(context.Background()); err != nil {
		return fmt.Errorf("seed rules: %w", err)
	}

	configs, err := a.ruleConfigs.List(context.Background())
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}

	fmt.Printf("✅ Default rules seeded (%d configured)\n", len(configs))
	return nil
}
