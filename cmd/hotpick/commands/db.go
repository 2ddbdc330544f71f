package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// dbCmd represents the db command group
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "数据库管理",
	Long: `数据库初始化与连通性检查。

Subcommands:
  init - 建表并写入缺省规则
  ping - 连通性检查

Example:
  go run ./cmd/hotpick db init`,
}

var (
	dbInitCmd = &cobra.Command{
		Use:   "init",
		Short: "建表并写入缺省规则",
		RunE:  initDB,
	}

	dbPingCmd = &cobra.Command{
		Use:   "ping",
		Short: "连通性检查",
		RunE:  pingDB,
	}
)

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbPingCmd)
}

func initDB(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.db.EnsureSchema(ctx); err != nil {
		return err
	}
	fmt.Println("✅ Schema applied")

	if err := a.ruleConfigs.Seed(ctx); err != nil {
		return fmt.Errorf("seed rules: %w", err)
	}
	fmt.Println("✅ Default rules seeded")

	return nil
}

func pingDB(cmd *cobra.Command, args []string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	fmt.Println("✅ Database reachable")
	return nil
}
