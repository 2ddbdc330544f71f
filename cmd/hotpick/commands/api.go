package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fenghou-lab/hotpick/internal/api"
	"github.com/fenghou-lab/hotpick/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "启动 API 服务",
	Long: `启动 REST API 服务。

提供:
- 报告的创建、查询、删除
- 流水线触发与断点重跑
- 规则配置管理
- WebSocket 阶段进度推送

Endpoints:
  GET  /health
  POST /api/pipeline/run
  GET  /api/reports
  GET  /api/reports/{id}/nodes
  POST /api/reports/{id}/rerun
  GET  /api/rules
  GET  /ws

Example:
  go run ./cmd/hotpick api
  go run ./cmd/hotpick api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 服务端口 (默认取 PORT 环境变量)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== HotPick API Server ===")

	hub := api.NewHub(nil)

	a, err := newApp(hub)
	if err != nil {
		return err
	}
	defer a.Close()

	hub.SetLogger(a.log)

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	reportHandler := handlers.NewReportHandler(
		a.reports, a.articles, a.topics, a.candidates, a.selections, a.orch, a.log)
	ruleHandler := handlers.NewRuleHandler(a.ruleConfigs, a.registry, a.log)
	stockHandler := handlers.NewStockHandler(a.market, a.cache, a.log)

	router := api.NewRouter(reportHandler, ruleHandler, stockHandler, hub, a.log)
	server := api.New(a.cfg, a.log, router)

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	a.log.Info("API server started successfully")
	fmt.Printf("\nServer running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
