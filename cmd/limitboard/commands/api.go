package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hzchen/limitboard/internal/api"
	"github.com/hzchen/limitboard/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "启动 API 服务器",
	Long: `启动 REST API 服务器.

Endpoints:
  GET  /health               - Health check
  GET  /api/stats/today      - 今日(或最近交易日)统计
  GET  /api/stats/history    - 历史统计
  GET  /api/stats/indices    - 大盘指数行情
  GET  /api/topics           - 题材板块榜单
  GET  /api/topics/weekly    - 题材板块周榜
  GET  /api/stock/search     - 个股实时查询
  GET  /api/stock/suggest    - 个股搜索建议
  POST /api/stats/collect    - 手动触发采集

Example:
  go run ./cmd/limitboard api
  go run ./cmd/limitboard api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 服务器端口 (默认取 PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Limitboard API Server ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	statsHandler := handlers.NewStatsHandler(a.service, a.collector, a.log)
	searchHandler := handlers.NewSearchHandler(a.tencent, a.eastmoney, a.log)
	router := api.NewRouter(statsHandler, searchHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
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
