package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "查看系统状态",
	Long: `检查各依赖的连通性和最近一次采集的结果.

检查项:
- PostgreSQL 连接与连接池状态
- Redis 连接 (若启用)
- 交易日判定 (指数探测)
- 最近一次采集的日期与统计

Example:
  go run ./cmd/limitboard status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Limitboard Status ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Database
	if err := a.db.Ping(ctx); err != nil {
		fmt.Printf("❌ PostgreSQL: %v\n", err)
	} else {
		stats := a.db.Stats()
		fmt.Printf("✅ PostgreSQL: ok (conns %d/%d)\n", stats.AcquiredConns, stats.TotalConns)
	}

	// Redis
	if a.rdb.Enabled() {
		if err := a.rdb.Redis().Ping(ctx).Err(); err != nil {
			fmt.Printf("❌ Redis: %v\n", err)
		} else {
			fmt.Println("✅ Redis: ok")
		}
	} else {
		fmt.Println("⏭  Redis: disabled")
	}

	// Trading day
	trading, err := a.resolver.IsTradingToday(ctx)
	if err != nil {
		fmt.Printf("❌ 交易日判定: %v\n", err)
	} else if trading {
		fmt.Println("✅ 今天是交易日")
	} else {
		fmt.Println("⏭  今天不是交易日")
	}

	// Latest collected stats
	today, err := a.service.GetTodayStats(ctx)
	if err != nil {
		fmt.Printf("❌ 统计查询: %v\n", err)
		return nil
	}

	if today.Stats == nil {
		fmt.Printf("⏳ %s 尚未采集\n", today.Date.Format("2006-01-02"))
		return nil
	}

	tag := ""
	if today.IsFallback {
		tag = " (最近交易日)"
	}
	fmt.Printf("📊 %s%s: 涨停 %d, 跌停 %d, 最高连板 %d\n",
		today.Date.Format("2006-01-02"), tag,
		today.Stats.LimitUpCount, today.Stats.LimitDownCount, today.Stats.MaxLimitStreak)
	fmt.Printf("   更新于 %s\n", today.Stats.UpdatedAt.Format("2006-01-02 15:04:05"))

	return nil
}
