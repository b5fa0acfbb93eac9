package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "执行一次采集",
	Long: `立即执行一次市场数据采集.

采集流程:
- 判断今天是否交易日 (周末/节假日直接跳过)
- 拉取全市场行情并统计涨跌停
- 保存当日统计与题材板块榜单
- 清理超出保留期的历史数据

Example:
  go run ./cmd/limitboard collect`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Limitboard Collection ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := a.collector.Run(ctx)
	if err != nil {
		return fmt.Errorf("collection run: %w", err)
	}

	if result.Skipped {
		fmt.Printf("\n⏭  %s 不是交易日, 已跳过\n", result.Date.Format("2006-01-02"))
		return nil
	}

	fmt.Printf("\n✅ %s 采集完成 (source: %s, %s)\n",
		result.Date.Format("2006-01-02"), result.Source, result.Duration.Round(time.Millisecond))
	fmt.Printf("   涨停: %d  跌停: %d  最高连板: %d\n",
		result.LimitUpCount, result.LimitDownCount, result.MaxLimitStreak)
	fmt.Printf("   成交量: %d 手  成交额: %.0f 元\n", result.TotalVolume, result.TotalAmount)
	fmt.Printf("   题材榜单: %d 条\n", result.TopicsSaved)

	return nil
}
