package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// cleanupCmd represents the cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "清理过期数据",
	Long: `手动清理超出保留期的统计与榜单数据.

Example:
  go run ./cmd/limitboard cleanup
  go run ./cmd/limitboard cleanup --days 60`,
	RunE: runCleanup,
}

var cleanupDays int

func init() {
	rootCmd.AddCommand(cleanupCmd)

	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "保留天数 (默认取 COLLECT_RETENTION_DAYS)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Limitboard Cleanup ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	days := cleanupDays
	if days <= 0 {
		days = a.cfg.Collector.RetentionDays
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	purged, err := a.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}

	fmt.Printf("\n✅ 清理完成: 删除 %d 行 (早于 %s)\n", purged, cutoff.Format("2006-01-02"))
	return nil
}
