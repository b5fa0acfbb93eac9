package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "limitboard",
	Short: "Limitboard - A股涨跌停数据采集与聚合服务",
	Long: `Limitboard Unified CLI

A股市场数据管道: 采集全市场行情, 统计涨跌停与连板,
聚合题材板块周榜, 并通过 REST API 对外提供查询.

Usage:
  go run ./cmd/limitboard [command]

Examples:
  go run ./cmd/limitboard api
  go run ./cmd/limitboard collect
  go run ./cmd/limitboard scheduler start
  go run ./cmd/limitboard status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
