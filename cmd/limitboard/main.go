package main

import (
	"os"

	"github.com/hzchen/limitboard/cmd/limitboard/commands"
)

// main is the entry point for the limitboard CLI
// ⭐ 统一入口: go run ./cmd/limitboard [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
