package main

import (
	"os"

	"github.com/minhle/dcarank/cmd/dcarank/commands"
)

// main is the entry point for the dcarank CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/dcarank [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
