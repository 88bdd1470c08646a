package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dcarank",
	Short: "Intraday DCA performance ranking for USDT perpetuals",
	Long: `dcarank - Intraday DCA Ranking Service

Simulates buying a fixed notional once per completed hour since 00:00 UTC
for every USDT perpetual, then ranks the universe by unrealized P&L.

Usage:
  go run ./cmd/dcarank [command]

Examples:
  go run ./cmd/dcarank api
  go run ./cmd/dcarank rank --top 20`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
