package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minhle/dcarank/internal/activity"
	"github.com/minhle/dcarank/pkg/config"
	"github.com/minhle/dcarank/pkg/logger"
)

// rankCmd represents the rank command
var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Run one ranking batch and print the result",
	Long: `Runs a single DCA ranking batch over all USDT perpetuals and prints
the top of the table.

Example:
  go run ./cmd/dcarank rank
  go run ./cmd/dcarank rank --top 20
  go run ./cmd/dcarank rank --json`,
	RunE: runRank,
}

var (
	rankTop  int
	rankJSON bool
)

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().IntVar(&rankTop, "top", 20, "number of symbols to print")
	rankCmd.Flags().BoolVar(&rankJSON, "json", false, "print the full result as JSON")
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// CLI run: human-readable logs
	cfg.LogFormat = "console"
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)
	tracker := activity.NewTracker()

	stack, err := buildStack(cfg, log, tracker)
	if err != nil {
		return err
	}

	result, err := stack.service.GetRanking(context.Background())
	if err != nil {
		return fmt.Errorf("run ranking batch: %w", err)
	}

	if rankJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result.TooEarly() {
		fmt.Println(result.Summary.Message)
		return nil
	}

	s := result.Summary
	fmt.Printf("=== DCA Ranking: %d symbols, %d hours, %d errors, %.2fs ===\n",
		s.TotalSymbols, s.HoursPassed, s.Errors, s.ProcessingTime)
	fmt.Printf("Invested %.2f -> %.2f (%.2f%%), %d profitable (%.1f%%)\n\n",
		s.TotalInvested, s.TotalCurrentValue, s.AvgPnLPercentage,
		s.ProfitableSymbols, s.ProfitableRate)

	fmt.Printf("%-5s %-14s %10s %12s %8s %6s  %s\n",
		"RANK", "SYMBOL", "PNL%", "PNL", "WIN%", "BUYS", "ACTION")

	top := rankTop
	if top > len(result.Rankings) {
		top = len(result.Rankings)
	}
	for _, r := range result.Rankings[:top] {
		fmt.Printf("%-5d %-14s %9.2f%% %12.2f %7.1f%% %6d  %s\n",
			r.Rank, r.Symbol, r.PnLPercentage, r.TotalPnL, r.WinRate, r.TotalBuys, r.Action)
	}

	return nil
}
