package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"VolSignals/internal/di"

	"github.com/spf13/cobra"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay the strategy over historical series",
	Long: `Load COR1M, COR3M and the instrument series from CSV files or ClickHouse,
tick through backtest.start..backtest.end on the paper venue and print the
final summary.

Examples:
  volsignals backtest
  volsignals backtest --start 2022-04-01 --end 2022-05-31 --json`,
	RunE: runBacktest,
}

var (
	backtestStart string
	backtestEnd   string
	backtestJSON  bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&backtestStart, "start", "", "override backtest.start (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&backtestEnd, "end", "", "override backtest.end (YYYY-MM-DD)")
	backtestCmd.Flags().BoolVar(&backtestJSON, "json", false, "print the final summary as JSON on stdout")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, l, err := loadConfig()
	if err != nil {
		return err
	}
	if backtestStart != "" {
		cfg.Backtest.Start = backtestStart
	}
	if backtestEnd != "" {
		cfg.Backtest.End = backtestEnd
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	job, cleanup, err := di.InitializeBacktest(cfg, l)
	if err != nil {
		return fmt.Errorf("backtest initialization failed: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := job.Run(ctx)
	if backtestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(summary); encErr != nil {
			return encErr
		}
	}
	return err
}
