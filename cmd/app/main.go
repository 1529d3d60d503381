package main

import (
	"fmt"
	"os"

	"VolSignals/pkg/config"
	applogger "VolSignals/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "volsignals",
	Short: "Correlation-spread regime gate and short volatility execution engine",
	Long: `VolSignals classifies the COR1M/COR3M correlation spread into SAFE, NEUTRAL
and DANGER regimes and runs a single short position in the traded instrument
while the regime allows it.

Examples:
  volsignals backtest --config configs/config.yaml
  volsignals live --config configs/config.yaml
  volsignals load --config configs/config.yaml`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug|info|warn|error)")
}

// loadConfig reads the config file with env overrides and builds the logger.
func loadConfig() (*config.Config, *applogger.Logger, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	l.Info("config loaded",
		applogger.String("path", configPath),
		applogger.String("env", cfg.Environment),
		applogger.String("instrument", cfg.Strategy.Instrument),
	)
	return cfg, l, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
