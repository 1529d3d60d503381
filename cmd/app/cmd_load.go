package main

import (
	"context"
	"fmt"

	"VolSignals/internal/di"
	applogger "VolSignals/pkg/logger"

	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Import CSV series into ClickHouse",
	Long: `Read <data.dir>/<NAME>.csv for both signals and the instrument and write
them to the ClickHouse series table. Cached copies in Redis are dropped.`,
	RunE: runLoad,
}

var loadDir string

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().StringVar(&loadDir, "dir", "", "override data.dir")
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, l, err := loadConfig()
	if err != nil {
		return err
	}
	if loadDir != "" {
		cfg.Data.Dir = loadDir
	}

	job, cleanup, err := di.InitializeLoadJob(cfg, l)
	if err != nil {
		return fmt.Errorf("load initialization failed: %w", err)
	}
	defer cleanup()

	written, err := job.Run(context.Background())
	if err != nil {
		return err
	}
	total := 0
	for _, n := range written {
		total += n
	}
	l.Info("import complete", applogger.Int("series", len(written)), applogger.Int("samples", total))
	return nil
}
