package main

import (
	"context"
	"fmt"

	"VolSignals/internal/di"

	"github.com/spf13/cobra"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Run the engine on a live tick feed",
	Long: `Consume live ticks from Kafka or a WebSocket feed, act on the configured
venue and serve /api/status, /api/events, /healthz and /metrics until
interrupted.`,
	RunE: runLive,
}

func init() {
	rootCmd.AddCommand(liveCmd)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, l, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateLive(); err != nil {
		return err
	}

	app, cleanup, err := di.InitializeApp(cfg, l)
	if err != nil {
		return fmt.Errorf("app initialization failed: %w", err)
	}
	defer cleanup()

	return app.Run(context.Background())
}
