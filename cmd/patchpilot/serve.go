package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	patchpilot "github.com/jxucoder/PatchPilot"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PatchPilot HTTP API server",
	Long: `Start the HTTP API server. Runs are created with POST /api/runs and
progress streams over SSE from GET /api/runs/{id}/events.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	app, err := patchpilot.NewBuilder().WithConfig(cfg).Build()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	return app.Serve(ctx)
}
