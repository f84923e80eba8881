package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lorebot/lore/api"
	"github.com/lorebot/lore/internal/app"
	"github.com/lorebot/lore/internal/bot"
)

// serveWorkers is the dispatcher pool size: each worker holds at most
// one model call in flight.
const serveWorkers = 4

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP chat API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	defer func() { _ = a.Close() }()

	store := api.NewMessageStore()
	dispatcher := bot.NewDispatcher(a.Engine, store, serveWorkers, logger)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	server := api.NewServer(dispatcher, store, a.Store, logger)
	return server.Run(ctx, cfg.ListenAddr)
}
