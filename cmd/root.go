// Package cmd wires the CLI commands together.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lorebot/lore/internal/config"
	"github.com/lorebot/lore/internal/log"
)

var debugLogs bool

var rootCmd = &cobra.Command{
	Use:   "lore",
	Short: "lore answers questions about your docs and your code",
	Long: `lore indexes a documentation site and a source repository into a local
vector store and answers natural-language questions over them, citing the
passages each answer is grounded on.

Running lore without a subcommand starts the interactive chat.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "enable debug logging")
}

// loadConfigAndLogger is the shared entry for every command: load and
// validate configuration, then build the logger.
func loadConfigAndLogger() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level := slog.LevelInfo
	if debugLogs {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})

	return cfg, logger, nil
}
