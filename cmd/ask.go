package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/lorebot/lore/internal/app"
	"github.com/lorebot/lore/internal/bot"
)

var plainOutput bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&plainOutput, "plain", false, "print raw markdown without terminal styling")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	defer func() { _ = a.Close() }()

	question := strings.Join(args, " ")

	res, err := a.Engine.AskWithRetry(ctx, question)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	out := bot.FormatAnswer(res)
	if !plainOutput {
		if rendered, rerr := renderMarkdown(out); rerr == nil {
			out = rendered
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// renderMarkdown styles the answer for the terminal. Failure falls back
// to the raw markdown at the call site.
func renderMarkdown(text string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	rendered, err := r.Render(text)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(rendered, "\n"), nil
}
