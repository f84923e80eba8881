package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/lorebot/lore/internal/app"
	"github.com/lorebot/lore/internal/config"
	"github.com/lorebot/lore/internal/ingest"
	"github.com/lorebot/lore/internal/log"
)

var (
	docsOnly bool
	codeOnly bool
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the knowledge base from the configured sources",
	Long: `Deletes the existing index and rebuilds it from scratch: the docs site
is crawled via its sitemap, the repository is cloned (or pulled) and its
source files read, and every document is chunked, embedded, and stored.

The persistence directory is file-locked for the duration, so concurrent
reindex runs cannot corrupt the index.`,
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().BoolVar(&docsOnly, "docs-only", false, "only ingest the documentation site")
	reindexCmd.Flags().BoolVar(&codeOnly, "code-only", false, "only ingest the code repository")
	reindexCmd.MarkFlagsMutuallyExclusive("docs-only", "code-only")
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if err := cfg.ValidateIngestion(); err != nil {
		return err
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	defer func() { _ = a.Close() }()

	// One reindex at a time per persistence directory.
	if err := os.MkdirAll(cfg.PersistDir, 0o755); err != nil {
		return fmt.Errorf("creating persist dir: %w", err)
	}
	lock := flock.New(filepath.Join(cfg.PersistDir, "reindex.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("locking persist dir: %w", err)
	}
	if !locked {
		return errors.New("another reindex is already running against this index")
	}
	defer func() { _ = lock.Unlock() }()

	docs, counts, err := collectDocuments(ctx, cfg, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Collected %d documents (docs: %d, code: %d)\n",
		len(docs), counts.docs, counts.code)

	if len(docs) == 0 {
		return errors.New("no documents collected from any source; nothing to index")
	}

	if err := a.Store.DeleteCollection(); err != nil {
		return fmt.Errorf("clearing index: %w", err)
	}

	chunks, err := a.Store.Build(ctx, docs)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks into %s\n", chunks, cfg.PersistDir)
	return nil
}

type sourceCounts struct {
	docs int
	code int
}

// collectDocuments runs the configured loaders. A loader failure is fatal
// for its whole source; page-level failures are handled inside the docs
// loader itself.
func collectDocuments(ctx context.Context, cfg *config.Config, logger log.Logger) ([]ingest.Document, sourceCounts, error) {
	var (
		all    []ingest.Document
		counts sourceCounts
	)

	if cfg.DocsSitemapURL != "" && !codeOnly {
		loader := ingest.NewDocsLoader(logger)
		docs, err := loader.Load(ctx, cfg.DocsSitemapURL)
		if err != nil {
			return nil, counts, fmt.Errorf("loading docs site: %w", err)
		}
		counts.docs = len(docs)
		all = append(all, docs...)
	}

	if cfg.RepoURL != "" && !docsOnly {
		loader := ingest.NewRepoLoader(ingest.NewGitClient(), cfg.ReposDir, logger)
		docs, err := loader.Load(ctx, cfg.RepoURL)
		if err != nil {
			return nil, counts, fmt.Errorf("loading repository: %w", err)
		}
		counts.code = len(docs)
		all = append(all, docs...)
	}

	return all, counts, nil
}
