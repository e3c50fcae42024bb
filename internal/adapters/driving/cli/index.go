package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docqa-cli/internal/corpus"
)

var (
	indexRebuild bool
	indexWatch   bool
)

var indexCmd = &cobra.Command{
	Use:   "index [paths...]",
	Short: "Build the vector index from corpus files",
	Long: `Reads the given files and directories, chunks and embeds their
content, and saves the index snapshot.

Ingesting over a non-empty index is refused; pass --rebuild to replace
it. A rebuild backs up the previous snapshot first.

With --watch the command keeps running and re-indexes whenever the
corpus changes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexRebuild, "rebuild", false, "replace the existing index, backing up its snapshot")
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "keep running and re-index on corpus changes")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ctx := cmd.Context()

	report, err := ingestService.Ingest(ctx, args, driving.IngestOptions{Rebuild: indexRebuild})
	if err != nil {
		return indexError(err)
	}
	printIngestReport(cmd, report)

	if !indexWatch {
		return nil
	}

	cmd.Println("Watching for changes. Press Ctrl-C to stop.")
	watcher := corpus.NewWatcher(corpus.DefaultDebounce)
	changes, err := watcher.Watch(ctx, args)
	if err != nil {
		return fmt.Errorf("watch corpus: %w", err)
	}

	// Each change batch triggers a full rebuild; the embedding cache
	// keeps unchanged chunks free.
	for batch := range changes {
		cmd.Printf("\nChange detected (%d paths), re-indexing...\n", len(batch))
		report, err := ingestService.Ingest(ctx, args, driving.IngestOptions{Rebuild: true})
		if err != nil {
			cmd.PrintErrf("Re-index failed: %v\n", err)
			continue
		}
		printIngestReport(cmd, report)
	}

	return nil
}

func indexError(err error) error {
	if errors.Is(err, domain.ErrEmbeddingUnavailable) {
		return fmt.Errorf("indexing failed: %w (run 'docqa config setup' to configure a provider)", err)
	}
	return fmt.Errorf("indexing failed: %w", err)
}

func printIngestReport(cmd *cobra.Command, report *driving.IngestReport) {
	cmd.Printf("Indexed %d of %d chunks from %d documents.\n",
		report.Indexed, report.Chunks, report.Sources)
	if skipped := report.Files - report.Sources; skipped > 0 {
		cmd.Printf("  %d files skipped (unsupported or unreadable).\n", skipped)
	}
	if report.CacheHits > 0 {
		cmd.Printf("  %d embeddings served from cache.\n", report.CacheHits)
	}
	if report.BackupPath != "" {
		cmd.Printf("  Previous snapshot backed up to %s\n", report.BackupPath)
	}
	if len(report.Excluded) > 0 {
		cmd.Printf("  %d chunks excluded:\n", len(report.Excluded))
		for _, ex := range report.Excluded {
			cmd.Printf("    %s (%s): %s\n", ex.ChunkID, ex.Source, ex.Reason)
		}
	}
}
