package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Long:  `Shows the index entry count, vector dimensions, snapshot file, and a per-source breakdown.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	stats, err := ingestService.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read index stats: %w", err)
	}

	cmd.Println("Index Statistics")
	cmd.Println()
	cmd.Printf("  Entries:    %d\n", stats.Count)
	cmd.Printf("  Dimensions: %d\n", stats.Dimensions)
	if snapshotPath != "" {
		if info, err := os.Stat(snapshotPath); err == nil {
			cmd.Printf("  Snapshot:   %s (%s)\n", snapshotPath, formatBytes(info.Size()))
		} else {
			cmd.Printf("  Snapshot:   %s (not yet saved)\n", snapshotPath)
		}
	}

	if len(stats.Sources) > 0 {
		cmd.Println()
		cmd.Println("  Per source:")
		sources := make([]string, 0, len(stats.Sources))
		for source := range stats.Sources {
			sources = append(sources, source)
		}
		sort.Strings(sources)
		for _, source := range sources {
			cmd.Printf("    %-40s %d\n", source, stats.Sources[source])
		}
	}

	return nil
}

// formatBytes renders a byte count in a human-readable unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
