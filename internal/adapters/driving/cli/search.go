package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

var (
	searchK      int
	searchJSON   bool
	searchSource string
	searchDedupe bool
)

// snippetLength bounds the passage preview in table output.
const snippetLength = 200

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find corpus passages relevant to a query",
	Long: `Embeds the query and ranks indexed passages by cosine similarity.
Each result shows its source document, page, and relevance.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchK, "k", 0, "passages to return (0 uses the configured default)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "restrict results to one source document")
	searchCmd.Flags().BoolVar(&searchDedupe, "dedupe", false, "keep only the best passage per source and page")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	opts := domain.RetrieveOptions{
		K:      searchK,
		Source: searchSource,
		Dedupe: searchDedupe,
	}

	results, err := retrievalService.Retrieve(cmd.Context(), query, opts)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			return fmt.Errorf("search failed: %w (run 'docqa config setup' to configure a provider)", err)
		}
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		cmd.Println("The index may be empty; run 'docqa index <paths>' to build it.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		cmd.Printf("  [%d] %s (%d%% relevant)\n",
			i+1, describeSource(&results[i]), relevancePercent(results[i].Score))
		cmd.Printf("      %s\n", snippet(results[i].Text))
		cmd.Println()
	}

	return nil
}

// describeSource renders "source, page N" or just the source when the
// passage carries no page.
func describeSource(r *domain.SearchResult) string {
	source := r.Source()
	if source == "" {
		source = r.ChunkID
	}
	if page := r.Page(); page != "" {
		return fmt.Sprintf("%s, page %s", source, page)
	}
	return source
}

// relevancePercent maps a cosine similarity score to a display
// percentage. Negative scores clamp to zero.
func relevancePercent(score float64) int {
	if score < 0 {
		return 0
	}
	return int(score*100 + 0.5)
}

// snippet returns the passage's first line, truncated for display.
func snippet(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	runes := []rune(text)
	if len(runes) > snippetLength {
		return string(runes[:snippetLength]) + "..."
	}
	return text
}
