package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa-cli/internal/adapters/driving/tui"
	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

var (
	askK      int
	askSource string
	askDedupe bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed corpus",
	Long: `Retrieves the passages most relevant to the question and generates
an answer grounded on them, citing its sources.

Without a question the command opens an interactive session.`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVar(&askK, "k", 0, "passages to ground on (0 uses the configured default)")
	askCmd.Flags().StringVar(&askSource, "source", "", "restrict grounding to one source document")
	askCmd.Flags().BoolVar(&askDedupe, "dedupe", false, "keep only the best passage per source and page")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	if len(args) == 0 {
		return runAskSession(cmd)
	}

	question := strings.Join(args, " ")
	opts := domain.RetrieveOptions{K: askK, Source: askSource, Dedupe: askDedupe}

	answer, err := answerService.Ask(cmd.Context(), question, opts)
	if err != nil {
		return askError(cmd, err)
	}

	printAnswer(cmd, answer)
	return nil
}

// runAskSession drives the interactive question-and-answer loop.
func runAskSession(cmd *cobra.Command) error {
	// Panic recovery keeps a stack trace visible after the alternate
	// screen is torn down.
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in session: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ports := &tui.Ports{
		Answerer: answerService,
		Defaults: domain.RetrieveOptions{K: askK, Source: askSource, Dedupe: askDedupe},
	}
	if usageAccumulator != nil {
		ports.Usage = usageAccumulator
	}

	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	app.WithContext(cmd.Context())

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("session error: %w", err)
	}

	return nil
}

// askError translates service failures into actionable messages. A
// question with no relevant passages is an answer, not a failure.
func askError(cmd *cobra.Command, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		cmd.Println("No relevant passages found. Index your corpus with 'docqa index <paths>'.")
		return nil
	case errors.Is(err, domain.ErrLLMUnavailable), errors.Is(err, domain.ErrEmbeddingUnavailable):
		return fmt.Errorf("ask failed: %w (run 'docqa config setup' to configure a provider)", err)
	default:
		return fmt.Errorf("ask failed: %w", err)
	}
}

func printAnswer(cmd *cobra.Command, answer *domain.Answer) {
	cmd.Println(answer.Text)
	cmd.Println()
	cmd.Println("Sources:")
	for i := range answer.Results {
		cmd.Printf("  [%d] %s (%d%% relevant)\n",
			i+1, describeSource(&answer.Results[i]), relevancePercent(answer.Results[i].Score))
	}
	cmd.Println()
	cmd.Printf("Tokens: %d in, %d out\n", answer.Usage.InputTokens, answer.Usage.OutputTokens)
}
