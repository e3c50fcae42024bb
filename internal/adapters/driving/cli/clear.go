package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the index and remove its snapshot",
	Long: `Removes every indexed chunk and deletes the snapshot file.
The corpus files themselves are untouched.`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if !clearYes {
		if !confirm(cmd, "This removes every indexed chunk and the snapshot file. Continue? [y/N]: ") {
			cmd.Println("Aborted.")
			return nil
		}
	}

	if err := ingestService.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}

	cmd.Println("Index cleared.")
	return nil
}

// confirm prompts on the command's input stream and reports whether
// the user agreed.
//
//nolint:errcheck // CLI helper, read error reads as refusal
func confirm(cmd *cobra.Command, prompt string) bool {
	cmd.Print(prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	input, _ := reader.ReadString('\n')
	input = strings.ToLower(strings.TrimSpace(input))
	return input == "y" || input == "yes"
}
