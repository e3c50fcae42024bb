package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check provider configuration and connectivity",
	Long: `Pings the configured embedding and generation providers to verify
credentials and reachability before any corpus work.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	failed := false

	cmd.Printf("Embedding provider (%s, %s): ", settings.Embedding.Provider, settings.Embedding.Model)
	if !settings.Embedding.IsConfigured() {
		cmd.Println("NOT CONFIGURED")
		failed = true
	} else if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Println("OK")
	}

	cmd.Printf("Generation provider (%s, %s): ", settings.LLM.Provider, settings.LLM.Model)
	if !settings.LLM.IsConfigured() {
		cmd.Println("NOT CONFIGURED")
		failed = true
	} else if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Println("OK")
	}

	if failed {
		cmd.Println()
		cmd.Println("Run 'docqa config setup' to fix provider configuration.")
		return errors.New("validation failed")
	}

	cmd.Println()
	cmd.Println("All providers reachable.")
	return nil
}
