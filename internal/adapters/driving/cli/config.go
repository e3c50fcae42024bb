package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// configKind classifies a config key's value for parsing and display.
type configKind int

const (
	kindString configKind = iota
	kindSecret
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindProvider
	kindEmbedProvider
)

// configKeys maps every recognised key to its value kind.
var configKeys = map[string]configKind{
	"embedding.provider": kindEmbedProvider,
	"embedding.model":    kindString,
	"embedding.base_url": kindString,
	"embedding.api_key":  kindSecret,
	"llm.provider":       kindProvider,
	"llm.model":          kindString,
	"llm.base_url":       kindString,
	"llm.api_key":        kindSecret,
	"llm.max_tokens":     kindInt,
	"chunking.size":      kindInt,
	"chunking.overlap":   kindInt,
	"retrieval.top_k":    kindInt,
	"retrieval.dedupe":   kindBool,
	"retry.max_attempts": kindInt,
	"retry.base_delay":   kindDuration,
	"retry.max_delay":    kindDuration,
	"retry.jitter":       kindFloat,
	"batch.max_items":    kindInt,
	"batch.max_chars":    kindInt,
	"index.path":         kindString,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change configuration: providers, chunking, retrieval, and
the index location.

Run 'docqa config setup' for interactive provider configuration.`,
	RunE: runConfigList,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the effective configuration",
	RunE:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set one configuration value",
	Long: `Sets a configuration value and saves it.

API keys may be given without a value; they are then prompted for
without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive provider setup",
	Long:  `Configure the embedding and generation providers step by step.`,
	RunE:  runConfigSetup,
}

func init() {
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd, configSetupCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Configuration")
	cmd.Println("=====================")
	cmd.Println()

	cmd.Println("[Embedding]")
	printProviderBlock(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[Generation]")
	printProviderBlock(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey)
	if settings.LLM.MaxTokens > 0 {
		cmd.Printf("  Max Tokens: %d\n", settings.LLM.MaxTokens)
	}
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Chunking]")
	cmd.Printf("  Size: %d\n", settings.Chunking.Size)
	cmd.Printf("  Overlap: %d\n", settings.Chunking.Overlap)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Dedupe: %t\n", settings.Retrieval.Dedupe)
	cmd.Println()

	cmd.Println("[Index]")
	if snapshotPath != "" {
		cmd.Printf("  Snapshot: %s\n", snapshotPath)
	}
	if configStore != nil {
		cmd.Printf("  Config file: %s\n", configStore.Path())
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'docqa config setup' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

// printProviderBlock renders the shared provider fields. Base URLs only
// matter for local providers, API keys only for cloud ones.
func printProviderBlock(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key := args[0]
	kind, ok := configKeys[key]
	if !ok {
		return unknownKeyError(key)
	}

	value, exists := configStore.Get(key)
	if !exists {
		cmd.Println("(not set)")
		return nil
	}
	if kind == kindSecret {
		if s, ok := value.(string); ok {
			cmd.Println(maskAPIKey(s))
			return nil
		}
	}
	cmd.Printf("%v\n", value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key := args[0]
	kind, ok := configKeys[key]
	if !ok {
		return unknownKeyError(key)
	}

	var raw string
	switch {
	case len(args) > 1:
		raw = args[1]
	case kind == kindSecret:
		cmd.Print("Enter value: ")
		raw = readPassword(bufio.NewReader(cmd.InOrStdin()))
		cmd.Println()
		if raw == "" {
			return errors.New("empty value")
		}
	default:
		return fmt.Errorf("missing value for %s", key)
	}

	value, err := parseConfigValue(kind, raw)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}

	if kind == kindSecret {
		cmd.Printf("%s = %s\n", key, maskAPIKey(raw))
	} else {
		cmd.Printf("%s = %v\n", key, value)
	}
	return nil
}

func runConfigSetup(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("docqa Provider Setup")
	cmd.Println("====================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Embedding Provider")
	cmd.Println("--------------------------")
	cmd.Println("Chunks and questions are embedded for similarity search.")
	cmd.Println()
	err := configureProvider(cmd, reader, providerSetup{
		label:     "Embedding",
		providers: domain.AllEmbeddingProviders(),
		defaults:  domain.DefaultEmbeddingModels(),
		apply:     settingsService.SetEmbeddingProvider,
		validate:  settingsService.ValidateEmbeddingConfig,
	})
	if err != nil {
		return err
	}

	cmd.Println("Step 2: Generation Provider")
	cmd.Println("---------------------------")
	cmd.Println("Answers are generated by a model grounded on retrieved passages.")
	cmd.Println()
	err = configureProvider(cmd, reader, providerSetup{
		label:     "Generation",
		providers: domain.AllLLMProviders(),
		defaults:  domain.DefaultLLMModels(),
		apply:     settingsService.SetLLMProvider,
		validate:  settingsService.ValidateLLMConfig,
	})
	if err != nil {
		return err
	}

	cmd.Println("Setup Complete!")
	cmd.Println("===============")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

// providerSetup drives one step of the interactive setup. The same
// flow configures both embedding and generation providers.
type providerSetup struct {
	label     string
	providers []domain.AIProvider
	defaults  map[domain.AIProvider]string
	apply     func(provider domain.AIProvider, model, apiKey string) error
	validate  func() error
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, setup providerSetup) error {
	cmd.Printf("Select %s Provider\n", setup.label)
	for i, p := range setup.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	choice := parseChoice(readLine(reader), len(setup.providers), 1)
	provider := setup.providers[choice-1]

	defaultModel := setup.defaults[provider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key (blank keeps the environment key): ")
		apiKey = readPassword(reader)
		cmd.Println()
	}

	if err := setup.apply(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", strings.ToLower(setup.label), err)
	}

	cmd.Print("Validating configuration... ")
	if err := setup.validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", strings.ToLower(setup.label), err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n\n", setup.label, provider.Description(), model)
	return nil
}

// Helper functions.

func parseConfigValue(kind configKind, raw string) (any, error) {
	switch kind {
	case kindInt:
		return strconv.Atoi(raw)
	case kindFloat:
		return strconv.ParseFloat(raw, 64)
	case kindBool:
		return strconv.ParseBool(raw)
	case kindDuration:
		// Stored as a string, parsed on read.
		if _, err := time.ParseDuration(raw); err != nil {
			return nil, err
		}
		return raw, nil
	case kindProvider:
		if !domain.AIProvider(raw).IsValid() {
			return nil, fmt.Errorf("unknown provider %q", raw)
		}
		return raw, nil
	case kindEmbedProvider:
		p := domain.AIProvider(raw)
		if !p.IsValid() {
			return nil, fmt.Errorf("unknown provider %q", raw)
		}
		for _, allowed := range domain.AllEmbeddingProviders() {
			if p == allowed {
				return raw, nil
			}
		}
		return nil, fmt.Errorf("provider %q does not support embeddings", raw)
	default:
		return raw, nil
	}
}

func unknownKeyError(key string) error {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Errorf("unknown config key %q (known keys: %s)", key, strings.Join(keys, ", "))
}

func configuredStatus(configured bool) string {
	if configured {
		return "configured"
	}
	return "not configured"
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a value without echo when stdin is a terminal,
// falling back to a plain line read otherwise.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
