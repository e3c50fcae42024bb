// Package cli implements the docqa command-line interface. Commands
// reach the core through package-level service variables, wired from
// configuration on first use; tests substitute mocks directly.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa-cli/internal/adapters/driven/ai"
	configfile "github.com/custodia-labs/docqa-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa-cli/internal/adapters/driven/storage/jsonl"
	"github.com/custodia-labs/docqa-cli/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docqa-cli/internal/core/services"
	"github.com/custodia-labs/docqa-cli/internal/corpus"
	"github.com/custodia-labs/docqa-cli/internal/logger"
	"github.com/custodia-labs/docqa-cli/internal/metering"
	"github.com/custodia-labs/docqa-cli/internal/normalisers"
	"github.com/custodia-labs/docqa-cli/internal/postprocessors"
)

// version is the build version, injected at release time via ldflags.
var version = "dev"

// keyIndexPath overrides where the index snapshot lives.
const keyIndexPath = "index.path"

// Persistent flags.
var (
	verbose   bool
	configDir string
)

// Services the commands run against. wireServices populates them from
// configuration; tests swap in mocks and set wired so the real graph
// is never built.
var (
	ingestService    driving.Ingestor
	retrievalService driving.Retriever
	answerService    driving.Answerer
	usageService     driving.UsageReporter
	settingsService  driving.SettingsService

	configStore      driven.ConfigStore
	usageAccumulator *metering.Accumulator
	snapshotPath     string

	wired bool
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your local documents",
	Long: `docqa indexes a local document corpus and answers questions about it.

Point it at your files to build a vector index, then search for
relevant passages or ask questions answered by a language model
grounded on the indexed content.

Getting started:
  docqa config setup       configure providers interactively
  docqa index ./docs       build the index
  docqa search "query"     find relevant passages
  docqa ask "question"     get a grounded answer`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if !needsServices(cmd) {
			return nil
		}
		return wireServices(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose diagnostic output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.docqa)")
}

// Execute runs the root command. Interrupts cancel the command context
// so long-running commands (watch mode, the MCP server, the
// interactive session) shut down cleanly.
func Execute() {
	// .env is optional; existing environment variables win.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// needsServices reports whether the command requires the service graph.
// Version, help, and shell completion run without configuration.
func needsServices(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "version", "help", "completion",
			cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

// wireServices builds the real service graph behind the package-level
// variables. Config failures are fatal; a missing provider or snapshot
// only degrades the commands that depend on it.
func wireServices(cmd *cobra.Command) error {
	if wired {
		return nil
	}

	store, err := configfile.NewStore(configDir)
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}
	configStore = store

	settingsService = services.NewSettingsService(configStore, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Everything else lives next to the config file.
	baseDir := filepath.Dir(configStore.Path())

	var usageLog driven.UsageLog
	if log, err := jsonl.NewUsageLog(filepath.Join(baseDir, "logs", "usage.jsonl")); err != nil {
		cmd.PrintErrf("Warning: usage log unavailable: %v\n", err)
	} else {
		usageLog = log
	}
	usageAccumulator = metering.NewAccumulator(usageLog)
	usageService = services.NewUsageService(usageLog, usageAccumulator)

	snapshotPath = configStore.GetString(keyIndexPath)
	if snapshotPath == "" {
		snapshotPath = filepath.Join(baseDir, "data", "index.db")
	}

	index := vectorindex.New(vectorindex.Config{})
	if err := index.Load(cmd.Context(), snapshotPath); err != nil {
		cmd.PrintErrf("Warning: could not load index snapshot: %v\n", err)
		cmd.PrintErrln("Starting with an empty index; run 'docqa index --rebuild' to rebuild it.")
	}

	// Provider construction makes no network calls; the validate
	// command checks connectivity.
	aiResult := ai.CreateServices(*settings, usageAccumulator)
	for _, warning := range aiResult.Warnings {
		cmd.PrintErrf("Warning: %s\n", warning)
	}

	prompts, err := configfile.NewPromptStore(filepath.Join(baseDir, "prompts"))
	if err != nil {
		return fmt.Errorf("open prompt store: %w", err)
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)

	pipelineCfg := settingsService.GetPipelineConfig()
	procs := make([]driven.PostProcessor, 0, len(pipelineCfg.Processors))
	for _, name := range pipelineCfg.Processors {
		proc, err := registry.Build(name, pipelineCfg.GetProcessorConfig(name))
		if err != nil {
			return fmt.Errorf("build post-processor %q: %w", name, err)
		}
		procs = append(procs, proc)
	}
	pipeline := postprocessors.NewPipeline(procs...)

	normRegistry := normalisers.DefaultRegistry()
	resolver := corpus.NewResolver(normRegistry)

	ingest := services.NewIngestService(resolver, normRegistry, pipeline,
		aiResult.EmbeddingService, index, snapshotPath)
	ingest.SetCacheCounter(usageAccumulator)
	ingestService = ingest

	retrievalService = services.NewRetrievalService(index, aiResult.EmbeddingService, settings.Retrieval)
	answerService = services.NewAnswerService(retrievalService, aiResult.LLMService, prompts, settings.LLM.MaxTokens)

	wired = true
	return nil
}
