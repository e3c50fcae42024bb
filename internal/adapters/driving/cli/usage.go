package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driving"
)

var (
	usageDays  int
	usageReset bool
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show provider usage and cost",
	Long: `Aggregates the usage log into total, per-operation, per-model, and
per-day token counts and costs.`,
	RunE: runUsage,
}

func init() {
	usageCmd.Flags().IntVar(&usageDays, "days", 0, "restrict the report to the most recent n days (0 = all)")
	usageCmd.Flags().BoolVar(&usageReset, "reset", false, "erase all recorded usage")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, _ []string) error {
	if usageService == nil {
		return errors.New("usage service not configured")
	}

	if usageReset {
		if !confirm(cmd, "This erases all recorded usage. Continue? [y/N]: ") {
			cmd.Println("Aborted.")
			return nil
		}
		if err := usageService.Reset(cmd.Context()); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
		cmd.Println("Usage log reset.")
		return nil
	}

	report, err := usageService.Report(cmd.Context(), usageDays)
	if err != nil {
		return fmt.Errorf("failed to build usage report: %w", err)
	}

	printUsageReport(cmd, report, usageDays)
	return nil
}

func printUsageReport(cmd *cobra.Command, report *driving.UsageReport, days int) {
	if days > 0 {
		cmd.Printf("Usage (last %d days)\n", days)
	} else {
		cmd.Println("Usage (all time)")
	}
	cmd.Println()

	if report.Totals.Calls == 0 {
		cmd.Println("No provider calls recorded.")
		return
	}

	cmd.Printf("  Calls:  %d\n", report.Totals.Calls)
	cmd.Printf("  Tokens: %d in, %d out\n", report.Totals.InputUnits, report.Totals.OutputUnits)
	cmd.Printf("  Cost:   $%.4f\n", report.Totals.Cost)
	if report.CacheHits > 0 {
		cmd.Printf("  Cache hits this run: %d\n", report.CacheHits)
	}

	if len(report.ByOperation) > 0 {
		cmd.Println()
		cmd.Println("  By operation:")
		for _, op := range []domain.Operation{domain.OpEmbed, domain.OpGenerate} {
			totals, ok := report.ByOperation[op]
			if !ok {
				continue
			}
			cmd.Printf("    %-10s %5d calls  %8d in  %8d out  $%.4f\n",
				op, totals.Calls, totals.InputUnits, totals.OutputUnits, totals.Cost)
		}
	}

	if len(report.ByModel) > 0 {
		cmd.Println()
		cmd.Println("  By model:")
		models := make([]string, 0, len(report.ByModel))
		for model := range report.ByModel {
			models = append(models, model)
		}
		sort.Strings(models)
		for _, model := range models {
			totals := report.ByModel[model]
			cmd.Printf("    %-28s %5d calls  $%.4f\n", model, totals.Calls, totals.Cost)
		}
	}

	if len(report.Daily) > 0 {
		cmd.Println()
		cmd.Println("  Daily:")
		for _, day := range report.Daily {
			cmd.Printf("    %s  %5d calls  $%.4f\n",
				day.Day.Format("2006-01-02"), day.Totals.Calls, day.Totals.Cost)
		}
	}
}
