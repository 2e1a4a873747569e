package main

import (
	"context"
	"fmt"

	"github.com/shivavenkatesh/voodoo/internal/host/synthetic"
	"github.com/shivavenkatesh/voodoo/pkg/types"

	"github.com/spf13/cobra"
)

var (
	analyzeJSON bool
	analyzeOut  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <fixture>",
	Short: "Run a full learning session on a plugin",
	Long: `Discover a plugin, apply what was learned from earlier plugins, classify it,
re-validate confirmed formats and merge the results into the pattern store.

Examples:
  voodoo analyze fixtures/valhalla_plate.yaml
  voodoo analyze fixtures/echoboy.yaml --json
  voodoo analyze fixtures/echoboy.yaml --research research.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "Write the full result to a JSON file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	fixture, err := synthetic.LoadFixture(args[0])
	if err != nil {
		return err
	}

	svc, err := initService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	result, err := svc.Analyze(ctx, fixture.Host(), fixture.Info())
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if analyzeOut != "" {
		if err := writeJSONFile(analyzeOut, result); err != nil {
			return err
		}
	}
	if analyzeJSON {
		return printJSON(result)
	}

	printAnalysis(result)
	return nil
}

func printAnalysis(result *types.AnalysisResult) {
	printDiscovery(result.Enhanced)
	printClassification(result.Classification, result.TestPlan)

	for _, check := range result.FormatChecks {
		status := green("ok")
		if !check.Working {
			status = red("failed " + fmt.Sprint(check.Failures))
		}
		fmt.Printf("  format %-20s %-10q %s\n", check.Parameter, check.Format, status)
	}

	if r := result.Research; r != nil && r.Score >= 0 {
		fmt.Printf("\nResearch match: %.0f%% (%d matched, %d missing, %d mismatches)\n",
			r.Score*100, len(r.Matched), len(r.Missing), len(r.Mismatches))
		for _, m := range r.Mismatches {
			fmt.Printf("  %s %s %s: expected %q, found %q\n", yellow("!"), m.Parameter, m.Field, m.Expected, m.Found)
		}
	}

	printDelta(result.Delta)
	fmt.Printf("%s\n", gray(fmt.Sprintf("session %s in %s", result.SessionID, result.Duration.Round(1e6))))
}
