package main

import (
	"context"
	"fmt"

	"github.com/shivavenkatesh/voodoo/internal/classify"

	"github.com/spf13/cobra"
)

var (
	learnPlugin string
	learnJSON   bool
)

var learnCmd = &cobra.Command{
	Use:   "learn <discovery.json>",
	Short: "Merge a saved discovery into the pattern store",
	Long: `Merge a discovery written by "discover --out" into the pattern store.

Examples:
  voodoo learn plate.json
  voodoo learn plate.json --plugin "ValhallaPlate"`,
	Args: cobra.ExactArgs(1),
	RunE: runLearn,
}

var classifyJSON bool

var classifyCmd = &cobra.Command{
	Use:   "classify <discovery.json>",
	Short: "Classify a saved discovery",
	Long: `Classify a discovery written by "discover --out" and print its parameter
categories and test plan. The pattern store is read but not changed.

Examples:
  voodoo classify plate.json
  voodoo classify plate.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	learnCmd.Flags().StringVarP(&learnPlugin, "plugin", "p", "", "Plugin name (default from the discovery metadata)")
	learnCmd.Flags().BoolVar(&learnJSON, "json", false, "Output as JSON")

	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "Output as JSON")
}

func runLearn(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	dm, err := readDiscovery(args[0])
	if err != nil {
		return err
	}

	name := learnPlugin
	if name == "" {
		name = dm.Metadata.PluginName
	}
	if name == "" {
		return fmt.Errorf("plugin name required: the discovery has none, use --plugin")
	}

	svc, err := initService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	delta, err := svc.Learn(ctx, name, dm)
	if err != nil {
		return fmt.Errorf("failed to learn %s: %w", name, err)
	}

	if learnJSON {
		return printJSON(delta)
	}
	fmt.Printf("%s\n", cyan(name))
	printDelta(delta)
	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	dm, err := readDiscovery(args[0])
	if err != nil {
		return err
	}

	svc, err := initService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	ec := svc.Classify(dm.Metadata.PluginName, svc.Enhance(dm))
	plan := classify.TestPlan(ec)

	if classifyJSON {
		return printJSON(map[string]interface{}{
			"classification": ec,
			"test_plan":      plan,
		})
	}

	fmt.Printf("%s  %d parameters\n", cyan(dm.Metadata.PluginName), len(dm.Parameters))
	printClassification(ec, plan)
	return nil
}
