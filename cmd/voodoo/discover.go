package main

import (
	"context"
	"fmt"

	"github.com/shivavenkatesh/voodoo/internal/host/synthetic"

	"github.com/spf13/cobra"
)

var (
	discoverJSON bool
	discoverOut  string
)

var discoverCmd = &cobra.Command{
	Use:   "discover <fixture>",
	Short: "Probe every parameter of a plugin",
	Long: `Probe every parameter of a plugin and report its type, range, unit and
text format. Nothing is learned; use analyze for a full session.

Examples:
  voodoo discover fixtures/valhalla_plate.yaml
  voodoo discover fixtures/valhalla_plate.yaml --out plate.json`,
	Args: cobra.ExactArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "Output as JSON")
	discoverCmd.Flags().StringVarP(&discoverOut, "out", "o", "", "Write the discovery to a JSON file")
}

func runDiscover(cmd *cobra.Command, args []string) error {
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

	dm, err := svc.Discover(ctx, fixture.Host(), fixture.Info())
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if discoverOut != "" {
		if err := writeJSONFile(discoverOut, dm); err != nil {
			return err
		}
	}
	if discoverJSON {
		return printJSON(dm)
	}

	printDiscovery(svc.Enhance(dm))
	if discoverOut != "" {
		fmt.Printf("\nSaved to %s\n", discoverOut)
	}
	return nil
}
