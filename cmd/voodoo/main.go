// voodoo - learns how audio effect plugins expect to be driven
package main

import (
	"fmt"
	"os"

	"github.com/shivavenkatesh/voodoo/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	dataDir      string
	storeBackend string
	researchFile string
	catalogFile  string
	verbose      bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "voodoo",
	Short: "Plugin parameter discovery and pattern learning",
	Long: `voodoo probes audio effect plugins to find out what each parameter is:
its type, range, unit and the exact text format the host accepts. It then
classifies the plugin against a catalog of effect archetypes and learns
patterns that carry over to the next plugin it sees.

Plugins are described by fixture files (YAML) for the synthetic host.

Examples:
  # Probe a plugin and print what was found
  voodoo discover fixtures/valhalla_plate.yaml

  # Full session: discover, classify, validate and learn
  voodoo analyze fixtures/valhalla_plate.yaml

  # Analyze many plugins at once
  voodoo batch fixtures/*.yaml --workers 4

  # Start the HTTP API
  voodoo serve`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(&config.Config{
			DataDir:      dataDir,
			ResearchFile: researchFile,
			CatalogFile:  catalogFile,
			Store:        config.StoreConfig{Backend: storeBackend},
		})
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = newLogger(cfg.Log.Level, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableStacktrace = true

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (default: ~/.voodoo)")
	rootCmd.PersistentFlags().StringVar(&storeBackend, "store", "", "Pattern store backend: sqlite or json")
	rootCmd.PersistentFlags().StringVar(&researchFile, "research", "", "Research data YAML")
	rootCmd.PersistentFlags().StringVar(&catalogFile, "catalog", "", "Effect catalog YAML (default: built in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(serveCmd)
}
