package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shivavenkatesh/voodoo/internal/host/synthetic"
	"github.com/shivavenkatesh/voodoo/internal/learning"

	"github.com/spf13/cobra"
)

var (
	batchWorkers int
	batchJSON    bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <fixture>...",
	Short: "Analyze many plugins concurrently",
	Long: `Run a full learning session on every fixture. Sessions run concurrently
and all feed the same pattern store. A failing plugin does not stop the batch.

Examples:
  voodoo batch fixtures/*.yaml
  voodoo batch fixtures/*.yaml --workers 8`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "Concurrent sessions (default from config)")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "Output as JSON")
}

type batchEntry struct {
	Plugin            string `json:"plugin"`
	EffectType        string `json:"effect_type,omitempty"`
	Parameters        int    `json:"parameters"`
	NewPatterns       int    `json:"new_patterns"`
	ConfirmedPatterns int    `json:"confirmed_patterns"`
	Anomalies         int    `json:"anomalies"`
	Error             string `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs := make([]learning.Job, 0, len(args))
	for _, path := range args {
		fixture, err := synthetic.LoadFixture(path)
		if err != nil {
			return err
		}
		jobs = append(jobs, learning.Job{Info: fixture.Info(), Host: fixture.Host()})
	}

	svc, err := initService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	workers := batchWorkers
	if workers <= 0 {
		workers = cfg.Workers
	}

	results, err := learning.RunBatch(ctx, svc, jobs, workers)
	if err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}

	entries := make([]batchEntry, 0, len(results))
	for _, r := range results {
		e := batchEntry{Plugin: r.Plugin}
		if r.Err != nil {
			e.Error = r.Err.Error()
		} else {
			e.EffectType = r.Result.Classification.EffectType
			e.Parameters = len(r.Result.Discovery.Parameters)
			e.NewPatterns = r.Result.Delta.NewPatterns
			e.ConfirmedPatterns = r.Result.Delta.ConfirmedPatterns
			e.Anomalies = len(r.Result.Delta.Anomalies)
		}
		entries = append(entries, e)
	}

	failed := learning.Failed(results)
	if batchJSON {
		if err := printJSON(entries); err != nil {
			return err
		}
	} else {
		printBatch(entries)
		fmt.Printf("\n%d plugins, %d failed\n", len(results), failed)
	}

	if failed == len(results) {
		return fmt.Errorf("all %d plugins failed", failed)
	}
	return nil
}

func printBatch(entries []batchEntry) {
	for _, e := range entries {
		if e.Error != "" {
			fmt.Printf("  %s %-24s %s\n", red("x"), truncate(e.Plugin, 24), e.Error)
			continue
		}
		effect := e.EffectType
		if effect == "" {
			effect = "unknown"
		}
		line := fmt.Sprintf("  %s %-24s %-12s %3d params  +%d new  %d confirmed",
			green("✓"), truncate(e.Plugin, 24), effect, e.Parameters, e.NewPatterns, e.ConfirmedPatterns)
		if e.Anomalies > 0 {
			line += "  " + yellow(fmt.Sprintf("%d anomalies", e.Anomalies))
		}
		fmt.Println(line)
	}
}
