package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/shivavenkatesh/voodoo/internal/server"
	"github.com/shivavenkatesh/voodoo/internal/store/sqlite"

	"github.com/spf13/cobra"
)

var patternsJSON bool

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Show learned patterns",
	Long: `Show the pattern store: string formats, name patterns, ranges and
effect signatures.

Examples:
  voodoo patterns
  voodoo patterns --json`,
	RunE: runPatterns,
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List analyzed plugins",
	Long: `List every plugin the pattern store has learned from, most recent first.

Examples:
  voodoo history
  voodoo history --limit 5`,
	RunE: runHistory,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	RunE:  runStats,
}

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Reclaim space in the SQLite pattern store",
	RunE:  runCompact,
}

func init() {
	patternsCmd.Flags().BoolVar(&patternsJSON, "json", false, "Output as JSON")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Maximum entries (0 for all)")
}

func runPatterns(cmd *cobra.Command, args []string) error {
	svc, err := initService(context.Background())
	if err != nil {
		return err
	}
	defer svc.Close()

	snap := svc.Patterns()
	if patternsJSON {
		return printJSON(snap)
	}

	fmt.Println(cyan("String formats"))
	for _, k := range sortedKeys(snap.StringFormats) {
		fmt.Printf("  %-24s %q\n", k, snap.StringFormats[k])
	}

	fmt.Println(cyan("\nName patterns"))
	for _, k := range sortedKeys(snap.ParameterPatterns) {
		fmt.Printf("  %-24s %s\n", k, snap.ParameterPatterns[k])
	}

	fmt.Println(cyan("\nRanges"))
	keys := make([]string, 0, len(snap.RangePatterns))
	for k := range snap.RangePatterns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r := snap.RangePatterns[k]
		fmt.Printf("  %-24s [%g, %g]\n", k, r.Min, r.Max)
	}

	fmt.Println(cyan("\nEffect signatures"))
	for _, k := range sortedKeys(snap.EffectSignatures) {
		fmt.Printf("  %-24s %s\n", k, snap.EffectSignatures[k])
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	svc, err := initService(context.Background())
	if err != nil {
		return err
	}
	defer svc.Close()

	snap := svc.Patterns()
	if len(snap.PluginHistory) == 0 {
		fmt.Println("No plugins analyzed yet")
		return nil
	}

	entries := make([]server.HistoryEntry, 0, len(snap.PluginHistory))
	for plugin, rec := range snap.PluginHistory {
		entries = append(entries, server.HistoryEntry{
			Plugin:         plugin,
			LastSeen:       rec.LastSeen,
			ParameterCount: rec.ParameterCount,
			EffectType:     snap.EffectSignatures[plugin],
		})
	}
	server.SortHistory(entries)
	if historyLimit > 0 && len(entries) > historyLimit {
		entries = entries[:historyLimit]
	}

	for _, e := range entries {
		effect := e.EffectType
		if effect == "" {
			effect = gray("unknown")
		}
		fmt.Printf("  %-28s %-12s %3d params  %s\n",
			truncate(e.Plugin, 28), effect, e.ParameterCount, gray(e.LastSeen.Local().Format("2006-01-02 15:04")))
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	svc, err := initService(context.Background())
	if err != nil {
		return err
	}
	defer svc.Close()

	stats := svc.Stats()

	fmt.Println("Learning Statistics")
	fmt.Println("===================")
	fmt.Printf("Plugins analyzed:     %d\n", stats.PluginsAnalyzed)
	fmt.Printf("String formats:       %d\n", stats.StringFormatsLearned)
	fmt.Printf("Name patterns:        %d\n", stats.ParameterPatterns)
	fmt.Printf("Range patterns:       %d\n", stats.RangePatterns)
	fmt.Printf("Effect types:         %d\n", stats.EffectTypesIdentified)
	fmt.Printf("Store:                %s (%s)\n", cfg.StorePath(), cfg.Store.Backend)
	return nil
}

func runCompact(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	persister, err := openPersister(cfg)
	if err != nil {
		return err
	}
	defer persister.Close()

	st, ok := persister.(*sqlite.Store)
	if !ok {
		fmt.Printf("Nothing to compact for the %s backend\n", cfg.Store.Backend)
		return nil
	}
	if err := st.Compact(ctx); err != nil {
		return fmt.Errorf("failed to compact %s: %w", st.Path(), err)
	}
	fmt.Printf("Compacted %s\n", st.Path())
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
