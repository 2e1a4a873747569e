package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shivavenkatesh/voodoo/pkg/types"

	"github.com/fatih/color"
)

var (
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

func formatKind(k types.ParameterKind) string {
	switch k {
	case types.KindNumeric:
		return green(k)
	case types.KindStringNumeric:
		return cyan(k)
	case types.KindStringChoice:
		return yellow(k)
	case types.KindBoolean:
		return green(k)
	}
	return gray(k)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// printJSON writes v as indented JSON to stdout
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeJSONFile writes v as indented JSON to path
func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// readDiscovery loads a DiscoveryMap written by discover --out
func readDiscovery(path string) (*types.DiscoveryMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read discovery: %w", err)
	}
	var dm types.DiscoveryMap
	if err := json.Unmarshal(data, &dm); err != nil {
		return nil, fmt.Errorf("failed to parse discovery %s: %w", path, err)
	}
	if dm.Parameters == nil {
		dm.Parameters = make(map[string]types.ParameterFact)
	}
	return &dm, nil
}

func printDiscovery(dm *types.DiscoveryMap) {
	fmt.Printf("%s  %d parameters\n\n", cyan(dm.Metadata.PluginName), len(dm.Parameters))
	for _, name := range dm.Names() {
		f := dm.Parameters[name]
		line := fmt.Sprintf("  %-20s %-26s %-14s", truncate(name, 20), formatKind(f.Kind), truncate(f.CurrentValue.String(), 14))
		if f.Range != nil {
			line += fmt.Sprintf(" [%g, %g] %s", f.Range.Min, f.Range.Max, gray(f.RangeSource))
		}
		if f.Unit != "" {
			line += " " + f.Unit
		}
		if f.Format != "" {
			line += fmt.Sprintf(" format=%q", f.Format)
		}
		if len(f.ValidValues) > 0 {
			line += " {" + strings.Join(f.ValidValues, ", ") + "}"
		}
		fmt.Println(line)

		var hints []string
		if f.SuggestedFormat != "" && f.SuggestedFormat != f.Format {
			hints = append(hints, fmt.Sprintf("learned format %q", f.SuggestedFormat))
		}
		if f.LearnedCategory != "" {
			hints = append(hints, "category "+f.LearnedCategory)
		}
		if len(hints) > 0 {
			fmt.Printf("  %-20s %s\n", "", gray(strings.Join(hints, ", ")))
		}
	}
}

func printClassification(ec types.EffectClassification, plan []types.TestPhase) {
	effect := ec.EffectType
	if effect == "" {
		effect = "unknown"
	}
	fmt.Printf("\nEffect: %s (%s, confidence %.2f)\n", cyan(effect), ec.Method, ec.Confidence)

	categories := make([]string, 0, len(ec.Categories))
	for name := range ec.Categories {
		categories = append(categories, name)
	}
	sort.Strings(categories)
	for _, name := range categories {
		group := ec.Categories[name]
		fmt.Printf("  %-14s %-10s %s\n", name, gray(group.Priority), strings.Join(group.Parameters, ", "))
	}
	if len(ec.Uncategorized) > 0 {
		fmt.Printf("  %-14s %-10s %s\n", "uncategorized", "", strings.Join(ec.Uncategorized, ", "))
	}

	if len(plan) > 0 {
		fmt.Println("\nTest plan:")
		for _, phase := range plan {
			fmt.Printf("  %s: %s\n", phase.Name, strings.Join(phase.Tests, ", "))
		}
	}
}

func printDelta(d *types.LearningDelta) {
	fmt.Printf("\nLearned: %s new, %d confirmed", green(d.NewPatterns), d.ConfirmedPatterns)
	if len(d.Anomalies) == 0 {
		fmt.Println(", no anomalies")
		return
	}
	fmt.Printf(", %s\n", red(fmt.Sprintf("%d anomalies", len(d.Anomalies))))
	for _, a := range d.Anomalies {
		fmt.Printf("  %s %s: expected %q, found %q\n", yellow("!"), a.Parameter, a.Expected, a.Found)
	}
}
