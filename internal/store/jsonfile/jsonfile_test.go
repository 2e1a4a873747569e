package jsonfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shivavenkatesh/voodoo/internal/store"
	"github.com/shivavenkatesh/voodoo/pkg/types"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "learned_patterns.json"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := createTestStore(t)

	snap, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load of missing file should succeed: %v", err)
	}
	if len(snap.StringFormats) != 0 || snap.RangePatterns == nil {
		t.Errorf("expected empty allocated document, got %+v", snap)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seen := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	snap := types.NewPatternSnapshot()
	snap.StringFormats["decay"] = "%.2f s"
	snap.RangePatterns["decay_range"] = types.Range{Min: 0.1, Max: 10}
	snap.PluginHistory["ValhallaPlate"] = types.PluginRecord{LastSeen: seen, ParameterCount: 3}

	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if !strings.Contains(string(data), `"decay_range": [`) {
		t.Errorf("ranges should be written as [min, max]:\n%s", data)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if got.StringFormats["decay"] != "%.2f s" {
		t.Errorf("format = %q", got.StringFormats["decay"])
	}
	if r := got.RangePatterns["decay_range"]; r.Min != 0.1 || r.Max != 10 {
		t.Errorf("range = %+v", r)
	}
	if rec := got.PluginHistory["ValhallaPlate"]; !rec.LastSeen.Equal(seen) || rec.ParameterCount != 3 {
		t.Errorf("history = %+v", rec)
	}
	if got.EffectSignatures == nil {
		t.Error("missing maps should be allocated")
	}

	// No temp files left behind
	entries, _ := os.ReadDir(filepath.Dir(s.Path()))
	if len(entries) != 1 {
		t.Errorf("expected only the document in the data dir, got %d entries", len(entries))
	}
}

func TestStore_LoadPartialDocument(t *testing.T) {
	s := createTestStore(t)
	if err := os.WriteFile(s.Path(), []byte(`{"string_formats": {"size": "%.0f%%"}}`), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if got.StringFormats["size"] != "%.0f%%" {
		t.Errorf("format = %q", got.StringFormats["size"])
	}
	if got.PluginHistory == nil || got.ParameterPatterns == nil {
		t.Error("absent maps should be allocated")
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	s := createTestStore(t)
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := s.Load(context.Background())
	if !errors.Is(err, store.ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestStore_SaveCancelled(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Save(ctx, types.NewPatternSnapshot()); err == nil {
		t.Error("expected error saving with cancelled context")
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Error("nothing should be written")
	}
}
