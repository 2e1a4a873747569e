package sqlite

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

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "patterns.db")

	s, err := New(Config{Path: dbPath})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %s, want %s", s.Path(), dbPath)
	}
}

func TestStore_LoadEmpty(t *testing.T) {
	s := createTestStore(t)
	defer s.Close()

	snap, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if len(snap.StringFormats)+len(snap.ParameterPatterns)+len(snap.RangePatterns)+
		len(snap.EffectSignatures)+len(snap.PluginHistory) != 0 {
		t.Errorf("expected empty document, got %+v", snap)
	}
	if snap.PluginHistory == nil {
		t.Error("maps should be allocated")
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	s := createTestStore(t)
	defer s.Close()

	ctx := context.Background()
	seen := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	snap := createTestSnapshot(seen)

	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}

	if got.StringFormats["decay"] != "%.2f s" {
		t.Errorf("string format = %q", got.StringFormats["decay"])
	}
	if got.ParameterPatterns[".*depth.*"] != "modulation_depth" {
		t.Errorf("parameter pattern = %q", got.ParameterPatterns[".*depth.*"])
	}
	if r := got.RangePatterns["decay_range"]; r.Min != 0.1 || r.Max != 10 {
		t.Errorf("range = %+v", r)
	}
	if got.EffectSignatures["ValhallaPlate"] != "time_based_effects.reverb" {
		t.Errorf("signature = %q", got.EffectSignatures["ValhallaPlate"])
	}
	rec, ok := got.PluginHistory["ValhallaPlate"]
	if !ok {
		t.Fatal("plugin history missing")
	}
	if rec.ParameterCount != 12 {
		t.Errorf("parameter count = %d", rec.ParameterCount)
	}
	if !rec.LastSeen.Equal(seen) {
		t.Errorf("last seen = %v, want %v", rec.LastSeen, seen)
	}
}

func TestStore_SaveReplacesDocument(t *testing.T) {
	s := createTestStore(t)
	defer s.Close()

	ctx := context.Background()
	if err := s.Save(ctx, createTestSnapshot(time.Now())); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	next := types.NewPatternSnapshot()
	next.StringFormats["size"] = "%.0f%%"
	if err := s.Save(ctx, next); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if len(got.StringFormats) != 1 || got.StringFormats["size"] != "%.0f%%" {
		t.Errorf("string formats = %v", got.StringFormats)
	}
	if len(got.ParameterPatterns) != 0 || len(got.PluginHistory) != 0 {
		t.Error("old rows should be gone")
	}
}

func TestStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "patterns.db")
	ctx := context.Background()

	s, err := New(Config{Path: dbPath})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Save(ctx, createTestSnapshot(time.Now())); err != nil {
		t.Fatalf("failed to save: %v", err)
	}
	s.Close()

	s, err = New(Config{Path: dbPath})
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("failed to load: %v", err)
	}
	if len(got.StringFormats) != 1 {
		t.Errorf("expected persisted formats, got %v", got.StringFormats)
	}
}

func TestNew_CorruptFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "patterns.db")
	garbage := strings.Repeat("this is not a sqlite database\n", 200)
	if err := os.WriteFile(dbPath, []byte(garbage), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := New(Config{Path: dbPath})
	if err == nil {
		s.Close()
		t.Fatal("expected error opening garbage file")
	}
	if !errors.Is(err, store.ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}

	dest, err := MoveAside(dbPath, time.Now())
	if err != nil {
		t.Fatalf("move aside failed: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("moved file missing: %v", err)
	}

	s, err = New(Config{Path: dbPath})
	if err != nil {
		t.Fatalf("fresh store after move aside: %v", err)
	}
	s.Close()
}

func TestStore_Compact(t *testing.T) {
	s := createTestStore(t)
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := s.Save(ctx, createTestSnapshot(time.Now())); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
	}

	if err := s.Compact(ctx); err != nil {
		t.Fatalf("compact failed: %v", err)
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load after compact failed: %v", err)
	}
	if len(got.RangePatterns) != 1 {
		t.Errorf("expected 1 range pattern after compact, got %d", len(got.RangePatterns))
	}
}

// Helper functions

func createTestStore(t *testing.T) *Store {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := New(Config{Path: dbPath})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func createTestSnapshot(seen time.Time) *types.PatternSnapshot {
	snap := types.NewPatternSnapshot()
	snap.StringFormats["decay"] = "%.2f s"
	snap.ParameterPatterns[".*depth.*"] = "modulation_depth"
	snap.RangePatterns["decay_range"] = types.Range{Min: 0.1, Max: 10}
	snap.EffectSignatures["ValhallaPlate"] = "time_based_effects.reverb"
	snap.PluginHistory["ValhallaPlate"] = types.PluginRecord{LastSeen: seen, ParameterCount: 12}
	return snap
}

// Benchmarks

func BenchmarkStore_Save(b *testing.B) {
	tmpDir := b.TempDir()
	s, err := New(Config{Path: filepath.Join(tmpDir, "bench.db")})
	if err != nil {
		b.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	snap := createTestSnapshot(time.Now())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.Save(ctx, snap)
	}
}
