// Package sqlite persists the Pattern Store document in SQLite, one table per map
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shivavenkatesh/voodoo/internal/store"
	"github.com/shivavenkatesh/voodoo/pkg/types"

	"github.com/mattn/go-sqlite3"
)

// Store implements store.Persister using SQLite
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Config configures the SQLite store
type Config struct {
	Path string // Path to database file
}

var _ store.Persister = (*Store)(nil)

// New opens or creates the database. A file that is not a readable
// SQLite database yields an error wrapping store.ErrCorrupt.
func New(cfg Config) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -8000", // 8MB cache
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", mapError(err))
		}
	}

	s := &Store{
		db:   db,
		path: cfg.Path,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", mapError(err))
	}

	return s, nil
}

// initSchema creates the database tables
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS string_formats (
		parameter TEXT PRIMARY KEY,
		format TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS parameter_patterns (
		pattern TEXT PRIMARY KEY,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS range_patterns (
		key TEXT PRIMARY KEY,
		min REAL NOT NULL,
		max REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS effect_signatures (
		plugin TEXT PRIMARY KEY,
		effect_type TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS plugin_history (
		plugin TEXT PRIMARY KEY,
		last_seen DATETIME NOT NULL,
		parameter_count INTEGER NOT NULL
	);

	-- Schema version tracking
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Load reads every table into a snapshot
func (s *Store) Load(ctx context.Context) (*types.PatternSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := types.NewPatternSnapshot()

	err := s.scan(ctx, "SELECT parameter, format FROM string_formats", func(rows *sql.Rows) error {
		var name, format string
		if err := rows.Scan(&name, &format); err != nil {
			return err
		}
		snap.StringFormats[name] = format
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load string formats: %w", err)
	}

	err = s.scan(ctx, "SELECT pattern, category FROM parameter_patterns", func(rows *sql.Rows) error {
		var pattern, category string
		if err := rows.Scan(&pattern, &category); err != nil {
			return err
		}
		snap.ParameterPatterns[pattern] = category
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load parameter patterns: %w", err)
	}

	err = s.scan(ctx, "SELECT key, min, max FROM range_patterns", func(rows *sql.Rows) error {
		var key string
		var r types.Range
		if err := rows.Scan(&key, &r.Min, &r.Max); err != nil {
			return err
		}
		snap.RangePatterns[key] = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load range patterns: %w", err)
	}

	err = s.scan(ctx, "SELECT plugin, effect_type FROM effect_signatures", func(rows *sql.Rows) error {
		var plugin, effectType string
		if err := rows.Scan(&plugin, &effectType); err != nil {
			return err
		}
		snap.EffectSignatures[plugin] = effectType
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load effect signatures: %w", err)
	}

	err = s.scan(ctx, "SELECT plugin, last_seen, parameter_count FROM plugin_history", func(rows *sql.Rows) error {
		var plugin string
		var rec types.PluginRecord
		if err := rows.Scan(&plugin, &rec.LastSeen, &rec.ParameterCount); err != nil {
			return err
		}
		snap.PluginHistory[plugin] = rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load plugin history: %w", err)
	}

	return snap, nil
}

func (s *Store) scan(ctx context.Context, query string, each func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := each(rows); err != nil {
			return mapError(err)
		}
	}
	return mapError(rows.Err())
}

// Save replaces all tables in one transaction
func (s *Store) Save(ctx context.Context, snap *types.PatternSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"string_formats", "parameter_patterns", "range_patterns", "effect_signatures", "plugin_history"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO string_formats (parameter, format) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	for name, format := range snap.StringFormats {
		if _, err := stmt.ExecContext(ctx, name, format); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to save format %s: %w", name, err)
		}
	}
	stmt.Close()

	stmt, err = tx.PrepareContext(ctx, "INSERT INTO parameter_patterns (pattern, category) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	for pattern, category := range snap.ParameterPatterns {
		if _, err := stmt.ExecContext(ctx, pattern, category); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to save pattern %s: %w", pattern, err)
		}
	}
	stmt.Close()

	stmt, err = tx.PrepareContext(ctx, "INSERT INTO range_patterns (key, min, max) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	for key, r := range snap.RangePatterns {
		if _, err := stmt.ExecContext(ctx, key, r.Min, r.Max); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to save range %s: %w", key, err)
		}
	}
	stmt.Close()

	stmt, err = tx.PrepareContext(ctx, "INSERT INTO effect_signatures (plugin, effect_type) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	for plugin, effectType := range snap.EffectSignatures {
		if _, err := stmt.ExecContext(ctx, plugin, effectType); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to save signature %s: %w", plugin, err)
		}
	}
	stmt.Close()

	stmt, err = tx.PrepareContext(ctx, "INSERT INTO plugin_history (plugin, last_seen, parameter_count) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	for plugin, rec := range snap.PluginHistory {
		if _, err := stmt.ExecContext(ctx, plugin, rec.LastSeen.UTC(), rec.ParameterCount); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to save history %s: %w", plugin, err)
		}
	}
	stmt.Close()

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit patterns: %w", err)
	}
	return nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close releases resources
func (s *Store) Close() error {
	return s.db.Close()
}

// Compact optimizes storage
func (s *Store) Compact(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// mapError turns SQLite corruption codes into store.ErrCorrupt
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if errors.As(err, &se) && (se.Code == sqlite3.ErrNotADB || se.Code == sqlite3.ErrCorrupt) {
		return fmt.Errorf("%w: %v", store.ErrCorrupt, err)
	}
	return err
}

// MoveAside renames a corrupt database so a fresh one can be created in its place.
// It returns the new location of the old file.
func MoveAside(path string, now time.Time) (string, error) {
	dest := fmt.Sprintf("%s.corrupt-%s", path, now.UTC().Format("20060102T150405"))
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("failed to move corrupt database aside: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		os.Remove(path + suffix)
	}
	return dest, nil
}
