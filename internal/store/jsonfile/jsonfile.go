// Package jsonfile persists the Pattern Store as a single JSON document
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shivavenkatesh/voodoo/internal/store"
	"github.com/shivavenkatesh/voodoo/pkg/types"
)

// Store implements store.Persister over a JSON file
type Store struct {
	path string
	mu   sync.Mutex
}

var _ store.Persister = (*Store)(nil)

// New creates a store writing to path. The file is created on first save.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Store{path: path}, nil
}

// Path returns the document path
func (s *Store) Path() string {
	return s.path
}

// Load reads the document. A missing file is an empty store.
func (s *Store) Load(ctx context.Context) (*types.PatternSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return types.NewPatternSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read patterns: %w", err)
	}

	var snap types.PatternSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", store.ErrCorrupt, s.path, err)
	}
	snap.Normalize()
	return &snap, nil
}

// Save writes the document through a temp file and rename so readers never
// observe a partial write
func (s *Store) Save(ctx context.Context, snap *types.PatternSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode patterns: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".patterns-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		_ = tmp.Close()
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write patterns: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync patterns: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace patterns: %w", err)
	}
	cleanup = false
	return nil
}

// Close is a no-op; every save is already durable
func (s *Store) Close() error {
	return nil
}
