// Package store defines how the Pattern Store document is persisted
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/shivavenkatesh/voodoo/pkg/types"
)

// ErrCorrupt is returned when persisted patterns exist but cannot be read
var ErrCorrupt = errors.New("pattern store corrupt")

// Persister reads and writes the whole Pattern Store document
type Persister interface {
	// Load returns the persisted document, or an empty one when nothing was saved yet.
	// Unreadable data yields an error wrapping ErrCorrupt.
	Load(ctx context.Context) (*types.PatternSnapshot, error)

	// Save replaces the persisted document atomically
	Save(ctx context.Context, snap *types.PatternSnapshot) error

	// Close releases resources
	Close() error
}

// Memory is a Persister that keeps the document in process. Tests use it
// for isolated stores, and the server can run without a data directory.
type Memory struct {
	mu    sync.Mutex
	snap  *types.PatternSnapshot
	saves int
}

// NewMemory creates an in-memory persister, optionally seeded
func NewMemory(seed *types.PatternSnapshot) *Memory {
	m := &Memory{}
	if seed != nil {
		m.snap = seed.Clone()
	}
	return m
}

// Load returns a copy of the stored document
func (m *Memory) Load(ctx context.Context) (*types.PatternSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return types.NewPatternSnapshot(), nil
	}
	return m.snap.Clone(), nil
}

// Save stores a copy of the document
func (m *Memory) Save(ctx context.Context, snap *types.PatternSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap.Clone()
	m.saves++
	return nil
}

// Saves returns how many times the document was written
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Close is a no-op
func (m *Memory) Close() error {
	return nil
}
