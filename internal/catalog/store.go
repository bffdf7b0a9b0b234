package catalog

import (
	"fmt"
	"sync/atomic"
)

// Store publishes the current catalog snapshot to concurrent readers.
// Reload builds a whole new snapshot and swaps the pointer, so an in-flight
// compile keeps the snapshot it started with.
type Store struct {
	path    string
	current atomic.Pointer[Snapshot]
}

// NewStore loads the catalog from path and returns a store serving it.
func NewStore(path string) (*Store, error) {
	snap, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path}
	s.current.Store(snap)
	return s, nil
}

// NewStoreWith wraps an already-built snapshot (used by tests and the CLI).
func NewStoreWith(snap *Snapshot) *Store {
	s := &Store{}
	s.current.Store(snap)
	return s
}

// Current returns the live snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Reload re-reads the configuration file and swaps in the new snapshot.
// On error the previous snapshot stays live.
func (s *Store) Reload() (*Snapshot, error) {
	if s.path == "" {
		return nil, fmt.Errorf("catalog store has no backing file")
	}
	snap, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	return snap, nil
}
