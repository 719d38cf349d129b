package corpus

import (
	"fmt"
	"sync/atomic"

	"github.com/hyperjump/fypmatch/internal/models"
)

// Store holds the live snapshot. Readers get either the previous or the next complete
// snapshot; a swap never exposes a partially built one.
type Store struct {
	modelID string
	current atomic.Pointer[Snapshot]
}

// NewStore returns an empty store pinned to modelID. An empty modelID disables the check.
func NewStore(modelID string) *Store {
	s := &Store{modelID: modelID}
	s.current.Store(&Snapshot{ModelID: modelID})
	return s
}

// ModelID returns the pinned model id.
func (s *Store) ModelID() string {
	return s.modelID
}

// Current returns the live snapshot. It is never nil.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// All returns the entries of the live snapshot. Callers must not modify them.
func (s *Store) All() []models.CorpusEntry {
	return s.current.Load().Entries
}

// Len returns the number of entries in the live snapshot.
func (s *Store) Len() int {
	return s.current.Load().Len()
}

// Swap replaces the live snapshot. Snapshots with no model id (legacy files) are accepted as is.
func (s *Store) Swap(next *Snapshot) error {
	if next == nil {
		return fmt.Errorf("corpus: nil snapshot")
	}
	if s.modelID != "" && next.ModelID != "" && next.ModelID != s.modelID {
		return fmt.Errorf("%w: snapshot %q, embedder %q", ErrModelMismatch, next.ModelID, s.modelID)
	}
	s.current.Store(next)
	return nil
}

// LoadFile reads the snapshot at path and swaps it in.
func (s *Store) LoadFile(path string) (LoadStats, error) {
	snap, stats, err := LoadFile(path)
	if err != nil {
		return stats, err
	}
	if err := s.Swap(snap); err != nil {
		return stats, err
	}
	return stats, nil
}
