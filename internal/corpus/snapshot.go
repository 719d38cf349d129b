// Package corpus loads, saves, and serves the precomputed embedding snapshot of approved proposal titles.
package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/fypmatch/internal/models"
	"github.com/hyperjump/fypmatch/internal/vector"
)

// ErrModelMismatch is returned when a snapshot was built with a different model than the running embedder.
var ErrModelMismatch = errors.New("corpus: snapshot model does not match embedder")

// Snapshot is an immutable set of corpus entries pinned to the model that produced them.
type Snapshot struct {
	ModelID    string               `json:"model_id"`
	Dimensions int                  `json:"dimensions"`
	CreatedAt  time.Time            `json:"created_at"`
	Entries    []models.CorpusEntry `json:"entries"`
}

// LoadStats reports what happened while decoding a snapshot.
type LoadStats struct {
	Loaded  int  `json:"loaded"`
	Skipped int  `json:"skipped"`
	Legacy  bool `json:"legacy"`
}

// NewSnapshot returns a snapshot for entries, inferring dimensions from the first entry.
func NewSnapshot(modelID string, entries []models.CorpusEntry) (*Snapshot, error) {
	s := &Snapshot{ModelID: modelID, CreatedAt: time.Now().UTC(), Entries: entries}
	if len(entries) > 0 {
		s.Dimensions = len(entries[0].Vector)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

func (s *Snapshot) validate() error {
	for i, e := range s.Entries {
		if len(e.Vector) != s.Dimensions {
			return fmt.Errorf("%w: entry %d (%q) has %d dimensions, snapshot has %d",
				vector.ErrDimensionMismatch, i, e.Title, len(e.Vector), s.Dimensions)
		}
	}
	return nil
}

type rawEntry struct {
	Title     *string   `json:"title"`
	Embedding []float32 `json:"embedding"`
}

type rawSnapshot struct {
	ModelID    string     `json:"model_id"`
	Dimensions int        `json:"dimensions"`
	CreatedAt  time.Time  `json:"created_at"`
	Entries    []rawEntry `json:"entries"`
}

// Decode parses a snapshot document. Both the object form and a legacy bare array of
// {title, embedding} are accepted. Entries without a title or embedding are skipped and counted.
func Decode(data []byte) (*Snapshot, LoadStats, error) {
	var stats LoadStats
	var raw rawSnapshot

	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return nil, stats, fmt.Errorf("corpus: empty snapshot")
	case trimmed[0] == '[':
		stats.Legacy = true
		if err := json.Unmarshal(trimmed, &raw.Entries); err != nil {
			return nil, stats, fmt.Errorf("corpus: parse legacy snapshot: %w", err)
		}
	default:
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, stats, fmt.Errorf("corpus: parse snapshot: %w", err)
		}
	}

	snap := &Snapshot{
		ModelID:    raw.ModelID,
		Dimensions: raw.Dimensions,
		CreatedAt:  raw.CreatedAt,
		Entries:    make([]models.CorpusEntry, 0, len(raw.Entries)),
	}
	for _, r := range raw.Entries {
		if r.Title == nil || strings.TrimSpace(*r.Title) == "" || len(r.Embedding) == 0 {
			stats.Skipped++
			continue
		}
		if snap.Dimensions == 0 {
			snap.Dimensions = len(r.Embedding)
		}
		snap.Entries = append(snap.Entries, models.CorpusEntry{Title: *r.Title, Vector: r.Embedding})
	}
	if err := snap.validate(); err != nil {
		return nil, stats, err
	}
	stats.Loaded = len(snap.Entries)
	return snap, stats, nil
}

// LoadFile reads and decodes the snapshot at path.
func LoadFile(path string) (*Snapshot, LoadStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("corpus: read snapshot: %w", err)
	}
	return Decode(data)
}

// SaveFile writes the snapshot to path via a temp file and rename so readers never see a partial file.
func SaveFile(path string, s *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("corpus: create snapshot dir: %w", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("corpus: marshal snapshot: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("corpus: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("corpus: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("corpus: close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("corpus: rename snapshot: %w", err)
	}
	return nil
}
