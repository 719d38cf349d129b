// Package models defines core data structures for proposals, corpus entries, and review verdicts.
package models

import "time"

// ProposalStatus is the lifecycle state of a stored proposal.
type ProposalStatus string

const (
	StatusPending  ProposalStatus = "pending"
	StatusApproved ProposalStatus = "approved"
	StatusRejected ProposalStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s ProposalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Proposal represents a stored project proposal with its extracted text.
type Proposal struct {
	ID         string                 `json:"id" db:"id"`
	Title      string                 `json:"title" db:"title"`
	Text       string                 `json:"text" db:"text"`
	Status     ProposalStatus         `json:"status" db:"status"`
	SourcePath string                 `json:"source_path,omitempty" db:"source_path"`
	SourceSize int64                  `json:"source_size,omitempty" db:"source_size"`
	SourceMod  int64                  `json:"source_mtime,omitempty" db:"source_mtime"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at" db:"updated_at"`
}

// ProposalInput is the input for creating or updating a proposal.
type ProposalInput struct {
	ID         string                 `json:"id,omitempty"`
	Title      string                 `json:"title"`
	Text       string                 `json:"text"`
	Status     ProposalStatus         `json:"status,omitempty"`
	SourcePath string                 `json:"source_path,omitempty"`
	SourceSize int64                  `json:"source_size,omitempty"`
	SourceMod  int64                  `json:"source_mtime,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// CorpusEntry is one previously approved proposal title and its embedding.
// Entries are immutable once loaded; a corpus refresh replaces the whole set.
type CorpusEntry struct {
	Title  string    `json:"title"`
	Vector []float32 `json:"embedding"`
}

// SimilarityResult is a scored label produced per query.
type SimilarityResult struct {
	Label string  `json:"title"`
	Score float64 `json:"score"`
}

// ExpertiseMap maps a supervisor id to their ordered expertise keywords.
type ExpertiseMap map[string][]string
