// Package storage persists proposals and their cached embeddings.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/fypmatch/internal/models"
)

// ErrNotFound is returned when a proposal does not exist.
var ErrNotFound = errors.New("storage: not found")

// Storage defines proposal and embedding persistence operations.
type Storage interface {
	// Proposal operations
	UpsertProposal(ctx context.Context, p *models.Proposal) error
	GetProposal(ctx context.Context, id string) (*models.Proposal, error)
	GetProposalBySource(ctx context.Context, sourcePath string) (*models.Proposal, error)
	SetStatus(ctx context.Context, id string, status models.ProposalStatus) error
	DeleteProposal(ctx context.Context, id string) error
	// ListProposals returns proposals with the given status ("" for all), oldest first.
	// A limit <= 0 returns every match.
	ListProposals(ctx context.Context, status models.ProposalStatus, offset, limit int) ([]*models.Proposal, error)
	ListSourcePaths(ctx context.Context) (map[string]string, error)

	// Embedding cache, keyed by proposal, model and content hash
	SaveEmbedding(ctx context.Context, proposalID, modelID, contentHash string, vec []float32) error
	GetEmbedding(ctx context.Context, proposalID, modelID, contentHash string) ([]float32, error)

	// Stats
	CountProposals(ctx context.Context, status models.ProposalStatus) (int64, error)
	CountEmbeddings(ctx context.Context, modelID string) (int64, error)

	Close() error
}
