package server

import (
	"context"
	"time"

	"github.com/hyperjump/fypmatch/internal/config"
	"github.com/hyperjump/fypmatch/internal/corpus"
	"github.com/hyperjump/fypmatch/internal/models"
	"github.com/hyperjump/fypmatch/internal/storage"
)

// Status describes the stored proposals, the live corpus and the effective configuration.
type Status struct {
	Proposals        map[models.ProposalStatus]int64 `json:"proposals"`
	CachedEmbeddings int64                           `json:"cached_embeddings"`
	CorpusEntries    int                             `json:"corpus_entries"`
	CorpusModelID    string                          `json:"corpus_model_id"`
	CorpusDimensions int                             `json:"corpus_dimensions"`
	CorpusCreatedAt  string                          `json:"corpus_created_at,omitempty"`
	Provider         string                          `json:"embedding_provider"`
	ModelID          string                          `json:"embedding_model_id"`
	DiskUsage        *storage.Usage                  `json:"disk_usage,omitempty"`
	WatchDirectories []string                        `json:"watch_directories"`
}

// CollectStatus gathers a Status. The embedding model id is the one store is pinned to.
// Disk usage is omitted when it cannot be measured.
func CollectStatus(ctx context.Context, st storage.Storage, store *corpus.Store, cfg *config.Config) (*Status, error) {
	out := &Status{
		Proposals:        make(map[models.ProposalStatus]int64),
		Provider:         cfg.Embedding.Provider,
		ModelID:          cfg.Embedding.ModelID,
		WatchDirectories: append([]string{}, cfg.Watch.Directories...),
	}
	if store != nil && store.ModelID() != "" {
		out.ModelID = store.ModelID()
	}
	for _, status := range []models.ProposalStatus{models.StatusPending, models.StatusApproved, models.StatusRejected} {
		n, err := st.CountProposals(ctx, status)
		if err != nil {
			return nil, err
		}
		out.Proposals[status] = n
	}
	n, err := st.CountEmbeddings(ctx, out.ModelID)
	if err != nil {
		return nil, err
	}
	out.CachedEmbeddings = n

	if store != nil {
		snap := store.Current()
		out.CorpusEntries = snap.Len()
		out.CorpusModelID = snap.ModelID
		out.CorpusDimensions = snap.Dimensions
		if !snap.CreatedAt.IsZero() {
			out.CorpusCreatedAt = snap.CreatedAt.Format(time.RFC3339)
		}
	}
	if usage, err := storage.DiskUsage(cfg.Storage.DatabasePath, cfg.Storage.SnapshotPath); err == nil {
		out.DiskUsage = &usage
	}
	return out, nil
}
