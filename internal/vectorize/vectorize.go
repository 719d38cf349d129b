// Package vectorize ingests approved proposals into storage and builds corpus snapshots from them.
package vectorize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/fypmatch/internal/corpus"
	"github.com/hyperjump/fypmatch/internal/embedding"
	"github.com/hyperjump/fypmatch/internal/extract"
	"github.com/hyperjump/fypmatch/internal/fileid"
	"github.com/hyperjump/fypmatch/internal/models"
	"github.com/hyperjump/fypmatch/internal/storage"
	"github.com/hyperjump/fypmatch/pkg/utils"
	"go.uber.org/zap"
)

const batchSize = 32

// Stats summarizes one corpus build.
type Stats struct {
	Approved int           `json:"approved"`
	Embedded int           `json:"embedded"`
	Reused   int           `json:"reused"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Vectorizer turns stored proposals into corpus snapshots.
type Vectorizer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	extractor    *extract.Extractor
	store        *corpus.Store
	snapshotPath string
	extensions   []string
	logger       *zap.Logger

	rebuildMu sync.Mutex
}

// Option configures a Vectorizer.
type Option func(*Vectorizer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *Vectorizer) { v.logger = l }
}

// WithStore makes Rebuild swap new snapshots into store.
func WithStore(s *corpus.Store) Option {
	return func(v *Vectorizer) { v.store = s }
}

// WithSnapshotPath makes Rebuild persist new snapshots at path.
func WithSnapshotPath(path string) Option {
	return func(v *Vectorizer) { v.snapshotPath = path }
}

// WithExtensions restricts which files IngestFile accepts.
func WithExtensions(exts []string) Option {
	return func(v *Vectorizer) { v.extensions = exts }
}

// New returns a Vectorizer over st, encoding with e.
func New(st storage.Storage, e embedding.Embedder, opts ...Option) *Vectorizer {
	v := &Vectorizer{
		storage:    st,
		embedder:   e,
		extractor:  extract.NewExtractor(),
		extensions: extract.SupportedExtensions,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = utils.LoggerOrNop(v.logger)
	return v
}

// EncodeText returns the text that represents a proposal in the corpus.
func EncodeText(title, text string) string {
	return strings.TrimSpace(title) + "\n" + strings.TrimSpace(text)
}

type pending struct {
	index int
	id    string
	hash  string
	text  string
}

// Build embeds every approved proposal and returns the resulting snapshot.
// Embeddings already cached for the same content and model are reused.
func (v *Vectorizer) Build(ctx context.Context) (*corpus.Snapshot, Stats, error) {
	start := time.Now()
	var stats Stats
	proposals, err := v.storage.ListProposals(ctx, models.StatusApproved, 0, 0)
	if err != nil {
		return nil, stats, fmt.Errorf("list approved proposals: %w", err)
	}
	stats.Approved = len(proposals)

	modelID := v.embedder.ModelID()
	entries := make([]models.CorpusEntry, 0, len(proposals))
	var todo []pending
	for _, p := range proposals {
		title := strings.TrimSpace(p.Title)
		if title == "" || strings.TrimSpace(p.Text) == "" {
			stats.Skipped++
			v.logger.Debug("vectorize skipping blank proposal", zap.String("id", p.ID))
			continue
		}
		text := EncodeText(p.Title, p.Text)
		hash := fileid.ContentHash(text)
		entries = append(entries, models.CorpusEntry{Title: title})
		vec, err := v.storage.GetEmbedding(ctx, p.ID, modelID, hash)
		switch {
		case err == nil && len(vec) > 0:
			entries[len(entries)-1].Vector = vec
			stats.Reused++
		case err == nil || errors.Is(err, storage.ErrNotFound):
			todo = append(todo, pending{index: len(entries) - 1, id: p.ID, hash: hash, text: text})
		default:
			return nil, stats, fmt.Errorf("load cached embedding for %s: %w", p.ID, err)
		}
	}

	for startIdx := 0; startIdx < len(todo); startIdx += batchSize {
		batch := todo[startIdx:min(startIdx+batchSize, len(todo))]
		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.text
		}
		vecs, err := v.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, stats, fmt.Errorf("embed proposals: %w", err)
		}
		for i, p := range batch {
			entries[p.index].Vector = vecs[i]
			if err := v.storage.SaveEmbedding(ctx, p.id, modelID, p.hash, vecs[i]); err != nil {
				return nil, stats, fmt.Errorf("cache embedding for %s: %w", p.id, err)
			}
		}
		stats.Embedded += len(batch)
	}

	snap, err := corpus.NewSnapshot(modelID, entries)
	if err != nil {
		return nil, stats, err
	}
	stats.Duration = time.Since(start)
	return snap, stats, nil
}

// Rebuild builds a snapshot, writes it to the snapshot path and swaps it into the live store.
// Concurrent calls run one at a time.
func (v *Vectorizer) Rebuild(ctx context.Context) (Stats, error) {
	v.rebuildMu.Lock()
	defer v.rebuildMu.Unlock()

	snap, stats, err := v.Build(ctx)
	if err != nil {
		return stats, err
	}
	if v.snapshotPath != "" {
		if err := corpus.SaveFile(v.snapshotPath, snap); err != nil {
			return stats, err
		}
	}
	if v.store != nil {
		if err := v.store.Swap(snap); err != nil {
			return stats, err
		}
	}
	v.logger.Info("corpus rebuilt",
		zap.Int("entries", snap.Len()),
		zap.Int("embedded", stats.Embedded),
		zap.Int("reused", stats.Reused),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// TitleFromPath derives a proposal title from a file name:
// "smart_parking-system.pdf" becomes "smart parking system".
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}

// IngestText stores a proposal that has no backing file. A fresh id is assigned when in.ID is empty.
func (v *Vectorizer) IngestText(ctx context.Context, in *models.ProposalInput) (*models.Proposal, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("%w: proposal needs a title and text", models.ErrInvalidInput)
	}
	status := in.Status
	if status == "" {
		status = models.StatusApproved
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidInput, status)
	}
	id := in.ID
	if id == "" {
		id = fileid.InlineID()
	}
	p := &models.Proposal{
		ID:         id,
		Title:      strings.TrimSpace(in.Title),
		Text:       in.Text,
		Status:     status,
		SourcePath: in.SourcePath,
		SourceSize: in.SourceSize,
		SourceMod:  in.SourceMod,
		Metadata:   in.Metadata,
	}
	if err := v.storage.UpsertProposal(ctx, p); err != nil {
		return nil, fmt.Errorf("store proposal: %w", err)
	}
	return p, nil
}

// IngestFile extracts the file at path and stores it as a proposal with the given status
// ("" means approved). It reports whether anything was written; files whose size and
// modification time match the stored copy are skipped.
func (v *Vectorizer) IngestFile(ctx context.Context, path string, status models.ProposalStatus) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if !extensionAllowed(ext, v.extensions) {
		return false, fmt.Errorf("%w: extension %q not accepted", models.ErrInvalidInput, ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return false, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return false, fmt.Errorf("not a regular file: %s", absPath)
	}

	id := fileid.ProposalID(absPath)
	existing, err := v.storage.GetProposal(ctx, id)
	switch {
	case err == nil:
		if existing.SourceSize == info.Size() && existing.SourceMod == info.ModTime().UnixNano() &&
			(status == "" || status == existing.Status) {
			v.logger.Debug("vectorize skipping unchanged file", zap.String("path", absPath))
			return false, nil
		}
		if status == "" {
			status = existing.Status
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return false, fmt.Errorf("load proposal: %w", err)
	}

	text, err := v.extractor.Extract(absPath)
	if err != nil {
		return false, fmt.Errorf("extract content: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return false, fmt.Errorf("%w: no text in %s", models.ErrInvalidInput, absPath)
	}
	_, err = v.IngestText(ctx, &models.ProposalInput{
		ID:         id,
		Title:      TitleFromPath(absPath),
		Text:       text,
		Status:     status,
		SourcePath: absPath,
		SourceSize: info.Size(),
		SourceMod:  info.ModTime().UnixNano(),
	})
	if err != nil {
		return false, err
	}
	v.logger.Debug("vectorize file ingested", zap.String("path", absPath), zap.String("id", id))
	return true, nil
}

// IngestDirectory walks dir and ingests every accepted file. It returns how many proposals
// were written. Files that fail to ingest are logged and skipped.
func (v *Vectorizer) IngestDirectory(ctx context.Context, dir string, status models.ProposalStatus, recursive bool) (int, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	n := 0
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != absDir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !extensionAllowed(filepath.Ext(path), v.extensions) {
			return nil
		}
		changed, err := v.IngestFile(ctx, path, status)
		if err != nil {
			v.logger.Warn("vectorize ingest failed", zap.String("path", path), zap.Error(err))
			return nil
		}
		if changed {
			n++
		}
		return nil
	})
	return n, err
}

// RemoveFile deletes the proposal ingested from path. Missing proposals are not an error.
func (v *Vectorizer) RemoveFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	id := fileid.ProposalID(absPath)
	if err := v.storage.DeleteProposal(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete proposal: %w", err)
	}
	v.logger.Debug("vectorize proposal removed", zap.String("path", absPath), zap.String("id", id))
	return nil
}

func extensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return extract.Supported(ext)
	}
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// Prune deletes proposals whose source file no longer exists. It returns how many were removed.
func (v *Vectorizer) Prune(ctx context.Context) (int, error) {
	paths, err := v.storage.ListSourcePaths(ctx)
	if err != nil {
		return 0, fmt.Errorf("list source paths: %w", err)
	}
	n := 0
	for path, id := range paths {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		if err := v.storage.DeleteProposal(ctx, id); err != nil {
			return n, fmt.Errorf("delete proposal %s: %w", id, err)
		}
		v.logger.Debug("vectorize pruned missing file", zap.String("path", path), zap.String("id", id))
		n++
	}
	return n, nil
}
