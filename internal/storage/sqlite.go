package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/fypmatch/internal/models"
	"github.com/hyperjump/fypmatch/internal/vector"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS proposals (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		text TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		source_path TEXT,
		source_size INTEGER NOT NULL DEFAULT 0,
		source_mtime INTEGER NOT NULL DEFAULT 0,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_proposals_source ON proposals(source_path);

	CREATE TABLE IF NOT EXISTS proposal_embeddings (
		proposal_id TEXT NOT NULL,
		model_id TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		vector BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (proposal_id, model_id),
		FOREIGN KEY (proposal_id) REFERENCES proposals(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

const proposalColumns = `id, title, text, status, COALESCE(source_path, ''), source_size, source_mtime, metadata, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProposal(row rowScanner) (*models.Proposal, error) {
	var p models.Proposal
	var status string
	var metadataJSON sql.NullString
	if err := row.Scan(&p.ID, &p.Title, &p.Text, &status, &p.SourcePath, &p.SourceSize, &p.SourceMod,
		&metadataJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = models.ProposalStatus(status)
	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &p.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &p, nil
}

// UpsertProposal inserts p or replaces the stored row with the same id. CreatedAt is preserved
// on update. An empty status is stored as pending.
func (s *SQLiteStorage) UpsertProposal(ctx context.Context, p *models.Proposal) error {
	if p.ID == "" {
		return fmt.Errorf("proposal id is required")
	}
	if p.Status == "" {
		p.Status = models.StatusPending
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid proposal status %q", p.Status)
	}
	var metadata sql.NullString
	if p.Metadata != nil {
		b, err := json.Marshal(p.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}
	var source sql.NullString
	if p.SourcePath != "" {
		source = sql.NullString{String: p.SourcePath, Valid: true}
	}

	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO proposals (id, title, text, status, source_path, source_size, source_mtime, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			text = excluded.text,
			status = excluded.status,
			source_path = excluded.source_path,
			source_size = excluded.source_size,
			source_mtime = excluded.source_mtime,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		p.ID, p.Title, p.Text, string(p.Status), source, p.SourceSize, p.SourceMod, metadata, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetProposal returns a proposal by ID.
func (s *SQLiteStorage) GetProposal(ctx context.Context, id string) (*models.Proposal, error) {
	p, err := scanProposal(s.db.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: proposal %s", ErrNotFound, id)
	}
	return p, err
}

// GetProposalBySource returns the proposal ingested from sourcePath.
func (s *SQLiteStorage) GetProposalBySource(ctx context.Context, sourcePath string) (*models.Proposal, error) {
	p, err := scanProposal(s.db.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE source_path = ? LIMIT 1`, sourcePath))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: proposal from %s", ErrNotFound, sourcePath)
	}
	return p, err
}

// SetStatus changes a proposal's status.
func (s *SQLiteStorage) SetStatus(ctx context.Context, id string, status models.ProposalStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid proposal status %q", status)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE proposals SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now(), id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: proposal %s", ErrNotFound, id)
	}
	return nil
}

// DeleteProposal removes a proposal and its cached embeddings.
func (s *SQLiteStorage) DeleteProposal(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM proposals WHERE id = ?`, id)
	return err
}

// ListProposals returns proposals ordered by creation time, then id.
func (s *SQLiteStorage) ListProposals(ctx context.Context, status models.ProposalStatus, offset, limit int) ([]*models.Proposal, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + proposalColumns + ` FROM proposals`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListSourcePaths returns source path -> proposal id for every proposal ingested from a file.
func (s *SQLiteStorage) ListSourcePaths(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source_path, id FROM proposals WHERE source_path IS NOT NULL AND source_path != ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var path, id string
		if err := rows.Scan(&path, &id); err != nil {
			return nil, err
		}
		out[path] = id
	}
	return out, rows.Err()
}

// SaveEmbedding stores the vector for a proposal under modelID, replacing any previous one.
func (s *SQLiteStorage) SaveEmbedding(ctx context.Context, proposalID, modelID, contentHash string, vec []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO proposal_embeddings (proposal_id, model_id, content_hash, vector, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(proposal_id, model_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			vector = excluded.vector,
			created_at = excluded.created_at`,
		proposalID, modelID, contentHash, vector.Encode(vec), time.Now())
	return err
}

// GetEmbedding returns the cached vector, or ErrNotFound when there is none for this
// model or the content hash has changed.
func (s *SQLiteStorage) GetEmbedding(ctx context.Context, proposalID, modelID, contentHash string) ([]float32, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT vector FROM proposal_embeddings WHERE proposal_id = ? AND model_id = ? AND content_hash = ?`,
		proposalID, modelID, contentHash).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: embedding for %s", ErrNotFound, proposalID)
	}
	if err != nil {
		return nil, err
	}
	return vector.Decode(blob)
}

// CountProposals returns the number of proposals with status ("" for all).
func (s *SQLiteStorage) CountProposals(ctx context.Context, status models.ProposalStatus) (int64, error) {
	var count int64
	var err error
	if status == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM proposals`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM proposals WHERE status = ?`, string(status)).Scan(&count)
	}
	return count, err
}

// CountEmbeddings returns the number of cached vectors for modelID.
func (s *SQLiteStorage) CountEmbeddings(ctx context.Context, modelID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM proposal_embeddings WHERE model_id = ?`, modelID).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
