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

	"github.com/hyperjump/ragpipe/internal/models"
)

// SQLiteStore implements ChunkStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		chunk_count INTEGER NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chunks (
		document_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		id TEXT NOT NULL,
		content TEXT NOT NULL,
		source TEXT,
		PRIMARY KEY (document_id, chunk_index),
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS embeddings (
		document_id TEXT PRIMARY KEY,
		vectors TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveChunks replaces the chunk list of docID in one transaction.
func (s *SQLiteStore) SaveChunks(ctx context.Context, docID string, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, docID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, chunk_count, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET chunk_count = excluded.chunk_count, updated_at = excluded.updated_at`,
		docID, len(chunks), time.Now(),
	); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (document_id, chunk_index, id, content, source) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, docID, c.Index, c.ID, c.Content, c.Source); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadChunks returns the chunks of docID ordered by index.
func (s *SQLiteStore) LoadChunks(ctx context.Context, docID string) ([]*models.Chunk, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT chunk_count FROM documents WHERE id = ?`, docID).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("load_chunks", docID, "chunks")
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, chunk_index, source FROM chunks WHERE document_id = ? ORDER BY chunk_index`,
		docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks := make([]*models.Chunk, 0, count)
	for rows.Next() {
		var c models.Chunk
		var source sql.NullString
		if err := rows.Scan(&c.ID, &c.Content, &c.Index, &source); err != nil {
			return nil, err
		}
		c.Source = source.String
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// DeleteChunks removes the chunks and embeddings of docID.
func (s *SQLiteStore) DeleteChunks(ctx context.Context, docID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, q := range []string{
		`DELETE FROM chunks WHERE document_id = ?`,
		`DELETE FROM documents WHERE id = ?`,
		`DELETE FROM embeddings WHERE document_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, docID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveEmbeddings replaces the embeddings of docID.
func (s *SQLiteStore) SaveEmbeddings(ctx context.Context, docID string, embeddings [][]float32) error {
	data, err := json.Marshal(embeddings)
	if err != nil {
		return fmt.Errorf("failed to marshal embeddings: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO embeddings (document_id, vectors, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET vectors = excluded.vectors, updated_at = excluded.updated_at`,
		docID, string(data), time.Now(),
	)
	return err
}

// LoadEmbeddings returns the embeddings of docID.
func (s *SQLiteStore) LoadEmbeddings(ctx context.Context, docID string) ([][]float32, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT vectors FROM embeddings WHERE document_id = ?`, docID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("load_embeddings", docID, "embeddings")
	}
	if err != nil {
		return nil, err
	}
	var out [][]float32
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embeddings: %w", err)
	}
	if out == nil {
		out = [][]float32{}
	}
	return out, nil
}

// ListDocuments returns the ids of documents with saved chunks.
func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM documents ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
