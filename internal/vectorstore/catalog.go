package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// catalog records which collections exist and their expected dimension.
type catalog struct {
	db *sql.DB
}

func openCatalog(dbPath string) (*catalog, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return &catalog{db: db}, nil
}

// create inserts name; an existing entry is left untouched.
func (c *catalog) create(ctx context.Context, name string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO collections (name, dimension, created_at) VALUES (?, 0, ?)`,
		name, time.Now().UTC(),
	)
	return err
}

// get returns the entry for name, or nil when absent.
func (c *catalog) get(ctx context.Context, name string) (*CollectionMeta, error) {
	var m CollectionMeta
	err := c.db.QueryRowContext(ctx,
		`SELECT name, dimension, created_at FROM collections WHERE name = ?`, name,
	).Scan(&m.Name, &m.Dimension, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *catalog) list(ctx context.Context) ([]CollectionMeta, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name, dimension, created_at FROM collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []CollectionMeta{}
	for rows.Next() {
		var m CollectionMeta
		if err := rows.Scan(&m.Name, &m.Dimension, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// setDimension records dim for name if no dimension is recorded yet.
func (c *catalog) setDimension(ctx context.Context, name string, dim int) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE collections SET dimension = ? WHERE name = ? AND dimension = 0`, dim, name)
	return err
}

func (c *catalog) delete(ctx context.Context, name string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	return err
}

func (c *catalog) close() error {
	return c.db.Close()
}
