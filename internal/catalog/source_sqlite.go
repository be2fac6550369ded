package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/DomeenoH/MuMuAINovel/internal/log"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const schema = `
CREATE TABLE IF NOT EXISTS prompt_templates (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	prompt_content TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	tags           TEXT NOT NULL DEFAULT '[]',
	created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_prompt_templates_category ON prompt_templates(category);
`

// SQLiteStore keeps templates in a local SQLite database.
type SQLiteStore struct {
	conn   *sql.DB
	path   string
	logger *logrus.Entry
}

// OpenSQLite opens or creates the database at path and ensures the schema.
// The parent directory is created when missing.
func OpenSQLite(path string) (*SQLiteStore, error) {
	logger := log.WithModule("catalog").WithField("path", path)
	logger.Debug("opening template database")

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{conn: conn, path: path, logger: logger}, nil
}

func (s *SQLiteStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]TemplateItem, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, name, description, prompt_content, category, tags
		FROM prompt_templates
		ORDER BY category, name, id`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var items []TemplateItem
	for rows.Next() {
		var (
			it   TemplateItem
			tags string
		)
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.Content, &it.Category, &tags); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &it.Tags); err != nil {
			s.logger.WithField("template_id", it.ID).WithError(err).Warn("ignoring malformed tags")
		}
		if len(it.Tags) == 0 {
			it.Tags = nil
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Upsert inserts the items, replacing rows with the same id. It returns how
// many rows were written.
func (s *SQLiteStore) Upsert(ctx context.Context, items ...TemplateItem) (int, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO prompt_templates (id, name, description, prompt_content, category, tags)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			prompt_content = excluded.prompt_content,
			category = excluded.category,
			tags = excluded.tags,
			updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, it := range items {
		tags := it.Tags
		if tags == nil {
			tags = TagList{}
		}
		encoded, err := json.Marshal(tags)
		if err != nil {
			return n, err
		}
		if _, err := stmt.ExecContext(ctx, it.ID, it.Name, it.Description, it.Content, it.Category, string(encoded)); err != nil {
			return n, fmt.Errorf("upsert %s: %w", it.ID, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	s.logger.WithField("count", n).Info("templates imported")
	return n, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM prompt_templates").Scan(&n)
	return n, err
}
