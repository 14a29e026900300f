package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/newsrelay/newsrelay/core"
)

// SQLiteStore persists the source catalog in an embedded sqlite database.
// Use ":memory:" as the path for an ephemeral database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and applies
// the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog db: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		category TEXT,
		language TEXT,
		country TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sources_category ON sources(category);
	CREATE INDEX IF NOT EXISTS idx_sources_language ON sources(language);
	CREATE INDEX IF NOT EXISTS idx_sources_country ON sources(country);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Upsert inserts or replaces the given sources in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, sources []core.Source) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sources (id, name, description, category, language, country)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category,
			language = excluded.language,
			country = excluded.country`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, src := range sources {
		if src.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, src.ID, src.Name, src.Description, src.Category, src.Language, src.Country); err != nil {
			return fmt.Errorf("upsert source %s: %w", src.ID, err)
		}
	}

	return tx.Commit()
}

// Lookup returns the sources matching the given IDs, skipping unknown IDs.
func (s *SQLiteStore) Lookup(ctx context.Context, ids []string) ([]core.Source, error) {
	if len(ids) == 0 {
		return []core.Source{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, name, description, category, language, country
		FROM sources WHERE id IN (%s) ORDER BY id`, placeholders)

	return s.query(ctx, query, args...)
}

// List returns all sources satisfying the filter, ordered by ID.
func (s *SQLiteStore) List(ctx context.Context, filter core.SourceFilter) ([]core.Source, error) {
	query := `SELECT id, name, description, category, language, country FROM sources WHERE 1=1`
	var args []any
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.Language != "" {
		query += " AND language = ?"
		args = append(args, filter.Language)
	}
	if filter.Country != "" {
		query += " AND country = ?"
		args = append(args, filter.Country)
	}
	query += " ORDER BY id"

	return s.query(ctx, query, args...)
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]core.Source, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []core.Source{}
	for rows.Next() {
		var src core.Source
		if err := rows.Scan(&src.ID, &src.Name, &src.Description, &src.Category, &src.Language, &src.Country); err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, rows.Err()
}
