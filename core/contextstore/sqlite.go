package contextstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	slug     TEXT PRIMARY KEY,
	title    TEXT NOT NULL,
	genre    TEXT NOT NULL DEFAULT '',
	synopsis TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS characters (
	slug         TEXT PRIMARY KEY,
	project_slug TEXT NOT NULL REFERENCES projects(slug),
	name         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_characters_project ON characters(project_slug);

CREATE TABLE IF NOT EXISTS scenes (
	slug         TEXT PRIMARY KEY,
	project_slug TEXT NOT NULL REFERENCES projects(slug),
	title        TEXT NOT NULL,
	summary      TEXT NOT NULL DEFAULT '',
	ordinal      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_scenes_project ON scenes(project_slug);

CREATE TABLE IF NOT EXISTS locations (
	slug         TEXT PRIMARY KEY,
	project_slug TEXT NOT NULL REFERENCES projects(slug),
	name         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_locations_project ON locations(project_slug);
`

// SQLiteStore implements Store over a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed initializes) a SQLite-backed store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("contextstore: open %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("contextstore: set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("contextstore: init schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Project fetches a project by slug.
func (s *SQLiteStore) Project(ctx context.Context, slug string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT slug, title, genre, synopsis FROM projects WHERE slug = ?", slug)

	var p Project
	if err := row.Scan(&p.Slug, &p.Title, &p.Genre, &p.Synopsis); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: project %q", ErrNotFound, slug)
		}
		return nil, fmt.Errorf("contextstore: query project: %w", err)
	}
	return &p, nil
}

// Characters lists a project's characters, ordered by slug.
func (s *SQLiteStore) Characters(ctx context.Context, projectSlug string, page Page) ([]Character, error) {
	page = page.normalize()
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug, project_slug, name, description
		 FROM characters WHERE project_slug = ?
		 ORDER BY slug LIMIT ? OFFSET ?`,
		projectSlug, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("contextstore: query characters: %w", err)
	}
	defer rows.Close()

	var out []Character
	for rows.Next() {
		var c Character
		if err := rows.Scan(&c.Slug, &c.ProjectSlug, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("contextstore: scan character: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Scenes lists a project's scenes in story order.
func (s *SQLiteStore) Scenes(ctx context.Context, projectSlug string, page Page) ([]Scene, error) {
	page = page.normalize()
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug, project_slug, title, summary, ordinal
		 FROM scenes WHERE project_slug = ?
		 ORDER BY ordinal, slug LIMIT ? OFFSET ?`,
		projectSlug, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("contextstore: query scenes: %w", err)
	}
	defer rows.Close()

	var out []Scene
	for rows.Next() {
		var sc Scene
		if err := rows.Scan(&sc.Slug, &sc.ProjectSlug, &sc.Title, &sc.Summary, &sc.Ordinal); err != nil {
			return nil, fmt.Errorf("contextstore: scan scene: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Locations lists a project's locations, ordered by slug.
func (s *SQLiteStore) Locations(ctx context.Context, projectSlug string, page Page) ([]Location, error) {
	page = page.normalize()
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug, project_slug, name, description
		 FROM locations WHERE project_slug = ?
		 ORDER BY slug LIMIT ? OFFSET ?`,
		projectSlug, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("contextstore: query locations: %w", err)
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.Slug, &l.ProjectSlug, &l.Name, &l.Description); err != nil {
			return nil, fmt.Errorf("contextstore: scan location: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
