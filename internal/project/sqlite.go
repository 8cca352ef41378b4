package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	autoexecute TEXT NOT NULL DEFAULT ''
);
`

// SQLiteStore is a Store backed by a sqlite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the project database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening project db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing project schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindByName(ctx context.Context, name string) (*Project, error) {
	var p Project
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, autoexecute FROM projects WHERE name = ?`, name)
	if err := row.Scan(&p.ID, &p.Name, &p.Autoexecute); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying project %q: %w", name, err)
	}
	return &p, nil
}

// Create inserts a project and returns it with its assigned id.
func (s *SQLiteStore) Create(ctx context.Context, name, autoexecute string) (*Project, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (name, autoexecute) VALUES (?, ?)`, name, autoexecute)
	if err != nil {
		return nil, fmt.Errorf("creating project %q: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Project{ID: id, Name: name, Autoexecute: autoexecute}, nil
}
