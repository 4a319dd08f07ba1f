package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

const schema = `CREATE TABLE IF NOT EXISTS projects (
	id         TEXT PRIMARY KEY,
	updated_at INTEGER NOT NULL,
	doc        TEXT NOT NULL
)`

// SQLite keeps each project as a JSON document in one table.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "could not open sqlite db")
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		sqlDB.SetMaxOpenConns(1)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "could not create schema")
	}
	return &SQLite{db: sqlDB}, nil
}

func (s *SQLite) Get(ctx context.Context, id string) (model.Project, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM projects WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, ErrNotFound
	}
	if err != nil {
		return model.Project{}, sqliteError(err, "could not read project")
	}
	var p model.Project
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return model.Project{}, errors.Wrapf(err, "corrupt project %s", id)
	}
	return p, nil
}

func (s *SQLite) Put(ctx context.Context, p model.Project) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "could not encode project")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, updated_at, doc) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, doc = excluded.doc`,
		p.ID, toMillis(p.UpdatedAt), string(doc))
	return sqliteError(err, "could not write project")
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return sqliteError(err, "could not delete project")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return sqliteError(err, "could not delete project")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, sqliteError(err, "could not list projects")
	}
	defer rows.Close()

	res := []model.Project{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, sqliteError(err, "could not list projects")
		}
		var p model.Project
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, errors.Wrap(err, "corrupt project")
		}
		res = append(res, p)
	}
	return res, sqliteError(rows.Err(), "could not list projects")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// sqliteError wraps err, marking busy and locked databases as unavailable.
func sqliteError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		if code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED {
			return errors.Wrap(ErrUnavailable, err.Error())
		}
	}
	return errors.Wrap(err, msg)
}
