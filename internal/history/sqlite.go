package history

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	keep int
	mu   sync.RWMutex
}

// NewSQLiteStore opens the history database at dbPath, creating it when missing.
// Use ":memory:" for an in-memory database. keep bounds the number of retained
// builds; zero keeps everything.
func NewSQLiteStore(dbPath string, keep int) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, wrap(err, "create history directory").WithContext("path", dbPath).Build()
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap(err, "open history database").WithContext("path", dbPath).Build()
	}
	// A single connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, keep: keep}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, wrap(err, "initialize history schema").WithContext("path", dbPath).Build()
	}
	return store, nil
}

func wrap(err error, msg string) *errors.ErrorBuilder {
	return errors.WrapError(err, errors.CategoryHistory, msg).Warning()
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		summary TEXT NOT NULL,
		warnings INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		stages TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started);
	CREATE TABLE IF NOT EXISTS pages (
		build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		PRIMARY KEY (build_id, path)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores b and its pages in one transaction, then prunes.
func (s *SQLiteStore) Record(ctx context.Context, b Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stagesJSON []byte
	if b.Stages != nil {
		var err error
		stagesJSON, err = json.Marshal(b.Stages)
		if err != nil {
			return wrap(err, "marshal stage results").Build()
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err, "begin history transaction").Build()
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO builds (id, started, finished, outcome, summary, warnings, errors, stages) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		b.ID, b.Start.UnixNano(), b.End.UnixNano(), b.Outcome, b.Summary, b.Warnings, b.Errors, string(stagesJSON),
	)
	if err != nil {
		return wrap(err, "insert build").WithContext("build_id", b.ID).Build()
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO pages (build_id, path, fingerprint) VALUES (?, ?, ?)")
	if err != nil {
		return wrap(err, "prepare page insert").Build()
	}
	defer func() { _ = stmt.Close() }()
	for p, fp := range b.Pages {
		if _, err := stmt.ExecContext(ctx, b.ID, p, fp); err != nil {
			return wrap(err, "insert page").WithContext("path", p).Build()
		}
	}

	if s.keep > 0 {
		if err := prune(ctx, tx, s.keep); err != nil {
			return wrap(err, "prune history").Build()
		}
	}
	if err := tx.Commit(); err != nil {
		return wrap(err, "commit history").Build()
	}
	return nil
}

func prune(ctx context.Context, tx *sql.Tx, keep int) error {
	const old = "SELECT id FROM builds ORDER BY started DESC LIMIT -1 OFFSET ?"
	if _, err := tx.ExecContext(ctx, "DELETE FROM pages WHERE build_id IN ("+old+")", keep); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, "DELETE FROM builds WHERE id IN ("+old+")", keep)
	return err
}

// Diff compares pages against the newest recorded build. With no history
// every page counts as added.
func (s *SQLiteStore) Diff(ctx context.Context, pages map[string]string) (Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prev := make(map[string]string)
	var last string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM builds ORDER BY started DESC LIMIT 1").Scan(&last)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Change{}, wrap(err, "query latest build").Build()
	default:
		rows, err := s.db.QueryContext(ctx, "SELECT path, fingerprint FROM pages WHERE build_id = ?", last)
		if err != nil {
			return Change{}, wrap(err, "query pages").Build()
		}
		defer rows.Close()
		for rows.Next() {
			var p, fp string
			if err := rows.Scan(&p, &fp); err != nil {
				return Change{}, wrap(err, "scan page").Build()
			}
			prev[p] = fp
		}
		if err := rows.Err(); err != nil {
			return Change{}, wrap(err, "iterate pages").Build()
		}
	}

	var c Change
	for p, fp := range pages {
		old, ok := prev[p]
		switch {
		case !ok:
			c.Added = append(c.Added, p)
		case old != fp:
			c.Modified = append(c.Modified, p)
		}
	}
	for p := range prev {
		if _, ok := pages[p]; !ok {
			c.Removed = append(c.Removed, p)
		}
	}
	sort.Strings(c.Added)
	sort.Strings(c.Modified)
	sort.Strings(c.Removed)
	return c, nil
}

// List returns up to limit builds, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started, finished, outcome, summary, warnings, errors, stages FROM builds ORDER BY started DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, wrap(err, "query builds").Build()
	}
	defer rows.Close()

	var builds []Build
	for rows.Next() {
		var b Build
		var started, finished int64
		var stagesJSON sql.NullString
		if err := rows.Scan(&b.ID, &started, &finished, &b.Outcome, &b.Summary, &b.Warnings, &b.Errors, &stagesJSON); err != nil {
			return nil, wrap(err, "scan build").Build()
		}
		b.Start = time.Unix(0, started)
		b.End = time.Unix(0, finished)
		if stagesJSON.Valid && stagesJSON.String != "" {
			if err := json.Unmarshal([]byte(stagesJSON.String), &b.Stages); err != nil {
				return nil, wrap(err, "unmarshal stage results").Build()
			}
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "iterate builds").Build()
	}
	return builds, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
