package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/humanbattery/internal/logger"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// SQLiteStore keeps every save as a revision row and serves the newest
// one. Older revisions are rotated out past maxRevisions.
type SQLiteStore struct {
	db           *sql.DB
	maxRevisions int
}

// Revision describes one stored save.
type Revision struct {
	ID      string
	SavedAt time.Time
	Size    int
}

// NewSQLiteStore opens (and creates if needed) the database at dbPath. An
// empty path uses the user config directory.
func NewSQLiteStore(dbPath string, dirPermissions os.FileMode, maxRevisions int) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = defaultDataPath("profile.db")
	}
	if maxRevisions <= 0 {
		maxRevisions = DefaultMaxRevisions
	}
	if dirPermissions == 0 {
		dirPermissions = 0700
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps every statement on the same database,
	// which matters for ":memory:".
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, maxRevisions: maxRevisions}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS revisions (
			seq      INTEGER PRIMARY KEY AUTOINCREMENT,
			id       TEXT NOT NULL UNIQUE,
			saved_at TEXT NOT NULL,
			data     BLOB NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load returns the newest revision.
func (s *SQLiteStore) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM revisions ORDER BY seq DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Debug("No profile revisions stored, starting fresh")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return data, nil
}

// Save stores data as a new revision and rotates old ones.
func (s *SQLiteStore) Save(ctx context.Context, data []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO revisions (id, saved_at, data) VALUES (?, ?, ?)`,
		uuid.New().String(), time.Now().UTC().Format(time.RFC3339Nano), data,
	)
	if err != nil {
		return fmt.Errorf("failed to insert revision: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM revisions WHERE seq NOT IN (
			SELECT seq FROM revisions ORDER BY seq DESC LIMIT ?
		)`,
		s.maxRevisions,
	)
	if err != nil {
		return fmt.Errorf("failed to rotate revisions: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		logger.Debug("Rotated out %d old profile revisions", n)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit revision: %w", err)
	}
	return nil
}

// Revisions lists stored revisions, newest first.
func (s *SQLiteStore) Revisions(ctx context.Context) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, saved_at, length(data) FROM revisions ORDER BY seq DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var (
			rev     Revision
			savedAt string
		)
		if err := rows.Scan(&rev.ID, &savedAt, &rev.Size); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		rev.SavedAt, _ = time.Parse(time.RFC3339Nano, savedAt)
		out = append(out, rev)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
