// Package storage persists serialized profiles.
//
// Two backends are provided: a JSON file written atomically through a
// temporary file, and a SQLite database that keeps a bounded number of
// past revisions. Both store the profile as an opaque blob; encoding is the
// profile package's concern.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Store holds one serialized profile.
type Store interface {
	// Load returns the saved profile, or nil when nothing was saved yet.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the saved profile.
	Save(ctx context.Context, data []byte) error
	Close() error
}

// Backend names.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// DefaultMaxRevisions is the number of revisions the SQLite backend keeps.
const DefaultMaxRevisions = 20

// Options selects and configures a backend.
type Options struct {
	Backend         string
	FilePath        string
	DBPath          string
	FilePermissions os.FileMode
	DirPermissions  os.FileMode
	MaxRevisions    int
}

// ErrNothingSaved is returned by Backup when the store is empty.
var ErrNothingSaved = errors.New("no saved profile")

// Open creates the store selected by opts.Backend.
func Open(opts Options) (Store, error) {
	if opts.FilePermissions == 0 {
		opts.FilePermissions = 0600
	}
	if opts.DirPermissions == 0 {
		opts.DirPermissions = 0700
	}

	switch opts.Backend {
	case BackendJSON, "":
		return NewFileStore(opts.FilePath, opts.FilePermissions, opts.DirPermissions), nil
	case BackendSQLite:
		return NewSQLiteStore(opts.DBPath, opts.DirPermissions, opts.MaxRevisions)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

// Backup copies the saved profile from store to path unchanged.
func Backup(ctx context.Context, store Store, path string, perm os.FileMode) error {
	data, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to read profile: %w", err)
	}
	if data == nil {
		return ErrNothingSaved
	}
	if perm == 0 {
		perm = 0600
	}
	if err := writeAtomic(path, data, perm); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// Restore replaces the saved profile with the contents of the file at
// path. The file must hold JSON; it is otherwise stored unchanged.
func Restore(ctx context.Context, store Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	if !json.Valid(data) {
		return fmt.Errorf("backup %s is not valid JSON", path)
	}
	if err := store.Save(ctx, data); err != nil {
		return fmt.Errorf("failed to restore profile: %w", err)
	}
	return nil
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, perm); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// defaultDataPath returns name inside the per-user data directory.
func defaultDataPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "humanbattery", name)
}
