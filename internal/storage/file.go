package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rewired-gh/humanbattery/internal/logger"
)

// FileStore keeps the profile in a single JSON file.
type FileStore struct {
	mu              sync.Mutex
	filePath        string
	filePermissions os.FileMode
	dirPermissions  os.FileMode
}

// NewFileStore creates a store at filePath. An empty path uses the user
// config directory.
func NewFileStore(filePath string, filePermissions, dirPermissions os.FileMode) *FileStore {
	if filePath == "" {
		filePath = defaultDataPath("profile.json")
	}
	return &FileStore{
		filePath:        filePath,
		filePermissions: filePermissions,
		dirPermissions:  dirPermissions,
	}
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.filePath
}

// Load reads the profile file. A missing file is not an error.
func (s *FileStore) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// A leftover temp file means a save was interrupted before the rename;
	// the main file is still the last complete save.
	tempPath := s.filePath + ".tmp"
	if _, err := os.Stat(tempPath); err == nil {
		logger.Warn("Removing stale temp file %s", tempPath)
		_ = os.Remove(tempPath)
	}

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		logger.Debug("No profile at %s, starting fresh", s.filePath)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Save writes the profile through a temp file and a rename.
func (s *FileStore) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, s.dirPermissions); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return writeAtomic(s.filePath, data, s.filePermissions)
}

// Close is a no-op; files are not held open between calls.
func (s *FileStore) Close() error {
	return nil
}
