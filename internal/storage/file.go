package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/warehouse-twin/backend/internal/flock"
	"github.com/warehouse-twin/backend/internal/models"
)

// LockTimeout is the maximum time Save waits for another writer's file lock.
const LockTimeout = 5 * time.Second

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// FileStore keeps the whole collection in one JSON document on disk.
type FileStore struct {
	path string
	log  zerolog.Logger
}

// NewFileStore creates a FileStore writing to path, creating its directory.
func NewFileStore(path string, logger zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileStore{
		path: path,
		log:  logger.With().Str("component", "storage").Str("driver", DriverFile).Logger(),
	}, nil
}

// Path returns the layout document path.
func (s *FileStore) Path() string { return s.path }

// Load reads the layout document. A missing file loads as empty; an
// unreadable or malformed file is logged and also loads as empty.
func (s *FileStore) Load(ctx context.Context) ([]models.Layout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyCollection(), nil
		}
		s.log.Warn().Err(err).Str("path", s.path).Msg("layout file unreadable, loading empty collection")
		return emptyCollection(), nil
	}

	layouts, err := decodeLayouts(data, s.log.With().Str("path", s.path).Logger())
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("layout file corrupt, loading empty collection")
		return emptyCollection(), nil
	}
	return layouts, nil
}

// Save writes the collection to a temporary file and renames it over the
// layout document while holding the writer lock.
func (s *FileStore) Save(ctx context.Context, layouts []models.Layout) error {
	data, err := encodeLayouts(layouts)
	if err != nil {
		return err
	}

	lock, err := flock.Acquire(ctx, s.path+".lock", LockTimeout)
	if err != nil {
		return fmt.Errorf("locking layout file: %w", err)
	}
	defer func() { _ = lock.Release() }()

	if err := atomicWrite(s.path, data, filePerm); err != nil {
		return fmt.Errorf("saving layouts: %w", err)
	}
	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error { return nil }

// atomicWrite writes data to path via a synced temp file and rename, so a
// concurrent reader sees either the old or the new document.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm) //#nosec G304 -- path is built from configured data dir
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
