// Package msalcache persists the MSAL token cache to a single file on disk.
// The blob is opaque: it is produced and consumed exclusively by the MSAL
// library's serialization format. This is a leaf package so auth/ stays free
// of filesystem concerns.
//
// Known limitation: the cache file is shared last-writer-wins. Concurrent
// processes writing it without coordination can race; there is no file
// locking.
package msalcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
)

// FilePerms restricts the cache file to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the cache directory.
const DirPerms = 0o700

// Store is a file-backed implementation of MSAL's cache.ExportReplace.
// MSAL calls Replace before reading its in-memory cache and Export only
// after an acquisition that changed its state, so the file is written
// once per state change, never per call.
type Store struct {
	path   string
	logger *slog.Logger
}

// New creates a Store persisting to the given path.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{path: path, logger: logger}
}

// Replace loads the serialized cache blob from disk into MSAL's in-memory
// cache. A missing file means no cached session and is not an error. An
// unreadable or corrupt file must never block authentication: it is logged
// and treated as absent, leaving the in-memory cache empty.
func (s *Store) Replace(_ context.Context, c cache.Unmarshaler, _ cache.ReplaceHints) error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		s.logger.Warn("could not read token cache, proceeding without it",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)

		return nil
	}

	if len(data) == 0 {
		return nil
	}

	if err := c.Unmarshal(data); err != nil {
		s.logger.Warn("token cache is corrupt, proceeding without it",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// Export writes the serialized cache blob to disk atomically (write-to-temp
// + fsync + rename) with 0600 permissions, creating the directory if needed.
// Never logs cache contents.
func (s *Store) Export(_ context.Context, c cache.Marshaler, _ cache.ExportHints) error {
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("msalcache: serializing: %w", err)
	}

	dir := filepath.Dir(s.path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("msalcache: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".msalcache-*.tmp")
	if err != nil {
		return fmt.Errorf("msalcache: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	// Clean up temp file on any error path.
	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := os.Chmod(tmpPath, FilePerms); err != nil {
		tmp.Close()
		return fmt.Errorf("msalcache: setting permissions: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("msalcache: writing: %w", err)
	}

	// Flush to stable storage before rename so a power loss between close
	// and rename cannot leave an empty or partial cache file at the final path.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("msalcache: syncing: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("msalcache: closing: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("msalcache: renaming: %w", err)
	}

	success = true

	s.logger.Debug("token cache persisted", slog.String("path", s.path))

	return nil
}
