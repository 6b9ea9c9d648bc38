// Package audiostore keeps generated audio in a local directory that the HTTP server
// serves back to clients.
package audiostore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/visionvoice/internal/core"
	"github.com/book-expert/visionvoice/internal/fileutil"
)

const filePermissions = 0o600

// Static errors.
var (
	ErrInvalidKey = errors.New("invalid audio key")
	ErrKeyExists  = errors.New("audio key already exists")
)

// FileStore implements core.ObjectStore on a directory.
type FileStore struct {
	dir    string
	prefix string
	log    *logger.Logger
}

// NewFileStore creates dir if needed. Only audio files whose names start with prefix
// can be stored, served or pruned; an empty prefix allows any audio file name.
func NewFileStore(dir, prefix string, log *logger.Logger) (*FileStore, error) {
	err := fileutil.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio directory '%s': %w", dir, err)
	}

	return &FileStore{dir: dir, prefix: prefix, log: log}, nil
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string {
	return s.dir
}

// Upload writes data to a new file named key. Existing files are never overwritten.
func (s *FileStore) Upload(_ context.Context, key string, data []byte) error {
	path, err := s.pathFor(key)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePermissions)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: '%s'", ErrKeyExists, key)
		}

		return fmt.Errorf("failed to create audio file '%s': %w", path, err)
	}

	_, writeErr := file.Write(data)
	closeErr := file.Close()

	if writeErr != nil {
		_ = os.Remove(path)

		return fmt.Errorf("failed to write audio file '%s': %w", path, writeErr)
	}

	if closeErr != nil {
		_ = os.Remove(path)

		return fmt.Errorf("failed to close audio file '%s': %w", path, closeErr)
	}

	return nil
}

// Download reads the file named key. Missing files yield core.ErrNotFound.
func (s *FileStore) Download(_ context.Context, key string) ([]byte, error) {
	path, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: '%s'", core.ErrNotFound, key)
		}

		return nil, fmt.Errorf("failed to read audio file '%s': %w", path, err)
	}

	return data, nil
}

// Prune deletes the oldest generated files so that at most keepLatest remain.
// keepLatest <= 0 disables pruning. It returns the number of files removed.
func (s *FileStore) Prune(keepLatest int) (int, error) {
	if keepLatest <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list audio directory '%s': %w", s.dir, err)
	}

	type generated struct {
		name    string
		modUnix int64
	}

	files := make([]generated, 0, len(entries))

	for _, entry := range entries {
		if !entry.Type().IsRegular() || ValidateKey(s.prefix, entry.Name()) != nil {
			continue
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			continue
		}

		files = append(files, generated{name: entry.Name(), modUnix: info.ModTime().UnixNano()})
	}

	if len(files) <= keepLatest {
		return 0, nil
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modUnix > files[j].modUnix
	})

	removed := 0

	for _, file := range files[keepLatest:] {
		removeErr := os.Remove(filepath.Join(s.dir, file.name))
		if removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			s.log.Warn("Could not remove old audio file %s: %v", file.name, removeErr)

			continue
		}

		removed++
	}

	return removed, nil
}

// ValidateKey accepts only plain audio file names that start with prefix.
func ValidateKey(prefix, key string) error {
	if !fileutil.IsPlainName(key) || !strings.HasPrefix(key, prefix) || !fileutil.IsAudioFile(key) {
		return fmt.Errorf("%w: '%s'", ErrInvalidKey, key)
	}

	return nil
}

// pathFor resolves key inside the store directory.
func (s *FileStore) pathFor(key string) (string, error) {
	err := ValidateKey(s.prefix, key)
	if err != nil {
		return "", err
	}

	return filepath.Join(s.dir, key), nil
}
