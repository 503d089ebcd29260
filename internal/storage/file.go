package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hfi/waypoint/internal/errs"
)

// FileStore keeps each document in its own JSON file
type FileStore struct {
	mappingsPath string
	historyPath  string
}

// NewFileStore creates a file-backed store for the given document paths
func NewFileStore(mappingsPath, historyPath string) *FileStore {
	return &FileStore{
		mappingsPath: mappingsPath,
		historyPath:  historyPath,
	}
}

// LoadMappings reads the bookmarks file; a missing file is an empty table
func (f *FileStore) LoadMappings(_ context.Context) ([]Mapping, error) {
	data, err := readFile(f.mappingsPath)
	if err != nil || data == nil {
		return nil, err
	}
	return decodeMappings(data, f.mappingsPath)
}

// SaveMappings rewrites the bookmarks file
func (f *FileStore) SaveMappings(_ context.Context, mappings []Mapping) error {
	data, err := encodeMappings(mappings)
	if err != nil {
		return errs.Internal(err, "failed to encode mappings")
	}
	return writeFileAtomic(f.mappingsPath, data)
}

// LoadHistory reads the history file; a missing file is an empty history
func (f *FileStore) LoadHistory(_ context.Context) (HistoryState, error) {
	data, err := readFile(f.historyPath)
	if err != nil || data == nil {
		return HistoryState{}, err
	}
	return decodeHistory(data, f.historyPath)
}

// SaveHistory rewrites the history file
func (f *FileStore) SaveHistory(_ context.Context, state HistoryState) error {
	data, err := encodeHistory(state)
	if err != nil {
		return errs.Internal(err, "failed to encode history")
	}
	return writeFileAtomic(f.historyPath, data)
}

// Close does nothing; files are never held open between operations
func (f *FileStore) Close() error {
	return nil
}

// readFile returns nil data when the file does not exist. An existing empty
// file is returned as a non-nil empty slice so that it is reported as corrupt.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path comes from the resolved config root
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Internal(err, "failed to read %s", path)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

// writeFileAtomic writes data to a temporary file in the same directory and
// renames it over path
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errs.Internal(err, "failed to create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errs.Internal(err, "failed to create temporary file in %s", dir)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.Internal(err, "failed to write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errs.Internal(err, "failed to sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errs.Internal(err, "failed to close %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		return errs.Internal(err, "failed to chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errs.Internal(err, "failed to replace %s", path)
	}
	return nil
}
