// Package bookmark maintains the ordered key-to-directory bookmark table.
package bookmark

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/hfi/waypoint/internal/errs"
	"github.com/hfi/waypoint/internal/storage"
)

// Entry is a single bookmark
type Entry struct {
	Key  string
	Path string
}

// MappingStore is an insertion-ordered set of bookmarks with unique keys.
// The zero value is an empty store.
type MappingStore struct {
	entries []Entry
}

// FromRecords builds a store from persisted records, rejecting records that
// could not have been produced by Add.
func FromRecords(records []storage.Mapping) (*MappingStore, error) {
	s := &MappingStore{entries: make([]Entry, 0, len(records))}
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		if err := ValidateKey(r.Key); err != nil {
			return nil, errs.Internal(err, "mapping %d", i)
		}
		if _, dup := seen[r.Key]; dup {
			return nil, errs.Internal(nil, "mapping %d: duplicate key %q", i, r.Key)
		}
		if !filepath.IsAbs(r.Path) {
			return nil, errs.Internal(nil, "mapping %d: path %q is not absolute", i, r.Path)
		}
		seen[r.Key] = struct{}{}
		s.entries = append(s.entries, Entry{Key: r.Key, Path: r.Path})
	}
	return s, nil
}

// Records returns the persisted form of the store
func (s *MappingStore) Records() []storage.Mapping {
	records := make([]storage.Mapping, len(s.entries))
	for i, e := range s.entries {
		records[i] = storage.Mapping{Key: e.Key, Path: e.Path}
	}
	return records
}

// ValidateKey checks the bookmark key grammar: non-empty, no whitespace and
// no path separators.
func ValidateKey(key string) error {
	if key == "" {
		return errs.Usage("bookmark key must not be empty")
	}
	for _, r := range key {
		if unicode.IsSpace(r) {
			return errs.Usage("bookmark key %q must not contain whitespace", key)
		}
		if r == '/' || r == filepath.Separator {
			return errs.Usage("bookmark key %q must not contain path separators", key)
		}
	}
	return nil
}

// Add bookmarks path under key. An existing key keeps its position and has its
// path replaced. Unless force is set, path must be an existing directory.
func (s *MappingStore) Add(key, path string, force bool) (Entry, error) {
	if err := ValidateKey(key); err != nil {
		return Entry{}, err
	}
	resolved, err := Canonicalize(path, force)
	if err != nil {
		return Entry{}, err
	}

	entry := Entry{Key: key, Path: resolved}
	if i := s.indexOf(key); i >= 0 {
		s.entries[i] = entry
		return entry, nil
	}
	s.entries = append(s.entries, entry)
	return entry, nil
}

// List returns a copy of all entries in storage order
func (s *MappingStore) List() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Lookup returns the entry for key
func (s *MappingStore) Lookup(key string) (Entry, bool) {
	if i := s.indexOf(key); i >= 0 {
		return s.entries[i], true
	}
	return Entry{}, false
}

// Remove deletes the entry named by identifier, which is either a decimal
// position in the current list or a key. Positions win over keys that
// happen to be numeric.
func (s *MappingStore) Remove(identifier string) (Entry, error) {
	i, ok := s.Resolve(identifier)
	if !ok {
		return Entry{}, errs.Selection("no bookmark matches %q", identifier)
	}
	removed := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return removed, nil
}

// Len returns the number of bookmarks
func (s *MappingStore) Len() int {
	return len(s.entries)
}

// Resolve returns the position named by identifier, trying it as a decimal
// index first and then as a key
func (s *MappingStore) Resolve(identifier string) (int, bool) {
	if isDecimal(identifier) {
		if n, err := strconv.Atoi(identifier); err == nil && n < len(s.entries) {
			return n, true
		}
	}
	i := s.indexOf(identifier)
	return i, i >= 0
}

func (s *MappingStore) indexOf(key string) int {
	for i, e := range s.entries {
		if e.Key == key {
			return i
		}
	}
	return -1
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Canonicalize resolves path to an absolute path with symlinks evaluated.
// When allowMissing is set a path that does not exist is returned in its
// cleaned absolute form; otherwise it must be an existing directory.
func Canonicalize(path string, allowMissing bool) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errs.Usage("path must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errs.Internal(err, "resolve %q", path)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "", errs.Internal(err, "resolve %q", abs)
		}
		if allowMissing {
			return abs, nil
		}
		return "", errs.Selection("path does not exist: %s", abs)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", errs.Internal(err, "stat %q", resolved)
	}
	if !info.IsDir() && !allowMissing {
		return "", errs.Selection("path is not a directory: %s", resolved)
	}
	return resolved, nil
}
