// Package history tracks visited directories as a linear list with a movable
// current pointer, like browser back/forward navigation.
//
// Visiting a directory while the pointer is not at the tail discards every
// entry after the pointer before appending.
package history

import (
	"path/filepath"
	"strings"

	"github.com/hfi/waypoint/internal/errs"
	"github.com/hfi/waypoint/internal/storage"
)

// Row is one line of a Window
type Row struct {
	Index   int
	Path    string
	Current bool
}

// History is a visit list plus a pointer. The pointer is a valid index
// whenever the list is non-empty. The zero value is an empty history.
type History struct {
	entries []string
	current int
}

// FromState restores a history from its persisted form
func FromState(state storage.HistoryState) (*History, error) {
	if state.Current == nil {
		if len(state.Entries) != 0 {
			return nil, errs.Internal(nil, "history has %d entries but no current pointer", len(state.Entries))
		}
		return &History{}, nil
	}
	cur := *state.Current
	if cur < 0 || cur >= len(state.Entries) {
		return nil, errs.Internal(nil, "history pointer %d out of range [0, %d)", cur, len(state.Entries))
	}
	for i, p := range state.Entries {
		if !filepath.IsAbs(p) {
			return nil, errs.Internal(nil, "history entry %d: path %q is not absolute", i, p)
		}
	}
	entries := make([]string, len(state.Entries))
	copy(entries, state.Entries)
	return &History{entries: entries, current: cur}, nil
}

// State returns the persisted form of the history
func (h *History) State() storage.HistoryState {
	if len(h.entries) == 0 {
		return storage.HistoryState{}
	}
	entries := make([]string, len(h.entries))
	copy(entries, h.entries)
	cur := h.current
	return storage.HistoryState{Entries: entries, Current: &cur}
}

// Visit records path as the new current entry, dropping any forward entries.
// path is made absolute and cleaned; symlinks are evaluated when it exists.
func (h *History) Visit(path string) (string, error) {
	resolved, err := canonical(path)
	if err != nil {
		return "", err
	}
	h.push(resolved)
	return resolved, nil
}

// push is the truncate, append, advance step of Visit
func (h *History) push(path string) {
	if len(h.entries) > 0 {
		h.entries = h.entries[:h.current+1]
	}
	h.entries = append(h.entries, path)
	h.current = len(h.entries) - 1
}

// Back moves the pointer n steps back and returns the new current entry.
// If fewer than n steps are available nothing moves and ok is false.
func (h *History) Back(n int) (path string, ok bool) {
	return h.move(-n)
}

// Forward moves the pointer n steps forward and returns the new current entry.
// If fewer than n steps are available nothing moves and ok is false.
func (h *History) Forward(n int) (path string, ok bool) {
	return h.move(n)
}

func (h *History) move(delta int) (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	target := h.current + delta
	if target < 0 || target >= len(h.entries) {
		return "", false
	}
	h.current = target
	return h.entries[target], true
}

// Current returns the entry at the pointer
func (h *History) Current() (string, bool) {
	return h.at(h.current)
}

// Next returns the entry one step forward of the pointer
func (h *History) Next() (string, bool) {
	return h.at(h.current + 1)
}

// Previous returns the entry one step back from the pointer
func (h *History) Previous() (string, bool) {
	return h.at(h.current - 1)
}

func (h *History) at(i int) (string, bool) {
	if len(h.entries) == 0 || i < 0 || i >= len(h.entries) {
		return "", false
	}
	return h.entries[i], true
}

// Window returns up to before entries preceding the pointer, the current
// entry and up to after entries following it. Requests reaching past either
// end are clamped. An empty history yields no rows.
func (h *History) Window(before, after int) []Row {
	if len(h.entries) == 0 {
		return nil
	}
	if before < 0 {
		before = 0
	}
	if after < 0 {
		after = 0
	}
	start := max(h.current-before, 0)
	end := len(h.entries) - 1
	if after < end-h.current {
		end = h.current + after
	}

	rows := make([]Row, 0, end-start+1)
	for i := start; i <= end; i++ {
		rows = append(rows, Row{Index: i, Path: h.entries[i], Current: i == h.current})
	}
	return rows
}

// Len returns the number of entries
func (h *History) Len() int {
	return len(h.entries)
}

// Index returns the pointer, or -1 when the history is empty
func (h *History) Index() int {
	if len(h.entries) == 0 {
		return -1
	}
	return h.current
}

func canonical(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errs.Usage("path must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errs.Internal(err, "resolve %q", path)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
