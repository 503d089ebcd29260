// Package service runs one waypoint operation per call: lock, load the
// persisted state, apply the operation, save if it changed, unlock.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/hfi/waypoint/internal/audit"
	"github.com/hfi/waypoint/internal/bookmark"
	"github.com/hfi/waypoint/internal/errs"
	"github.com/hfi/waypoint/internal/history"
	"github.com/hfi/waypoint/internal/lock"
	"github.com/hfi/waypoint/internal/metrics"
	"github.com/hfi/waypoint/internal/storage"
)

// Options configures a Service. Only Store is required.
type Options struct {
	Store storage.Store

	// LockPath is locked for the duration of each operation; empty disables locking
	LockPath string

	Audit           audit.Auditor
	Metrics         *metrics.Metrics
	MetricsTextfile string
	Logger          zerolog.Logger
	InvocationID    string
}

// Service coordinates the bookmark table, the visit history and their
// persistence
type Service struct {
	store           storage.Store
	lockPath        string
	audit           audit.Auditor
	metrics         *metrics.Metrics
	metricsTextfile string
	log             zerolog.Logger
	invocationID    string
}

// EnvState is the history neighbourhood exported to the shell
type EnvState struct {
	Current  string
	Previous string
	Next     string
}

// New creates a service from opts
func New(opts Options) *Service {
	a := opts.Audit
	if a == nil {
		a = audit.NewNopLogger()
	}
	return &Service{
		store:           opts.Store,
		lockPath:        opts.LockPath,
		audit:           a,
		metrics:         opts.Metrics,
		metricsTextfile: opts.MetricsTextfile,
		log:             opts.Logger,
		invocationID:    opts.InvocationID,
	}
}

// Add bookmarks path under key
func (s *Service) Add(ctx context.Context, key, path string, force bool) (bookmark.Entry, error) {
	var entry bookmark.Entry
	err := s.run(ctx, "add", func() error {
		store, err := s.loadMappings(ctx)
		if err != nil {
			return err
		}
		_, existed := store.Lookup(key)

		entry, err = store.Add(key, path, force)
		if err != nil {
			return err
		}
		if err := s.saveMappings(ctx, store); err != nil {
			return err
		}

		index := indexOf(store.List(), key)
		s.audit.LogBookmarkAdded(s.invocationID, entry.Key, entry.Path, index, existed)
		s.log.Debug().Str("key", entry.Key).Str("path", entry.Path).Bool("updated", existed).Msg("bookmark saved")
		return nil
	})
	return entry, err
}

// List returns the bookmarks in storage order
func (s *Service) List(ctx context.Context) ([]bookmark.Entry, error) {
	var entries []bookmark.Entry
	err := s.run(ctx, "list", func() error {
		store, err := s.loadMappings(ctx)
		if err != nil {
			return err
		}
		entries = store.List()
		return nil
	})
	return entries, err
}

// Remove deletes the bookmark named by an index or key
func (s *Service) Remove(ctx context.Context, identifier string) (bookmark.Entry, error) {
	var removed bookmark.Entry
	err := s.run(ctx, "remove", func() error {
		store, err := s.loadMappings(ctx)
		if err != nil {
			return err
		}
		index, _ := store.Resolve(identifier)

		removed, err = store.Remove(identifier)
		if err != nil {
			return err
		}
		if err := s.saveMappings(ctx, store); err != nil {
			return err
		}

		s.audit.LogBookmarkRemoved(s.invocationID, removed.Key, removed.Path, index)
		s.log.Debug().Str("key", removed.Key).Msg("bookmark removed")
		return nil
	})
	return removed, err
}

// Go resolves key and records a visit to its directory
func (s *Service) Go(ctx context.Context, key string) (string, error) {
	var target string
	err := s.run(ctx, "go", func() error {
		store, err := s.loadMappings(ctx)
		if err != nil {
			return err
		}
		entry, ok := store.Lookup(key)
		if !ok {
			return errs.Selection("no bookmark named %q", key)
		}

		target, err = s.visit(ctx, entry.Path)
		return err
	})
	return target, err
}

// Visit records a visit to path
func (s *Service) Visit(ctx context.Context, path string) (string, error) {
	var target string
	err := s.run(ctx, "visit", func() error {
		var err error
		target, err = s.visit(ctx, path)
		return err
	})
	return target, err
}

func (s *Service) visit(ctx context.Context, path string) (string, error) {
	h, err := s.loadHistory(ctx)
	if err != nil {
		return "", err
	}
	target, err := h.Visit(path)
	if err != nil {
		return "", err
	}
	if err := s.saveHistory(ctx, h); err != nil {
		return "", err
	}
	s.audit.LogHistoryVisited(s.invocationID, target, h.Index())
	s.log.Debug().Str("path", target).Int("index", h.Index()).Msg("visited")
	return target, nil
}

// Back moves n steps back in the history and returns the new current entry
func (s *Service) Back(ctx context.Context, n int) (string, error) {
	return s.move(ctx, "back", -n, n)
}

// Forward moves n steps forward in the history and returns the new current entry
func (s *Service) Forward(ctx context.Context, n int) (string, error) {
	return s.move(ctx, "forward", n, n)
}

func (s *Service) move(ctx context.Context, operation string, delta, n int) (string, error) {
	var target string
	err := s.run(ctx, operation, func() error {
		if n < 1 {
			return errs.Usage("%s: step count must be at least 1, got %d", operation, n)
		}
		h, err := s.loadHistory(ctx)
		if err != nil {
			return err
		}

		var ok bool
		if delta < 0 {
			target, ok = h.Back(n)
		} else {
			target, ok = h.Forward(n)
		}
		if !ok {
			return errs.Selection("cannot go %s %d step(s): %d entries, at position %d", operation, n, h.Len(), h.Index())
		}

		if err := s.saveHistory(ctx, h); err != nil {
			return err
		}
		s.audit.LogHistoryMoved(s.invocationID, target, h.Index(), delta)
		return nil
	})
	return target, err
}

// Hist returns the history rows around the current entry
func (s *Service) Hist(ctx context.Context, before, after int) ([]history.Row, error) {
	var rows []history.Row
	err := s.run(ctx, "hist", func() error {
		if before < 0 || after < 0 {
			return errs.Usage("history context must not be negative")
		}
		h, err := s.loadHistory(ctx)
		if err != nil {
			return err
		}
		rows = h.Window(before, after)
		return nil
	})
	return rows, err
}

// Env returns the current, previous and next history entries
func (s *Service) Env(ctx context.Context) (EnvState, error) {
	var env EnvState
	err := s.run(ctx, "env", func() error {
		h, err := s.loadHistory(ctx)
		if err != nil {
			return err
		}
		env.Current, _ = h.Current()
		env.Previous, _ = h.Previous()
		env.Next, _ = h.Next()
		return nil
	})
	return env, err
}

// Close flushes metrics and releases the store and audit log
func (s *Service) Close() error {
	var firstErr error
	if s.metrics != nil && s.metricsTextfile != "" {
		if err := s.metrics.WriteTextfile(s.metricsTextfile); err != nil {
			s.log.Warn().Err(err).Str("textfile", s.metricsTextfile).Msg("failed to write metrics")
		}
	}
	if err := s.store.Close(); err != nil {
		firstErr = err
	}
	if err := s.audit.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// run wraps one operation with locking, timing, metrics and error logging
func (s *Service) run(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()

	err := s.locked(ctx, fn)

	result := "ok"
	if err != nil {
		kind := errs.KindOf(err)
		result = kind.String()
		if kind == errs.KindInternal {
			s.audit.LogError(s.invocationID, err.Error())
			s.log.Error().Err(err).Str("operation", operation).Msg("operation failed")
		} else {
			s.log.Debug().Err(err).Str("operation", operation).Msg("operation rejected")
		}
	}
	if s.metrics != nil {
		s.metrics.RecordOperation(operation, result, time.Since(start).Seconds())
	}
	return err
}

func (s *Service) locked(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return errs.Internal(err, "operation cancelled")
	}
	if s.lockPath == "" {
		return fn()
	}

	l, err := lock.Acquire(s.lockPath)
	if err != nil {
		return errs.Internal(err, "failed to lock state")
	}
	defer func() {
		if err := l.Release(); err != nil {
			s.log.Warn().Err(err).Msg("failed to release lock")
		}
	}()
	return fn()
}

func (s *Service) loadMappings(ctx context.Context) (*bookmark.MappingStore, error) {
	records, err := s.store.LoadMappings(ctx)
	if err != nil {
		return nil, asInternal(err, "failed to load bookmarks")
	}
	store, err := bookmark.FromRecords(records)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SetBookmarks(store.Len())
	}
	return store, nil
}

func (s *Service) saveMappings(ctx context.Context, store *bookmark.MappingStore) error {
	if err := s.store.SaveMappings(ctx, store.Records()); err != nil {
		return asInternal(err, "failed to save bookmarks")
	}
	if s.metrics != nil {
		s.metrics.SetBookmarks(store.Len())
	}
	return nil
}

func (s *Service) loadHistory(ctx context.Context) (*history.History, error) {
	state, err := s.store.LoadHistory(ctx)
	if err != nil {
		return nil, asInternal(err, "failed to load history")
	}
	h, err := history.FromState(state)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.SetHistory(h.Len(), h.Index())
	}
	return h, nil
}

func (s *Service) saveHistory(ctx context.Context, h *history.History) error {
	if err := s.store.SaveHistory(ctx, h.State()); err != nil {
		return asInternal(err, "failed to save history")
	}
	if s.metrics != nil {
		s.metrics.SetHistory(h.Len(), h.Index())
	}
	return nil
}

// asInternal tags untagged storage errors; tagged ones pass through
func asInternal(err error, msg string) error {
	var tagged *errs.Error
	if errors.As(err, &tagged) {
		return err
	}
	return errs.Internal(err, "%s", msg)
}

func indexOf(entries []bookmark.Entry, key string) int {
	for i, e := range entries {
		if e.Key == key {
			return i
		}
	}
	return -1
}
