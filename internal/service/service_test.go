package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/hfi/waypoint/internal/audit"
	"github.com/hfi/waypoint/internal/config"
	"github.com/hfi/waypoint/internal/errs"
	"github.com/hfi/waypoint/internal/metrics"
	"github.com/hfi/waypoint/internal/storage"
)

// MockStore wraps a MemoryStore and injects errors
type MockStore struct {
	*storage.MemoryStore
	loadErr    error
	saveErr    error
	closeErr   error
	saveCalls  int
	closeCalls int
}

func NewMockStore() *MockStore {
	return &MockStore{MemoryStore: storage.NewMemoryStore()}
}

func (m *MockStore) LoadMappings(ctx context.Context) ([]storage.Mapping, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.MemoryStore.LoadMappings(ctx)
}

func (m *MockStore) SaveMappings(ctx context.Context, mappings []storage.Mapping) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	return m.MemoryStore.SaveMappings(ctx, mappings)
}

func (m *MockStore) LoadHistory(ctx context.Context) (storage.HistoryState, error) {
	if m.loadErr != nil {
		return storage.HistoryState{}, m.loadErr
	}
	return m.MemoryStore.LoadHistory(ctx)
}

func (m *MockStore) SaveHistory(ctx context.Context, state storage.HistoryState) error {
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	return m.MemoryStore.SaveHistory(ctx, state)
}

func (m *MockStore) Close() error {
	m.closeCalls++
	return m.closeErr
}

// TestMockStore_Interface ensures MockStore implements storage.Store
func TestMockStore_Interface(t *testing.T) {
	var _ storage.Store = (*MockStore)(nil)
}

func canonicalDirs(t *testing.T, names ...string) []string {
	t.Helper()
	base, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	dirs := make([]string, len(names))
	for i, n := range names {
		dirs[i] = filepath.Join(base, n)
		if err := os.Mkdir(dirs[i], 0750); err != nil {
			t.Fatal(err)
		}
	}
	return dirs
}

func newTestService(t *testing.T) (*Service, *MockStore, *metrics.Metrics) {
	t.Helper()
	store := NewMockStore()
	m := metrics.New()
	svc := New(Options{
		Store:        store,
		LockPath:     filepath.Join(t.TempDir(), ".lock"),
		Metrics:      m,
		Logger:       zerolog.Nop(),
		InvocationID: "test",
	})
	return svc, store, m
}

func TestService_AddListRemove(t *testing.T) {
	ctx := context.Background()
	svc, _, m := newTestService(t)
	dirs := canonicalDirs(t, "a", "b")

	if _, err := svc.Add(ctx, "a", dirs[0], false); err != nil {
		t.Fatalf("Add(a) error: %v", err)
	}
	if _, err := svc.Add(ctx, "b", dirs[1], false); err != nil {
		t.Fatalf("Add(b) error: %v", err)
	}

	entries, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(entries) != 2 || entries[0].Key != "a" || entries[1].Key != "b" {
		t.Fatalf("List() = %+v", entries)
	}

	removed, err := svc.Remove(ctx, "0")
	if err != nil {
		t.Fatalf("Remove(0) error: %v", err)
	}
	if removed.Key != "a" {
		t.Errorf("Remove(0) = %+v", removed)
	}

	entries, _ = svc.List(ctx)
	if len(entries) != 1 || entries[0].Key != "b" {
		t.Errorf("List() after remove = %+v", entries)
	}

	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("add", "ok")); got != 2 {
		t.Errorf("add/ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Bookmarks); got != 1 {
		t.Errorf("bookmarks gauge = %v, want 1", got)
	}
}

func TestService_AddRejectedDoesNotSave(t *testing.T) {
	ctx := context.Background()
	svc, store, m := newTestService(t)
	dirs := canonicalDirs(t, "a")

	_, err := svc.Add(ctx, "bad key", dirs[0], false)
	if errs.ExitCode(err) != 64 {
		t.Fatalf("Add(bad key) exit code = %d, want 64 (err %v)", errs.ExitCode(err), err)
	}
	if store.saveCalls != 0 {
		t.Errorf("rejected Add saved %d times", store.saveCalls)
	}
	if got := testutil.ToFloat64(m.OperationsTotal.WithLabelValues("add", "usage")); got != 1 {
		t.Errorf("add/usage = %v, want 1", got)
	}
}

func TestService_RemoveUnknown(t *testing.T) {
	svc, store, _ := newTestService(t)

	_, err := svc.Remove(context.Background(), "nothing")
	if errs.ExitCode(err) != 2 {
		t.Errorf("Remove(nothing) exit code = %d, want 2", errs.ExitCode(err))
	}
	if store.saveCalls != 0 {
		t.Error("failed Remove should not save")
	}
}

func TestService_GoAndNavigate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	dirs := canonicalDirs(t, "first", "second", "third")

	for i, key := range []string{"first", "second", "third"} {
		if _, err := svc.Add(ctx, key, dirs[i], false); err != nil {
			t.Fatal(err)
		}
		got, err := svc.Go(ctx, key)
		if err != nil {
			t.Fatalf("Go(%q) error: %v", key, err)
		}
		if got != dirs[i] {
			t.Errorf("Go(%q) = %q, want %q", key, got, dirs[i])
		}
	}

	got, err := svc.Back(ctx, 2)
	if err != nil {
		t.Fatalf("Back(2) error: %v", err)
	}
	if got != dirs[0] {
		t.Errorf("Back(2) = %q, want %q", got, dirs[0])
	}

	env, err := svc.Env(ctx)
	if err != nil {
		t.Fatalf("Env() error: %v", err)
	}
	if env.Current != dirs[0] || env.Previous != "" || env.Next != dirs[1] {
		t.Errorf("Env() = %+v", env)
	}

	// branching drops the forward entries
	if _, err := svc.Go(ctx, "second"); err != nil {
		t.Fatal(err)
	}
	env, _ = svc.Env(ctx)
	if env.Current != dirs[1] || env.Previous != dirs[0] || env.Next != "" {
		t.Errorf("Env() after branch = %+v", env)
	}

	if _, err := svc.Forward(ctx, 1); errs.ExitCode(err) != 2 {
		t.Errorf("Forward(1) at tail exit code = %d, want 2", errs.ExitCode(err))
	}
}

func TestService_GoUnknownKey(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.Go(context.Background(), "missing"); !errs.Is(err, errs.KindSelection) {
		t.Errorf("Go(missing) error = %v, want selection error", err)
	}
}

func TestService_NavigationOnEmptyHistory(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t)

	if _, err := svc.Back(ctx, 1); errs.ExitCode(err) != 2 {
		t.Errorf("Back(1) exit code = %d, want 2", errs.ExitCode(err))
	}
	if _, err := svc.Forward(ctx, 1); errs.ExitCode(err) != 2 {
		t.Errorf("Forward(1) exit code = %d, want 2", errs.ExitCode(err))
	}
	if store.saveCalls != 0 {
		t.Error("failed navigation should not save")
	}

	env, err := svc.Env(ctx)
	if err != nil {
		t.Fatalf("Env() error: %v", err)
	}
	if env != (EnvState{}) {
		t.Errorf("Env() on empty history = %+v", env)
	}
}

func TestService_InvalidStepCount(t *testing.T) {
	svc, _, _ := newTestService(t)
	for _, n := range []int{0, -1} {
		if _, err := svc.Back(context.Background(), n); errs.ExitCode(err) != 64 {
			t.Errorf("Back(%d) exit code = %d, want 64", n, errs.ExitCode(err))
		}
	}
}

func TestService_Hist(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	for _, p := range []string{"/h1", "/h2", "/h3", "/h4", "/h5"} {
		if _, err := svc.Visit(ctx, p); err != nil {
			t.Fatalf("Visit(%q) error: %v", p, err)
		}
	}

	rows, err := svc.Hist(ctx, 2, 1)
	if err != nil {
		t.Fatalf("Hist() error: %v", err)
	}
	if len(rows) != 3 || rows[0].Index != 2 || rows[2].Index != 4 || !rows[2].Current {
		t.Errorf("Hist(2, 1) = %+v", rows)
	}

	if _, err := svc.Hist(ctx, -1, 0); !errs.Is(err, errs.KindUsage) {
		t.Errorf("Hist(-1, 0) error = %v, want usage error", err)
	}
}

func TestService_StorageErrors(t *testing.T) {
	ctx := context.Background()
	dirs := canonicalDirs(t, "a")

	svc, store, _ := newTestService(t)
	store.loadErr = errors.New("disk on fire")
	if _, err := svc.List(ctx); errs.ExitCode(err) != 70 {
		t.Errorf("List() with load error exit code = %d, want 70", errs.ExitCode(err))
	}

	svc, store, _ = newTestService(t)
	store.saveErr = errors.New("read-only")
	_, err := svc.Add(ctx, "a", dirs[0], false)
	if errs.ExitCode(err) != 70 {
		t.Errorf("Add() with save error exit code = %d, want 70", errs.ExitCode(err))
	}
	if !strings.Contains(err.Error(), "read-only") {
		t.Errorf("error should carry the cause: %v", err)
	}
}

func TestService_CorruptStateIsInternal(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "history.json"), []byte("{garbage"), 0600); err != nil {
		t.Fatal(err)
	}

	svc := New(Options{Store: storage.NewFileStore(filepath.Join(root, "mappings.json"), filepath.Join(root, "history.json"))})
	_, err := svc.Visit(ctx, "/x")
	if errs.ExitCode(err) != 70 {
		t.Fatalf("Visit() on corrupt history exit code = %d, want 70", errs.ExitCode(err))
	}

	// the corrupt file is left in place rather than reset
	data, _ := os.ReadFile(filepath.Join(root, "history.json"))
	if string(data) != "{garbage" {
		t.Errorf("corrupt history was overwritten: %q", data)
	}
}

func TestService_Audit(t *testing.T) {
	ctx := context.Background()
	logFile := filepath.Join(t.TempDir(), "audit.log")
	a, err := audit.NewLogger(audit.Config{Enabled: true, Level: "verbose", Output: logFile, Format: "json"})
	if err != nil {
		t.Fatal(err)
	}
	dirs := canonicalDirs(t, "a")

	svc := New(Options{Store: storage.NewMemoryStore(), Audit: a, InvocationID: "inv-42"})
	svc.Add(ctx, "a", dirs[0], false)
	svc.Add(ctx, "a", dirs[0], false)
	svc.Go(ctx, "a")
	svc.Remove(ctx, "a")
	if err := svc.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{"bookmark_added", "bookmark_updated", "history_visited", "bookmark_removed", "inv-42"} {
		if !strings.Contains(content, want) {
			t.Errorf("audit log missing %q:\n%s", want, content)
		}
	}
}

func TestService_CloseWritesMetrics(t *testing.T) {
	store := NewMockStore()
	textfile := filepath.Join(t.TempDir(), "waypoint.prom")
	svc := New(Options{Store: store, Metrics: metrics.New(), MetricsTextfile: textfile})

	svc.List(context.Background())
	if err := svc.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if store.closeCalls != 1 {
		t.Errorf("store closed %d times", store.closeCalls)
	}

	data, err := os.ReadFile(textfile)
	if err != nil {
		t.Fatalf("metrics textfile not written: %v", err)
	}
	if !strings.Contains(string(data), `waypoint_operations_total{operation="list",result="ok"} 1`) {
		t.Errorf("unexpected metrics:\n%s", data)
	}
}

func TestService_CancelledContext(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.List(ctx); !errs.Is(err, errs.KindInternal) {
		t.Errorf("List() with cancelled context error = %v", err)
	}
}

func TestOpen(t *testing.T) {
	root := filepath.Join(t.TempDir(), "wp")
	paths, err := config.ResolvePaths(root)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Logging.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.Metrics.Textfile = "waypoint.prom"

	svc, err := Open(context.Background(), paths, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if _, err := svc.Visit(context.Background(), root); err != nil {
		t.Fatalf("Visit() error: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	for _, name := range []string{"history.json", "audit.log", "waypoint.prom", ".lock"} {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}
}

func TestOpen_RedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	paths, err := config.ResolvePaths(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Storage.Type = "redis"
	cfg.Storage.Redis.Address = mr.Addr()

	var buf strings.Builder
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	svc, err := Open(context.Background(), paths, cfg, log)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer svc.Close()

	if !strings.Contains(buf.String(), "redis("+mr.Addr()) {
		t.Errorf("debug log should describe the redis store: %s", buf.String())
	}

	dir := t.TempDir()
	if _, err := svc.Visit(context.Background(), dir); err != nil {
		t.Fatalf("Visit() error: %v", err)
	}
	if !mr.Exists("waypoint:history") {
		t.Error("history not written to redis")
	}
}

func TestOpen_AuditFailureReleasesStore(t *testing.T) {
	paths, err := config.ResolvePaths(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Logging.Audit.Enabled = true
	cfg.Logging.Audit.Output = filepath.Join(t.TempDir(), "missing", "audit.log")

	if _, err := Open(context.Background(), paths, cfg, zerolog.Nop()); !errs.Is(err, errs.KindInternal) {
		t.Errorf("Open() error = %v, want internal error", err)
	}
}

func TestReleaseStore(t *testing.T) {
	cause := errs.Internal(errors.New("disk full"), "failed to open audit log")

	store := NewMockStore()
	if err := releaseStore(store, cause); err != cause {
		t.Errorf("releaseStore() = %v, want the original error", err)
	}
	if store.closeCalls != 1 {
		t.Errorf("Close() called %d times, want 1", store.closeCalls)
	}

	store = NewMockStore()
	store.closeErr = errors.New("connection reset")
	err := releaseStore(store, cause)
	if !errs.Is(err, errs.KindInternal) {
		t.Errorf("releaseStore() kind = %v, want internal", errs.KindOf(err))
	}
	for _, want := range []string{"disk full", "connection reset"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("releaseStore() = %q, missing %q", err, want)
		}
	}
}
