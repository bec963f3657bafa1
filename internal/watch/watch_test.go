package watch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/capmatch/internal/output"
)

// ---------------------------------------------------------------------------
// Debouncer
// ---------------------------------------------------------------------------

func TestDebouncer_SingleEvent(t *testing.T) {
	var callCount atomic.Int32
	var lastPaths atomic.Value

	d := NewDebouncer(50*time.Millisecond, func(paths []string) {
		callCount.Add(1)
		lastPaths.Store(paths)
	})
	defer d.Stop()

	d.Trigger("a.yaml")

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), callCount.Load())
	assert.Equal(t, []string{"a.yaml"}, lastPaths.Load())
}

func TestDebouncer_MultipleEventsCoalesced(t *testing.T) {
	var callCount atomic.Int32
	var lastPaths atomic.Value

	d := NewDebouncer(100*time.Millisecond, func(paths []string) {
		callCount.Add(1)
		lastPaths.Store(paths)
	})
	defer d.Stop()

	for range 10 {
		d.Trigger("b.yaml")
		d.Trigger("a.yaml")
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(1), callCount.Load())
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, lastPaths.Load(), "distinct paths, sorted")
}

func TestDebouncer_PendingResetAfterFire(t *testing.T) {
	var mu sync.Mutex

	var calls [][]string

	d := NewDebouncer(30*time.Millisecond, func(paths []string) {
		mu.Lock()
		calls = append(calls, paths)
		mu.Unlock()
	})
	defer d.Stop()

	d.Trigger("first.yaml")
	time.Sleep(100 * time.Millisecond)
	d.Trigger("second.yaml")
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, [][]string{{"first.yaml"}, {"second.yaml"}}, calls)
}

func TestDebouncer_Stop(t *testing.T) {
	var callCount atomic.Int32

	d := NewDebouncer(50*time.Millisecond, func(_ []string) {
		callCount.Add(1)
	})

	d.Trigger("a.yaml")
	d.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), callCount.Load())
}

// ---------------------------------------------------------------------------
// isRelevant
// ---------------------------------------------------------------------------

func TestIsRelevant(t *testing.T) {
	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"yaml write", "app.yaml", fsnotify.Write, true},
		{"yml write", "app.yml", fsnotify.Write, true},
		{"toml write", "cache.TOML", fsnotify.Write, true},
		{"create event", "new.yaml", fsnotify.Create, true},
		{"remove event", "old.yaml", fsnotify.Remove, true},
		{"rename event", "renamed.yaml", fsnotify.Rename, true},
		{"other extension", "notes.txt", fsnotify.Write, false},
		{"hidden file", ".hidden.yaml", fsnotify.Write, false},
		{"swap file", "file.swp", fsnotify.Write, false},
		{"backup tilde", "file.yaml~", fsnotify.Write, false},
		{"emacs hash", "#file.yaml", fsnotify.Write, false},
		{"zero op", "file.yaml", 0, false},
		{"chmod only", "file.yaml", fsnotify.Chmod, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := fsnotify.Event{Name: tt.path, Op: tt.op}
			assert.Equal(t, tt.want, isRelevant(event))
		})
	}
}

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

func TestAddRecursive_SkipsHiddenDirs(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "services", "db"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git", "objects"), 0o755))

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, addRecursive(watcher, dir))

	watched := make(map[string]bool)
	for _, p := range watcher.WatchList() {
		watched[p] = true
	}

	assert.True(t, watched[dir])
	assert.True(t, watched[filepath.Join(dir, "services")])
	assert.True(t, watched[filepath.Join(dir, "services", "db")])
	assert.False(t, watched[filepath.Join(dir, ".git")])
	assert.False(t, watched[filepath.Join(dir, ".git", "objects")])
}

func TestAddPaths(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "more")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	file := filepath.Join(t.TempDir(), "app.yaml")
	require.NoError(t, os.WriteFile(file, []byte("resource: {}\n"), 0o600))

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()

	ws, err := addPaths(watcher, []string{dir, file})
	require.NoError(t, err)

	assert.True(t, ws.covers(filepath.Join(sub, "x.yaml")))
	assert.True(t, ws.covers(file))
	assert.False(t, ws.covers(filepath.Join(filepath.Dir(file), "other.yaml")), "sibling of a watched file")
	assert.False(t, ws.covers(dir+"-other/x.yaml"))

	_, err = addPaths(watcher, []string{"/nonexistent/dir/12345"})
	require.Error(t, err)
}

func TestWatchSet_Accepts(t *testing.T) {
	dir := t.TempDir()

	named := filepath.Join(t.TempDir(), "capabilities.conf")
	require.NoError(t, os.WriteFile(named, []byte("resource: {}\n"), 0o600))

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer watcher.Close()

	ws, err := addPaths(watcher, []string{dir, named})
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		op   fsnotify.Op
		want bool
	}{
		{"named file any extension", named, fsnotify.Write, true},
		{"named file replaced", named, fsnotify.Create, true},
		{"named file chmod", named, fsnotify.Chmod, false},
		{"sibling of named file", filepath.Join(filepath.Dir(named), "other.conf"), fsnotify.Write, false},
		{"manifest in watched dir", filepath.Join(dir, "app.yaml"), fsnotify.Write, true},
		{"other file in watched dir", filepath.Join(dir, "app.conf"), fsnotify.Write, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ws.accepts(fsnotify.Event{Name: tt.path, Op: tt.op}))
		})
	}
}

// ---------------------------------------------------------------------------
// Run (integration)
// ---------------------------------------------------------------------------

func okResult(reports ...output.Report) *RunResult {
	return &RunResult{Manifests: 1, Reports: reports}
}

func TestRun_GracefulShutdown(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())

	var runCount atomic.Int32

	opts := DefaultOptions()
	opts.Paths = []string{dir}
	opts.Debounce = 50 * time.Millisecond
	opts.Out = io.Discard

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, opts, func(_ context.Context) (*RunResult, error) {
			runCount.Add(1)
			return okResult(), nil
		})
	}()

	time.Sleep(200 * time.Millisecond)
	assert.GreaterOrEqual(t, runCount.Load(), int32(1))

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not shut down in time")
	}
}

// syncBuffer guards a bytes.Buffer written by the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func TestRun_FileChangeReportsChanges(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("resource: {}\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runCount atomic.Int32

	out := &syncBuffer{}

	opts := DefaultOptions()
	opts.Paths = []string{manifest}
	opts.Debounce = 50 * time.Millisecond
	opts.ShowDiff = true
	opts.Out = out

	satisfied := output.Report{Namespace: "db", Requirement: "db", Results: []output.Result{{ID: 1}}}
	unsatisfied := output.Report{Namespace: "db", Requirement: "db"}

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, opts, func(_ context.Context) (*RunResult, error) {
			if runCount.Add(1) == 1 {
				return okResult(satisfied), nil
			}

			return okResult(unsatisfied), nil
		})
	}()

	time.Sleep(200 * time.Millisecond)
	initialRuns := runCount.Load()

	require.NoError(t, os.WriteFile(manifest, []byte("resource: {name: x}\n"), 0o600))

	time.Sleep(300 * time.Millisecond)
	assert.Greater(t, runCount.Load(), initialRuns, "file change should trigger a new run")
	assert.Contains(t, out.String(), "(1 manifests, 1 requirements, 1 unsatisfied)")
	assert.Contains(t, out.String(), "! unsatisfied db: no providers left")
	assert.Contains(t, out.String(), "--- previous")
	assert.Contains(t, out.String(), "+  results: []")

	cancel()
	<-done
}

func TestRun_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte("resource: {}\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runCount atomic.Int32

	opts := DefaultOptions()
	opts.Paths = []string{manifest}
	opts.Debounce = 50 * time.Millisecond
	opts.Out = io.Discard

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, opts, func(_ context.Context) (*RunResult, error) {
			runCount.Add(1)
			return okResult(), nil
		})
	}()

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o600))
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, int32(1), runCount.Load())

	cancel()
	<-done
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, 500*time.Millisecond, opts.Debounce)
	assert.NotNil(t, opts.Logger)
	assert.NotNil(t, opts.Out)
}

func TestRun_InvalidPath(t *testing.T) {
	opts := DefaultOptions()
	opts.Paths = []string{"/nonexistent/manifests/12345"}
	opts.Out = io.Discard

	err := Run(context.Background(), opts, func(_ context.Context) (*RunResult, error) {
		return okResult(), nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watching")
}

func TestRun_RunFuncError(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())

	out := &syncBuffer{}

	opts := DefaultOptions()
	opts.Paths = []string{dir}
	opts.Debounce = 50 * time.Millisecond
	opts.Out = out

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, opts, func(_ context.Context) (*RunResult, error) {
			return nil, fmt.Errorf("manifest error")
		})
	}()

	time.Sleep(200 * time.Millisecond)
	assert.Contains(t, out.String(), "ERROR: manifest error")

	cancel()
	<-done
}
