package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/capmatch/internal/diff"
	"github.com/hupe1980/capmatch/internal/output"
)

// RunFunc is called each time the watcher triggers a resolution.
type RunFunc func(ctx context.Context) (*RunResult, error)

// RunResult holds the output of a single resolution so the watcher can
// report what changed since the previous one.
type RunResult struct {
	Manifests int
	Reports   []output.Report
}

// Options configures the watch behaviour.
type Options struct {
	// Paths are manifest files or directories. Directories are watched
	// recursively.
	Paths []string

	// Debounce is the quiet period before triggering a new run.
	Debounce time.Duration

	// ShowDiff prints a unified diff of the YAML-rendered reports after
	// every run that changed them.
	ShowDiff bool

	// Color styles diff output.
	Color bool

	// Logger is used for structured logging.
	Logger *slog.Logger

	// Out is the writer for user-facing status messages.
	Out io.Writer
}

// DefaultOptions returns sensible default watch options.
func DefaultOptions() Options {
	return Options{
		Debounce: 500 * time.Millisecond,
		Logger:   slog.Default(),
		Out:      os.Stderr,
	}
}

// session tracks the previous successful run.
type session struct {
	mu   sync.Mutex
	opts Options
	run  RunFunc
	prev []output.Report
	seen bool
}

// Run starts the file watcher and blocks until the context is cancelled
// or a SIGINT/SIGTERM signal is received.
func Run(ctx context.Context, opts Options, runFn RunFunc) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Out == nil {
		opts.Out = io.Discard
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	files, err := addPaths(watcher, opts.Paths)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(opts.Out, "watching %s (debounce=%s)\n", strings.Join(opts.Paths, ", "), opts.Debounce)

	s := &session{opts: opts, run: runFn}
	s.do(sigCtx, "(initial)")

	debouncer := NewDebouncer(opts.Debounce, func(paths []string) {
		s.do(sigCtx, strings.Join(paths, ", "))
	})
	defer debouncer.Stop()

	for {
		select {
		case <-sigCtx.Done():
			fmt.Fprintln(opts.Out, "\nshutting down watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// If a new directory was created, watch it too.
			if event.Has(fsnotify.Create) && files.covers(event.Name) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = addRecursive(watcher, event.Name)
					continue
				}
			}

			if !files.accepts(event) {
				continue
			}

			opts.Logger.Debug("manifest changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			debouncer.Trigger(event.Name)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// do executes a single run and prints the status line and the changes
// since the previous successful run.
func (s *session) do(ctx context.Context, trigger string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Format("15:04:05")

	result, err := s.run(ctx)
	if err != nil {
		fmt.Fprintf(s.opts.Out, "[%s] %s → ERROR: %v\n", now, trigger, err)
		return
	}

	unsatisfied := len(output.Unsatisfied(result.Reports))

	fmt.Fprintf(s.opts.Out, "[%s] %s → OK (%d manifests, %d requirements, %d unsatisfied)\n",
		now, trigger, result.Manifests, len(result.Reports), unsatisfied)

	if s.seen {
		if changes := diff.Compare(s.prev, result.Reports); len(changes) > 0 {
			diff.WriteChanges(s.opts.Out, changes)
		}

		if s.opts.ShowDiff {
			s.writeDiff(result.Reports)
		}
	}

	s.prev = result.Reports
	s.seen = true
}

func (s *session) writeDiff(current []output.Report) {
	before, err := output.SerializeYAML(s.prev)
	if err != nil {
		s.opts.Logger.Error("rendering previous results", slog.String("error", err.Error()))
		return
	}

	after, err := output.SerializeYAML(current)
	if err != nil {
		s.opts.Logger.Error("rendering current results", slog.String("error", err.Error()))
		return
	}

	res, err := diff.Compute(string(before), string(after), diff.DefaultOptions())
	if err != nil {
		s.opts.Logger.Error("computing diff", slog.String("error", err.Error()))
		return
	}

	if res.HasDifferences {
		diff.Write(s.opts.Out, res, s.opts.Color)
	}
}

// watchSet records which explicitly named files are watched through their
// parent directory.
type watchSet struct {
	dirs  map[string]bool
	files map[string]bool
}

// covers reports whether an event path belongs to a watched directory tree
// or is one of the watched files.
func (w watchSet) covers(path string) bool {
	if w.files[path] {
		return true
	}

	for dir := range w.dirs {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

// accepts reports whether event should trigger a run. Explicitly named files
// are accepted whatever their extension; inside watched directories only
// manifest files count.
func (w watchSet) accepts(event fsnotify.Event) bool {
	if w.files[event.Name] {
		return isChange(event)
	}

	return isRelevant(event) && w.covers(event.Name)
}

// addPaths registers every path with watcher. Files are watched through
// their parent directory so that editors replacing the file are noticed.
func addPaths(watcher *fsnotify.Watcher, paths []string) (watchSet, error) {
	ws := watchSet{dirs: make(map[string]bool), files: make(map[string]bool)}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return ws, fmt.Errorf("resolving path %q: %w", p, err)
		}

		info, err := os.Stat(abs)
		if err != nil {
			return ws, fmt.Errorf("watching %q: %w", p, err)
		}

		if info.IsDir() {
			if err := addRecursive(watcher, abs); err != nil {
				return ws, fmt.Errorf("watching directory %q: %w", p, err)
			}

			ws.dirs[abs] = true

			continue
		}

		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			return ws, fmt.Errorf("watching file %q: %w", p, err)
		}

		ws.files[abs] = true
	}

	return ws, nil
}

// addRecursive walks root and adds all directories to the watcher.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			// Skip hidden directories (e.g., .git).
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}

			return watcher.Add(path)
		}

		return nil
	})
}

func isChange(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

// isRelevant filters out events on non-manifest files.
func isRelevant(event fsnotify.Event) bool {
	if !isChange(event) {
		return false
	}

	name := filepath.Base(event.Name)

	// Ignore editor temporary files and hidden files.
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") || strings.HasPrefix(name, "#") {
		return false
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".toml":
		return true
	default:
		return false
	}
}
