// Package watch maps filesystem changes under the project root onto the
// minimal rebuild: the tasks subscribed to the changed file set, or the
// bundler for scripts.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/assetbuilder/internal/events"
	"git.home.luguber.info/inful/assetbuilder/internal/fileset"
	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

// DefaultDebounce is the per-subscription quiet window.
const DefaultDebounce = 100 * time.Millisecond

// Subscription runs Tasks when a file in FileSet changes.
type Subscription struct {
	FileSet *fileset.FileSet
	Tasks   []string
}

// Options configures a Watcher.
type Options struct {
	Root          string
	Subscriptions []Subscription
	// Scripts changes publish events.BundleRequested instead of tasks.
	Scripts *fileset.FileSet
	// Ignore lists absolute directories whose contents never trigger
	// anything, typically the output directory.
	Ignore   []string
	Bus      *events.Bus
	Debounce time.Duration
	Recorder metrics.Recorder
	Logger   *slog.Logger
}

// Watcher owns the fsnotify watcher for one watch session.
type Watcher struct {
	opts     Options
	fsw      *fsnotify.Watcher
	logger   *slog.Logger
	recorder metrics.Recorder

	mu      sync.Mutex
	pending map[int]*pendingTasks
}

type pendingTasks struct {
	timer *time.Timer
	paths []string
}

// New creates the watcher and registers every directory under the root,
// so changes made after New returns are observed.
func New(opts Options) (*Watcher, error) {
	if opts.Bus == nil {
		return nil, ferrors.ValidationError("bus is required").Build()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "create file watcher").Build()
	}
	w := &Watcher{
		opts:     opts,
		fsw:      fsw,
		logger:   logger.With(slog.String("component", "watch")),
		recorder: metrics.OrNoop(opts.Recorder),
		pending:  make(map[int]*pendingTasks),
	}
	if err := w.addDirsRecursive(opts.Root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes filesystem events until ctx is done. Pending debounced
// task requests are dropped on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stopPending()
	defer func() { _ = w.fsw.Close() }()

	w.logger.Info("Watching for changes", logfields.Path(w.opts.Root))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if ev.Op == fsnotify.Chmod || shouldIgnoreEvent(ev.Name) || w.ignored(ev.Name) {
		return
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := w.addDirsRecursive(ev.Name); err != nil {
				w.logger.Warn("Failed to watch new directory", logfields.Path(ev.Name), logfields.Error(err))
			}
			return
		}
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), logfields.Op(ev.Op.String()))
	w.handlePath(ctx, ev.Name)
}

// handlePath routes one changed absolute path.
func (w *Watcher) handlePath(ctx context.Context, abs string) {
	rel, err := filepath.Rel(w.opts.Root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	name := filepath.ToSlash(rel)
	matched := false

	if w.opts.Scripts != nil && w.opts.Scripts.Match(name) {
		matched = true
		w.recorder.IncWatchEvent("bundle")
		evt := events.BundleRequested{Path: name, RequestedAt: time.Now()}
		if err := w.opts.Bus.Publish(ctx, evt); err != nil {
			w.logger.Warn("Failed to request bundle", logfields.Path(name), logfields.Error(err))
		}
	}

	for i, sub := range w.opts.Subscriptions {
		if !sub.FileSet.Match(name) {
			continue
		}
		matched = true
		w.recorder.IncWatchEvent("tasks")
		w.schedule(ctx, i, name)
	}

	if !matched {
		w.recorder.IncWatchEvent("unmatched")
	}
}

// schedule debounces requests per subscription.
func (w *Watcher) schedule(ctx context.Context, idx int, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pending[idx]
	if !ok {
		p = &pendingTasks{}
		w.pending[idx] = p
	}
	if !slices.Contains(p.paths, name) {
		p.paths = append(p.paths, name)
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(w.opts.Debounce, func() { w.flush(ctx, idx) })
}

func (w *Watcher) flush(ctx context.Context, idx int) {
	w.mu.Lock()
	p, ok := w.pending[idx]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(w.pending, idx)
	w.mu.Unlock()

	sub := w.opts.Subscriptions[idx]
	evt := events.TasksRequested{
		Tasks:       slices.Clone(sub.Tasks),
		Paths:       p.paths,
		FileSet:     sub.FileSet.Name,
		RequestedAt: time.Now(),
	}
	if err := w.opts.Bus.Publish(ctx, evt); err != nil {
		w.logger.Warn("Failed to request tasks", logfields.FileSet(sub.FileSet.Name), logfields.Error(err))
	}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for idx, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, idx)
	}
}

func (w *Watcher) ignored(abs string) bool {
	for _, dir := range w.opts.Ignore {
		if abs == dir || strings.HasPrefix(abs, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) addDirsRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return ferrors.WrapError(err, ferrors.CategoryFileSystem, "watch root").
					WithContext("path", root).
					Build()
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || w.ignored(path)) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger rebuilds.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	// Hidden files, including editor lock files such as .#name
	if strings.HasPrefix(base, ".") {
		return true
	}

	// Editor temp/swap files
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	// vim probes directory permissions with a file named 4913
	return base == "Thumbs.db" || base == "4913"
}
