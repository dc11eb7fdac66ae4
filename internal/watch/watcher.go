// Package watch rebuilds a project whenever its sources change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Norgate-AV/extpack/internal/cache"
	"github.com/Norgate-AV/extpack/internal/utils"
)

// DefaultDebounce is how long the tree must be quiet before a rebuild
const DefaultDebounce = 300 * time.Millisecond

// Watcher monitors a project tree and calls a rebuild function after changes
type Watcher struct {
	root     string
	outDir   string
	rebuild  func(ctx context.Context) error
	watcher  *fsnotify.Watcher
	debounce time.Duration
	trigger  chan struct{}

	mu      sync.Mutex
	watched map[string]bool
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// New creates a watcher for root. Changes under outDir are ignored.
func New(root, outDir string, rebuild func(ctx context.Context) error, opts ...Option) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		root:     absRoot,
		outDir:   utils.ResolveUnder(absRoot, outDir),
		rebuild:  rebuild,
		watcher:  fw,
		debounce: DefaultDebounce,
		trigger:  make(chan struct{}, 1),
		watched:  make(map[string]bool),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Run watches until ctx is cancelled. Rebuild errors are logged, not returned.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.addTree(w.root); err != nil {
		return err
	}

	slog.Info("Watching for changes", "root", w.root)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("Watcher error", "error", err)

		case <-w.trigger:
			// Reset/start debounce timer
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				if err := w.rebuild(ctx); err != nil {
					slog.Error("Rebuild failed", "error", err)
				}
			})
		}
	}
}

// handle filters an event and schedules a rebuild when it matters
func (w *Watcher) handle(event fsnotify.Event) {
	if w.ignored(event.Name) {
		return
	}

	// New directories must be watched too
	if event.Op&fsnotify.Create == fsnotify.Create {
		if err := w.addTree(event.Name); err != nil {
			slog.Debug("Could not watch new path", "path", event.Name, "error", err)
		}
	}

	relevant := w.relevant(event)

	if event.Op&fsnotify.Remove == fsnotify.Remove || event.Op&fsnotify.Rename == fsnotify.Rename {
		w.mu.Lock()
		delete(w.watched, event.Name)
		w.mu.Unlock()
	}

	if !relevant {
		return
	}

	slog.Debug("Change detected", "file", event.Name, "op", event.Op.String())
	w.schedule()
}

// schedule requests a rebuild; repeated requests collapse into one
func (w *Watcher) schedule() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// relevant reports whether event can change the fingerprint
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	// A removed or renamed directory takes its sources with it
	w.mu.Lock()
	isDir := w.watched[event.Name]
	w.mu.Unlock()
	if isDir {
		return true
	}

	return utils.HasExtension(event.Name, cache.SourceExtensions)
}

// ignoredDirs are never watched. Neither holds sources of the project itself;
// a change under node_modules reaches the fingerprint on the next rebuild.
var ignoredDirs = []string{"node_modules", ".git"}

// ignored excludes the output directory and ignoredDirs. Every other path the
// fingerprint covers is watched, dot directories included.
func (w *Watcher) ignored(path string) bool {
	if utils.IsWithin(path, w.outDir) {
		return true
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return true
	}

	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if slices.Contains(ignoredDirs, part) {
			return true
		}
	}

	return false
}

// addTree watches dir and every directory below it that is not ignored
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}

		w.mu.Lock()
		w.watched[path] = true
		w.mu.Unlock()
		return nil
	})
}
