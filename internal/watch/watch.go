// Package watch notifies callers when a repository changes on disk, with
// debouncing so bursts of git activity collapse into one notification.
package watch

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mvisser/gitdeck/internal/debounce"
)

const (
	DefaultDebounce = 350 * time.Millisecond
	DefaultThrottle = 5 * time.Second
)

type Options struct {
	// Debounce is the quiet period after the last event before OnChange
	// fires; Throttle caps how long a steady stream of events can delay it.
	// Zero values pick the defaults.
	Debounce time.Duration
	Throttle time.Duration
}

// Watcher reports repository changes through the OnChange callback given to
// Start. Start/Stop pairs may be called repeatedly.
type Watcher struct {
	mu       sync.Mutex
	repoPath string
	onChange func()
	opts     Options

	watcher  *fsnotify.Watcher
	debounce *debounce.Debouncer
	enabled  bool
}

func New(repoPath string, onChange func(), opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Throttle <= 0 {
		opts.Throttle = DefaultThrottle
	}
	return &Watcher{repoPath: repoPath, onChange: onChange, opts: opts}
}

func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.enabled {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	for path := range watchPaths(w.repoPath) {
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := watcher.Add(path); err != nil {
			err := errors.Join(err, watcher.Close())
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
	if w.debounce == nil {
		w.debounce = debounce.NewWithMaxWait(w.opts.Debounce, w.opts.Throttle, w.onChange)
	}
	w.watcher = watcher
	w.enabled = true
	go w.loop(watcher)
	return nil
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
		w.debounce = nil
	}
	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			slog.Error("watcher close", slog.Any("error", err))
		}
		w.watcher = nil
	}
	w.enabled = false
}

func (w *Watcher) Enabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled
}

func (w *Watcher) loop(fsw *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnoreWatchPath(ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			w.schedule()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.enabled || w.debounce == nil {
		return
	}
	w.debounce.Trigger()
}

// watchPaths prefers the .git directory, where every history-changing
// operation leaves a trace, over the whole worktree.
func watchPaths(root string) iter.Seq[string] {
	uniquePaths := map[string]struct{}{}
	if root == "" {
		return maps.Keys(uniquePaths)
	}
	gitDir := filepath.Join(root, ".git")
	if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
		uniquePaths[gitDir] = struct{}{}
		return maps.Keys(uniquePaths)
	}
	uniquePaths[root] = struct{}{}
	return maps.Keys(uniquePaths)
}

// shouldIgnoreWatchPath filters transient files git creates and removes
// constantly while running.
func shouldIgnoreWatchPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".ipc"
}
