// Package watcher reloads embedding artifacts when they change on disk, with
// fsnotify and debouncing so a multi-file artifact write triggers one reload.
package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 500 * time.Millisecond

// ArtifactWatcher watches the directory holding embedding artifacts and
// invokes onReload after writes settle. The callback decides whether the new
// artifacts are usable; a failed reload keeps the previous index serving.
type ArtifactWatcher struct {
	basePath string // artifact base path, e.g. /var/kusuri/models/drugs
	onReload func()
	debounce time.Duration

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	timer    *time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger
}

// Option configures an ArtifactWatcher.
type Option func(*ArtifactWatcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *ArtifactWatcher) { w.logger = l }
}

// WithDebounce overrides the settle window before onReload fires.
func WithDebounce(d time.Duration) Option {
	return func(w *ArtifactWatcher) { w.debounce = d }
}

// NewArtifactWatcher creates a watcher for the artifact set rooted at
// basePath. onReload is called after changes settle.
func NewArtifactWatcher(basePath string, onReload func(), opts ...Option) *ArtifactWatcher {
	w := &ArtifactWatcher{
		basePath: basePath,
		onReload: onReload,
		debounce: defaultDebounce,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *ArtifactWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	// Watch the containing directory: artifact files are typically replaced
	// by rename, which drops watches placed on the files themselves.
	dir := filepath.Dir(w.basePath)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	if w.logger != nil {
		w.logger.Debug("artifact watcher starting", zap.String("dir", dir))
	}
	w.mu.Unlock()

	go w.run(ctx)
	return nil
}

func (w *ArtifactWatcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("artifact watcher error", zap.Error(err))
			}
		}
	}
}

// isArtifactFile reports whether a path belongs to the watched artifact set.
func (w *ArtifactWatcher) isArtifactFile(path string) bool {
	base := filepath.Base(w.basePath)
	name := filepath.Base(path)
	if !strings.HasPrefix(name, base) {
		return false
	}
	switch {
	case strings.HasSuffix(name, ".bundle"),
		strings.HasSuffix(name, "_vectors.f32"),
		strings.HasSuffix(name, "_mapping.json"):
		return true
	}
	return false
}

func (w *ArtifactWatcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return
	}
	if !w.isArtifactFile(ev.Name) {
		return
	}
	if w.logger != nil {
		w.logger.Debug("artifact change", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		w.onReload()
	})
}

// Stop stops the watcher. Safe to call more than once.
func (w *ArtifactWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.timer != nil {
			w.timer.Stop()
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
	})
}
