package catalog

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	qerrors "github.com/sambeau/quantities/pkg/errors"
)

// DefaultDebounce is how long the watcher waits for writes to settle before
// reloading.
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc receives each reload result. On failure c is nil and err says
// why; the previous collection stays in use.
type ReloadFunc func(c *Collection, err error)

// Watcher reloads a catalog whenever its file or one of its overlays changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	loader   Loader
	onReload ReloadFunc
	logger   *slog.Logger
	debounce time.Duration

	files map[string]bool // absolute paths of catalog files

	mu      sync.Mutex
	reloads uint64
}

// NewWatcher creates a watcher for the loader's files. Nothing is watched
// until Start is called.
func NewWatcher(loader Loader, onReload ReloadFunc) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, qerrors.Wrap("IO-0002", err, map[string]any{"Path": loader.Path})
	}

	logger := loader.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	w := &Watcher{
		watcher:  fsWatcher,
		loader:   loader,
		onReload: onReload,
		logger:   logger,
		debounce: DefaultDebounce,
		files:    make(map[string]bool),
	}
	for _, f := range loader.Files() {
		if abs, err := filepath.Abs(f); err == nil {
			w.files[abs] = true
		}
	}
	return w, nil
}

// SetDebounce changes the settle window. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Reloads returns how many reloads have been attempted.
func (w *Watcher) Reloads() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Start watches the directories holding the catalog files and runs the
// event loop until ctx is cancelled. Directories are watched rather than
// files so that editors which replace files on save are still seen.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return qerrors.Wrap("IO-0002", err, map[string]any{"Path": dir})
		}
		w.logger.Info("watching catalog", "path", dir)
	}

	go w.eventLoop(ctx)
	return nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) eventLoop(ctx context.Context) {
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !w.files[abs] {
				continue
			}

			w.logger.Debug("catalog changed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()

	c, err := w.loader.Load()
	if err != nil {
		w.logger.Error("catalog reload failed", "path", w.loader.Path, "error", err)
	} else {
		w.logger.Info("catalog reloaded", "path", w.loader.Path, "quantities", len(c.Quantities))
	}
	if w.onReload != nil {
		w.onReload(c, err)
	}
}
