// Package watch monitors a drop directory for OCR exports and feeds each new
// or changed export to a handler, debouncing the burst of events a single
// file copy produces.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for more events on a path
// before handing it off.
const DefaultDebounce = 500 * time.Millisecond

// Handler processes one settled OCR export file.
type Handler func(ctx context.Context, path string) error

// Config configures a Watcher.
type Config struct {
	// Dir is the directory to monitor.
	Dir string

	// Extensions lists the file extensions to pick up. Defaults to .json.
	Extensions []string

	// Debounce is the settle delay per path. Defaults to DefaultDebounce.
	Debounce time.Duration
}

// Watcher monitors one directory.
type Watcher struct {
	dir        string
	extensions map[string]bool
	debounce   time.Duration
	handler    Handler
	logger     *slog.Logger

	fsw *fsnotify.Watcher

	pendingMu sync.Mutex
	pending   map[string]*time.Timer
}

// New creates a watcher for cfg.Dir. The handler runs on the watcher's
// goroutine; slow handlers delay later files, not the event intake.
func New(cfg Config, handler Handler, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(cfg.Dir); err != nil {
		fsw.Close()
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".json"}
	}

	extensions := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		extensions[strings.ToLower(ext)] = true
	}

	return &Watcher{
		dir:        cfg.Dir,
		extensions: extensions,
		debounce:   cfg.Debounce,
		handler:    handler,
		logger:     logger,
		fsw:        fsw,
		pending:    make(map[string]*time.Timer),
	}, nil
}

// Run processes events until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	// Settled paths funnel back onto this goroutine so the handler never
	// runs concurrently with itself. done releases any timer callback still
	// trying to deliver after this loop has exited.
	settled := make(chan string, 64)
	done := make(chan struct{})
	defer close(done)
	defer w.cancelPending()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.wants(event) {
				continue
			}
			w.schedule(event.Name, settled, done)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "dir", w.dir, "error", err)

		case path := <-settled:
			w.logger.Info("processing export", "path", path)
			if err := w.handler(ctx, path); err != nil {
				w.logger.Error("export failed", "path", path, "error", err)
			}
		}
	}
}

// wants reports whether an event concerns a file the watcher should process.
func (w *Watcher) wants(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	return w.wantsPath(event.Name)
}

// wantsPath applies the extension filter. Dotfiles and editor temp files are
// skipped.
func (w *Watcher) wantsPath(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return w.extensions[strings.ToLower(filepath.Ext(base))]
}

// schedule arms (or re-arms) the settle timer for one path.
func (w *Watcher) schedule(path string, settled chan<- string, done <-chan struct{}) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.pendingMu.Lock()
		delete(w.pending, path)
		w.pendingMu.Unlock()
		deliver(path, settled, done)
	})
}

// deliver hands a settled path to the run loop. A timer can fire after Run
// has returned; once done is closed the send is abandoned instead of
// blocking the timer goroutine forever.
func deliver(path string, settled chan<- string, done <-chan struct{}) {
	select {
	case settled <- path:
	case <-done:
	}
}

func (w *Watcher) cancelPending() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}
