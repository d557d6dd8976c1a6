package checker

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"sitemapcheck/internal/logger"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// Watcher re-runs a checker whenever a sitemap file changes on disk.
type Watcher struct {
	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	checker   *Checker
	log       *logger.Logger
	path      string
	onOutcome func(*Outcome)
	pending   time.Time
	debounce  time.Duration
	checks    int
	stopCh    chan struct{}
	doneCh    chan struct{}
	running   bool
}

// NewWatcher creates a watcher for path. onOutcome, when non-nil, receives
// every outcome.
func NewWatcher(path string, checker *Checker, log *logger.Logger, onOutcome func(*Outcome)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if log == nil {
		log = logger.Discard()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}

	return &Watcher{
		watcher:   fw,
		checker:   checker,
		log:       log,
		path:      abs,
		onOutcome: onOutcome,
		debounce:  DefaultDebounce,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

// SetDebounce changes the quiet period before a change triggers a check.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.debounce = d
}

// Checks returns how many checks the watcher has run.
func (w *Watcher) Checks() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.checks
}

// Start watches the file's directory, so that editors which replace the file
// by rename are still seen. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()

		return nil
	}

	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()

		_ = w.watcher.Close()

		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	w.log.Info("watching sitemap", "path", w.path)

	go w.run(ctx)

	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()

		return
	}

	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.log.Error("failed to close file watcher", "error", err)
	}
}

// Done is closed when the event loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			w.log.Error("file watcher error", "error", err)

		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.log.Debug("sitemap changed", "path", event.Name, "op", event.Op.String())

	w.mu.Lock()
	w.pending = time.Now()
	w.mu.Unlock()
}

func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounce {
		w.mu.Unlock()

		return
	}

	w.pending = time.Time{}
	w.checks++
	w.mu.Unlock()

	outcome, _ := w.checker.Check(ctx)

	if w.onOutcome != nil {
		w.onOutcome(outcome)
	}
}
