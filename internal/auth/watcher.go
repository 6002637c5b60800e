package auth

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/haasonsaas/claudebridge/internal/observability"
)

// defaultWatchDebounce coalesces the burst of events an atomic credentials
// rewrite produces into a single refresh.
const defaultWatchDebounce = 250 * time.Millisecond

// Watcher refreshes a Resolver whenever the Claude credentials file changes,
// so a `claude login` on the host is picked up without restarting the server.
type Watcher struct {
	resolver *Resolver
	path     string
	debounce time.Duration
	logger   *observability.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher creates a watcher for the resolver's credentials path.
func NewWatcher(resolver *Resolver, logger *observability.Logger) *Watcher {
	return &Watcher{
		resolver: resolver,
		path:     resolver.credentialsPath,
		debounce: defaultWatchDebounce,
		logger:   logger,
	}
}

// Start begins watching. The credentials file is typically replaced rather
// than rewritten in place, so the parent directory is watched and events are
// filtered by file name. A missing directory is not an error; the watcher
// simply stays idle.
func (w *Watcher) Start(ctx context.Context) error {
	if w.path == "" {
		return nil
	}
	dir := filepath.Dir(w.path)
	if _, err := os.Stat(dir); err != nil {
		if w.logger != nil {
			w.logger.Debug(ctx, "credentials directory absent, not watching", "dir", dir)
		}
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)

	w.mu.Lock()
	w.watcher = watcher
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.watchLoop(watchCtx, watcher)
	return nil
}

// Close stops the watch loop and releases the fsnotify handle.
func (w *Watcher) Close() error {
	w.mu.Lock()
	watcher := w.watcher
	cancel := w.cancel
	w.watcher = nil
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if watcher != nil {
		err = watcher.Close()
	}
	w.wg.Wait()
	return err
}

func (w *Watcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer w.wg.Done()

	var mu sync.Mutex
	var timer *time.Timer
	scheduleRefresh := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			state := w.resolver.Refresh()
			if w.logger != nil {
				w.logger.Info(context.Background(), "credentials changed, auth state refreshed",
					"method", string(state.Method),
					"authenticated", state.Authenticated,
				)
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				scheduleRefresh()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn(ctx, "credentials watch error", "error", err)
			}
		}
	}
}
