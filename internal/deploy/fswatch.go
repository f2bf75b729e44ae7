package deploy

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"shardctl/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// TriggerWatcher watches the trigger file for changes and invokes a
// callback once writes have settled. It watches the containing
// directory so editors that replace the file (write temp + rename) are
// still observed.
type TriggerWatcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	triggerFile string
	onChange    func(ctx context.Context)
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats TriggerWatcherStats
}

// TriggerWatcherStats tracks watcher activity for debugging.
type TriggerWatcherStats struct {
	EventsSeen    int
	RunsTriggered int
	Errors        int
	LastEventTime time.Time
	LastEventOp   string
}

// NewTriggerWatcher creates a watcher for the given trigger file.
// onChange is called after each settled modification.
func NewTriggerWatcher(triggerFile string, onChange func(ctx context.Context)) (*TriggerWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &TriggerWatcher{
		watcher:     watcher,
		triggerFile: triggerFile,
		onChange:    onChange,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // Debounce rapid saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a
// goroutine until Stop or context cancellation.
func (tw *TriggerWatcher) Start(ctx context.Context) error {
	tw.mu.Lock()
	if tw.running {
		tw.mu.Unlock()
		return nil // Already running
	}
	tw.running = true
	tw.mu.Unlock()

	dir := filepath.Dir(tw.triggerFile)
	if err := tw.watcher.Add(dir); err != nil {
		tw.mu.Lock()
		tw.running = false
		tw.mu.Unlock()
		return err
	}
	logging.Watch("watching %s for changes to %s", dir, filepath.Base(tw.triggerFile))

	go tw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (tw *TriggerWatcher) Stop() {
	tw.mu.Lock()
	if !tw.running {
		tw.mu.Unlock()
		return
	}
	tw.running = false
	tw.mu.Unlock()

	close(tw.stopCh)
	<-tw.doneCh

	if err := tw.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("stopped")
}

// IsWatching returns true if the watcher is currently running.
func (tw *TriggerWatcher) IsWatching() bool {
	tw.mu.RLock()
	defer tw.mu.RUnlock()
	return tw.running
}

// GetStats returns the current watcher statistics.
func (tw *TriggerWatcher) GetStats() TriggerWatcherStats {
	tw.mu.RLock()
	defer tw.mu.RUnlock()
	return tw.stats
}

// run is the main event loop.
func (tw *TriggerWatcher) run(ctx context.Context) {
	defer close(tw.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("context cancelled")
			return

		case <-tw.stopCh:
			logging.Watch("stop signal received")
			return

		case event, ok := <-tw.watcher.Events:
			if !ok {
				logging.Watch("event channel closed")
				return
			}
			tw.handleEvent(event)

		case err, ok := <-tw.watcher.Errors:
			if !ok {
				logging.Watch("error channel closed")
				return
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)
			tw.mu.Lock()
			tw.stats.Errors++
			tw.mu.Unlock()

		case <-debounceTicker.C:
			tw.processDebounced(ctx)
		}
	}
}

// handleEvent records relevant events for debounced processing.
func (tw *TriggerWatcher) handleEvent(event fsnotify.Event) {
	// Only the trigger file itself matters.
	if filepath.Clean(event.Name) != filepath.Clean(tw.triggerFile) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return // Ignore chmod, remove, etc.
	}

	logging.WatchDebug("%s event for %s", event.Op, event.Name)

	tw.mu.Lock()
	tw.stats.EventsSeen++
	tw.stats.LastEventTime = time.Now()
	tw.stats.LastEventOp = event.Op.String()
	tw.debounceMap[event.Name] = time.Now()
	tw.mu.Unlock()
}

// processDebounced fires the callback for events settled past the
// debounce window.
func (tw *TriggerWatcher) processDebounced(ctx context.Context) {
	tw.mu.Lock()
	now := time.Now()
	fire := false
	for path, eventTime := range tw.debounceMap {
		if now.Sub(eventTime) >= tw.debounceDur {
			delete(tw.debounceMap, path)
			fire = true
		}
	}
	if fire {
		tw.stats.RunsTriggered++
	}
	tw.mu.Unlock()

	if fire {
		logging.Watch("trigger file settled, running pipeline")
		tw.onChange(ctx)
	}
}
