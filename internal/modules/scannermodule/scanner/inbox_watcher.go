package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"chorus/internal/logger"
	"chorus/internal/utils"
)

// FlushFunc receives a batch of settled inbox files ready for import
type FlushFunc func(paths []string)

// InboxWatcher watches a drop directory for new audio files. Filesystem
// events are coalesced: a single debounce timer is re-armed on every event,
// and the pending batch is submitted only after the directory has been quiet
// for the full window. Files whose size is still changing at flush time are
// held for another window.
type InboxWatcher struct {
	inboxDir string
	debounce time.Duration
	flush    FlushFunc

	mu      sync.Mutex
	pending map[string]int64 // path -> size at last event
	timer   *time.Timer
	watcher *fsnotify.Watcher
	running bool

	startedAt time.Time
	wg        sync.WaitGroup
}

// NewInboxWatcher creates a watcher for the given directory. Start must be
// called before events are collected.
func NewInboxWatcher(inboxDir string, debounce time.Duration, flush FlushFunc) *InboxWatcher {
	return &InboxWatcher{
		inboxDir: inboxDir,
		debounce: debounce,
		flush:    flush,
		pending:  make(map[string]int64),
	}
}

// Start begins watching the inbox directory
func (w *InboxWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrWatcherRunning
	}

	if info, err := os.Stat(w.inboxDir); err != nil || !info.IsDir() {
		return fmt.Errorf("inbox directory %s is not watchable: %v", w.inboxDir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := watcher.Add(w.inboxDir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", w.inboxDir, err)
	}

	w.watcher = watcher
	w.running = true
	w.startedAt = time.Now()

	w.wg.Add(1)
	go w.eventLoop(watcher)

	logger.Info("Inbox watcher started on %s (debounce %s)", w.inboxDir, w.debounce)
	return nil
}

// Stop tears down the watcher. Pending files are flushed immediately so a
// shutdown does not drop work.
func (w *InboxWatcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return ErrWatcherNotRunning
	}
	w.running = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	watcher := w.watcher
	w.watcher = nil

	batch := w.drainPendingLocked()
	w.mu.Unlock()

	watcher.Close()
	w.wg.Wait()

	if len(batch) > 0 {
		logger.Info("Inbox watcher stopping, flushing %d pending files", len(batch))
		w.flush(batch)
	}

	logger.Info("Inbox watcher stopped")
	return nil
}

// Running reports whether the watcher is active
func (w *InboxWatcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Status returns the watcher state for the status endpoint
func (w *InboxWatcher) Status() map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	status := map[string]interface{}{
		"running":       w.running,
		"inbox_dir":     w.inboxDir,
		"debounce":      w.debounce.String(),
		"pending_files": len(w.pending),
	}
	if w.running {
		status["started_at"] = w.startedAt
	}
	return status
}

func (w *InboxWatcher) eventLoop(watcher *fsnotify.Watcher) {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			// Dotfiles are in-progress copies (rsync, Finder) and never
			// library content
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}
			if !utils.IsAudioFile(event.Name) {
				continue
			}
			w.notify(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Error("Inbox watcher error: %v", err)
		}
	}
}

// notify records a file event and re-arms the debounce timer. It is the
// single entry point for both filesystem events and tests.
func (w *InboxWatcher) notify(path string) {
	info, err := os.Stat(path)
	if err != nil {
		// File vanished between event and stat
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	w.pending[path] = info.Size()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushPending)
}

// flushPending submits files whose size has not changed since their last
// event. Still-growing files stay pending and re-arm the timer.
func (w *InboxWatcher) flushPending() {
	w.mu.Lock()

	if !w.running {
		w.mu.Unlock()
		return
	}

	var batch []string
	for path, lastSize := range w.pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(w.pending, path)
			continue
		}
		if info.Size() != lastSize {
			// Still being written, hold for another window
			w.pending[path] = info.Size()
			continue
		}
		batch = append(batch, path)
		delete(w.pending, path)
	}

	if len(w.pending) > 0 {
		w.timer = time.AfterFunc(w.debounce, w.flushPending)
	} else {
		w.timer = nil
	}
	w.mu.Unlock()

	if len(batch) > 0 {
		sort.Strings(batch)
		logger.Info("Inbox watcher submitting %d settled files", len(batch))
		w.flush(batch)
	}
}

// drainPendingLocked removes and returns all pending paths. Caller holds the
// mutex.
func (w *InboxWatcher) drainPendingLocked() []string {
	batch := make([]string, 0, len(w.pending))
	for path := range w.pending {
		batch = append(batch, path)
	}
	w.pending = make(map[string]int64)
	sort.Strings(batch)
	return batch
}
