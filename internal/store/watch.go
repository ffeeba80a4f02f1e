package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	debounceDuration    = 100 * time.Millisecond
	defaultPollInterval = 2 * time.Second
)

// Watcher calls a function whenever a file changes. It watches the parent
// directory so atomic rename-over writes are seen, and falls back to polling
// the file's modification time when fsnotify is unavailable.
type Watcher struct {
	Path         string
	PollInterval time.Duration
	Logger       *zap.Logger

	// forcePoll skips fsnotify; tests use it to exercise the fallback.
	forcePoll bool
}

// Watch blocks until ctx is done, calling onChange after each burst of
// changes to path.
func Watch(ctx context.Context, path string, logger *zap.Logger, onChange func()) error {
	w := &Watcher{Path: path, Logger: logger}
	return w.Run(ctx, onChange)
}

// Run blocks until ctx is done. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	log := w.Logger
	if log == nil {
		log = zap.NewNop()
	}
	target, err := filepath.Abs(w.Path)
	if err != nil {
		return err
	}

	if !w.forcePoll {
		if watcher := initWatcher(filepath.Dir(target), log); watcher != nil {
			defer func() { _ = watcher.Close() }()
			return runWatcher(ctx, watcher, target, log, onChange)
		}
	}
	return w.poll(ctx, target, onChange)
}

func initWatcher(dir string, log *zap.Logger) *fsnotify.Watcher {
	if _, err := os.Stat(dir); err != nil {
		log.Warn("watch directory unavailable, falling back to polling", zap.String("dir", dir), zap.Error(err))
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("failed to create watcher, falling back to polling", zap.Error(err))
		return nil
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		log.Warn("failed to watch directory, falling back to polling", zap.String("dir", dir), zap.Error(err))
		return nil
	}
	return watcher
}

func runWatcher(ctx context.Context, watcher *fsnotify.Watcher, target string, log *zap.Logger, onChange func()) error {
	debounce := newDebounceTimer()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			resetDebounceTimer(debounce)

		case <-debounce.C:
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) poll(ctx context.Context, target string, onChange func()) error {
	interval := w.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := stamp(target)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cur := stamp(target)
			if cur != last {
				last = cur
				onChange()
			}
		}
	}
}

type fileStamp struct {
	mod  int64
	size int64
	ok   bool
}

func stamp(path string) fileStamp {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{mod: info.ModTime().UnixNano(), size: info.Size(), ok: true}
}

func newDebounceTimer() *time.Timer {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	return timer
}

func resetDebounceTimer(timer *time.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(debounceDuration)
}
