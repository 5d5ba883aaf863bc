package transcript

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tabletalk-io/tabletalk/pkg/logger"
)

// Watcher is a "wait for the next transcript change" abstraction. It
// prefers filesystem notifications and always keeps a polling ticker as
// fallback, since the log file may not exist yet and some filesystems
// deliver no events.
type Watcher struct {
	path     string
	interval time.Duration
	fsw      *fsnotify.Watcher
}

func NewWatcher(path string, pollInterval time.Duration) *Watcher {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	w := &Watcher{path: path, interval: pollInterval}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		logger.WarnCF("transcript", "File notifications unavailable, polling only", map[string]interface{}{
			"error": err.Error(),
		})
		return w
	}
	// Watch the directory: the transcript file itself may not exist yet,
	// and appends on some platforms only surface as directory events.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		logger.WarnCF("transcript", "Cannot watch transcript directory, polling only", map[string]interface{}{
			"error": err.Error(),
		})
		fsw.Close()
		return w
	}
	w.fsw = fsw
	return w
}

// Wait blocks until the transcript may have changed, the poll interval
// elapses, or ctx is cancelled. A nil return means "worth re-scanning".
func (w *Watcher) Wait(ctx context.Context) error {
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	if w.fsw == nil {
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				// Notifier gone; fall back to the timer.
				w.fsw = nil
				select {
				case <-timer.C:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if ev.Name != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			return nil
		case err, ok := <-w.fsw.Errors:
			if ok && err != nil {
				logger.DebugCF("transcript", "Watcher error", map[string]interface{}{
					"error": err.Error(),
				})
			}
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) Close() error {
	if w.fsw == nil {
		return nil
	}
	return w.fsw.Close()
}
