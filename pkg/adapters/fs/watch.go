package fs

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce coalesces the burst of events editors produce for a single save.
const debounce = 100 * time.Millisecond

// Watch reloads the scripts whenever a YAML file in the directory changes.
// The returned channel receives a value after every successful reload and is
// closed when ctx is done. A failed reload is logged and the previous scripts
// stay in use.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch dir %q: %w", l.dir, err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer watcher.Close()

		var timer <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isScriptFile(event.Name) || event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
					continue
				}
				timer = time.After(debounce)
			case <-timer:
				timer = nil
				if err := l.Load(); err != nil {
					l.logger.Warn("script reload failed", "dir", l.dir, "error", err)
					continue
				}
				l.logger.Info("scripts reloaded", "dir", l.dir, "scripts", l.Scripts())
				select {
				case ch <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("script watcher error", "dir", l.dir, "error", err)
			}
		}
	}()
	return ch, nil
}
