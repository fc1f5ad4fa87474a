// Package watch observes a source icon file and fires a debounced callback
// when it changes, so an open build target can be re-generated live.
package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// IconWatcher watches one SVG file for writes. Editors replace files in
// various ways (write in place, temp+rename, delete+create), so the watch is
// on the parent directory and events are filtered by file name.
type IconWatcher struct {
	path     string
	debounce time.Duration
	onChange func()

	watcher *fsnotify.Watcher
	done    chan struct{}

	closeOnce sync.Once
}

// New starts watching path. onChange runs on the watcher's goroutine after
// the debounce window closes; it must not block for long.
func New(path string, debounce time.Duration, onChange func()) (*IconWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch: watch %s: %w", filepath.Dir(path), err)
	}

	w := &IconWatcher{
		path:     path,
		debounce: debounce,
		onChange: onChange,
		watcher:  fsw,
		done:     make(chan struct{}),
	}
	go w.loop()
	slog.Debug("[WATCH] watching source icon", "path", path, "debounce", debounce)
	return w, nil
}

// Close stops the watcher. Idempotent; pending debounced callbacks are
// dropped.
func (w *IconWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *IconWatcher) loop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			slog.Debug("[WATCH] source icon changed", "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timerC:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case <-timerC:
			slog.Info("[WATCH] change settled, firing rebuild callback", "path", w.path)
			w.onChange()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("[WATCH] watcher error", "error", err)
		}
	}
}
