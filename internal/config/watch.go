package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces the burst of events editors produce when
// saving (write, chmod, rename).
const DefaultWatchDebounce = 250 * time.Millisecond

// Watcher reports external edits of the config file.
type Watcher struct {
	path     string
	debounce time.Duration
	fsw      *fsnotify.Watcher

	mu        sync.Mutex
	lastSaved time.Time
}

// Watch starts watching the directory containing path and calls onChange,
// from the watcher goroutine, after each debounced burst of changes to the
// file. Writes recorded with MarkSaved are ignored. The watcher stops when ctx
// is done.
func Watch(ctx context.Context, path string, onChange func()) (*Watcher, error) {
	return watchWithDebounce(ctx, path, DefaultWatchDebounce, onChange)
}

func watchWithDebounce(ctx context.Context, path string, debounce time.Duration, onChange func()) (*Watcher, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory: editors and SaveToPath replace the file by rename,
	// which drops a watch placed on the file itself.
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{path: filepath.Clean(path), debounce: debounce, fsw: fsw}
	go w.run(ctx, onChange)
	return w, nil
}

// MarkSaved records the file's current modification time so the change
// events caused by our own save are not reported back.
func (w *Watcher) MarkSaved() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}
	w.mu.Lock()
	w.lastSaved = info.ModTime()
	w.mu.Unlock()
}

func (w *Watcher) run(ctx context.Context, onChange func()) {
	defer w.fsw.Close()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !timer.Stop() && pending {
				select {
				case <-timer.C:
				default:
				}
			}
			pending = true
			timer.Reset(w.debounce)
		case <-timer.C:
			pending = false
			if w.selfWrite() {
				continue
			}
			onChange()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("config watcher: %v", err)
		}
	}
}

func (w *Watcher) selfWrite() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		// Removed: nothing to reload.
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.lastSaved.IsZero() && info.ModTime().Equal(w.lastSaved)
}
