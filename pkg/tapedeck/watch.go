// ABOUTME: File watcher that reloads the open file when it changes
// ABOUTME: Watches the parent directory and debounces bursts of events
package tapedeck

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watcher reloads one file after it stops changing for the debounce period
type watcher struct {
	fs       *fsnotify.Watcher
	path     string
	debounce time.Duration
	reload   func(path string)

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

// watch replaces any existing watcher with one for path
func (p *Player) watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	old := p.watcher
	if old != nil && old.path == abs {
		p.mu.Unlock()
		return nil
	}
	p.watcher = nil
	p.mu.Unlock()

	if old != nil {
		old.Close()
	}

	w, err := newWatcher(abs, p.config.WatchDebounce, func(changed string) {
		log.Printf("File changed, reloading: %s", changed)
		// Errors are reported through OnError
		_ = p.Open(path)
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		w.Close()
		return nil
	}
	p.watcher = w
	p.mu.Unlock()
	return nil
}

func newWatcher(path string, debounce time.Duration, reload func(string)) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// Editors often replace files, so watch the directory
	if err := fs.Add(filepath.Dir(path)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	w := &watcher{
		fs:       fs,
		path:     path,
		debounce: debounce,
		reload:   reload,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *watcher) run() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.schedule()
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

func (w *watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.reload(w.path)
	})
}

// Close stops watching and cancels a pending reload
func (w *watcher) Close() {
	w.fs.Close()
	<-w.done

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}
