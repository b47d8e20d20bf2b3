package store

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/agentmux/internal/logging"
)

// watchDebounce coalesces the burst of filesystem events an atomic
// rename produces into one reload.
const watchDebounce = 100 * time.Millisecond

// Watcher reloads the snapshot when another process rewrites the state
// file.
type Watcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch starts watching the store's file and invokes onReload with each
// freshly loaded snapshot. The watch runs until Close.
//
// The parent directory is watched rather than the file itself, because
// atomic saves replace the file and would drop a direct watch.
func Watch(s *Store, onReload func(Snapshot), log *logging.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.Nop()
	}
	log = log.WithComponent("store")

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(s.Path())); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{watcher: fw, done: make(chan struct{})}
	target := filepath.Clean(s.Path())

	go func() {
		var debounce *time.Timer
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(watchDebounce, func() {
					select {
					case <-w.done:
						return
					default:
					}
					snap, err := s.Load()
					if err != nil {
						log.Warn("state reload failed", "error", err)
						return
					}
					log.Debug("state reloaded", "path", target)
					onReload(snap)
				})
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				log.Warn("state watch error", "error", err)
			case <-w.done:
				return
			}
		}
	}()
	return w, nil
}

// Close stops the watch.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
