package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// watcher reports changes to a single file. It watches the parent
// directory so that editors which replace the file on save are seen too.
type watcher struct {
	fw      *fsnotify.Watcher
	path    string
	changed chan struct{}
	done    chan struct{}
}

func watchFile(path string) (*watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	w := &watcher{
		fw:      fw,
		path:    abs,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Coalesce bursts: one pending signal is enough.
			select {
			case w.changed <- struct{}{}:
			default:
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(os.Stderr, "[marionette-view] watch: %v\n", err)
		}
	}
}

// Changed receives a value after the file was written or replaced.
func (w *watcher) Changed() <-chan struct{} { return w.changed }

func (w *watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}
