package main

import (
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// watchFirmware grounds its fsnotify wiring on
// SeleniaProject-Orizon/internal/runtime/vfs/watch_fsnotify.go: a single
// watcher goroutine draining Events/Errors and calling back into the
// owner on a write. Many editors replace a file rather than writing it
// in place, which fsnotify reports as Remove followed by a Create of
// the same path, so both are treated as a reload trigger alongside
// Write.
func watchFirmware(path string, log *logrus.Logger, onChange func()) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
					onChange()
					// editors that replace the file drop the watch on
					// the old inode; re-add it so future writes keep
					// firing.
					_ = w.Add(path)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("firmware watch error")
			}
		}
	}()

	return w, nil
}
