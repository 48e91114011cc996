package fallback

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watcher reloads a Table whenever its backing file is written.
type Watcher struct {
	watcher *fsnotify.Watcher
	table   *Table
	path    string
	log     logrus.FieldLogger

	// reloaded is signalled after every reload attempt; used by tests.
	reloaded chan error
}

// NewWatcher watches path's directory so editors that replace the file
// (write to temp, rename) are still noticed.
func NewWatcher(table *Table, path string, log logrus.FieldLogger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	return &Watcher{
		watcher:  w,
		table:    table,
		path:     filepath.Clean(path),
		log:      log.WithField("component", "fallback-watcher"),
		reloaded: make(chan error, 8),
	}, nil
}

// Run processes events until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("watch error")
		}
	}
}

func (w *Watcher) reload() {
	raw, err := os.ReadFile(w.path)
	if err == nil {
		err = w.table.Replace(raw)
	}
	if err != nil {
		w.log.WithError(err).WithField("path", w.path).Warn("keeping previous fallback table")
	} else {
		w.log.WithField("path", w.path).Info("fallback table reloaded")
	}

	select {
	case w.reloaded <- err:
	default:
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
