// Package watch notifies about out-of-band edits of the model file.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches exactly one file. The parent directory is watched because
// editors and atomic writers replace files by rename, which drops a watch
// placed on the file itself.
type Watcher struct {
	path string
	fs   *fsnotify.Watcher
	log  *slog.Logger
}

// New starts watching path. The directory is created when missing so a
// model file that does not exist yet can still be picked up.
func New(path string, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &Watcher{path: abs, fs: fw, log: log}, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string { return w.path }

// Run calls notify for every write or create of the file, and for a rename
// or remove that leaves the file in place, until ctx is done. Events are not coalesced; notify decides whether the
// content really changed.
func (w *Watcher) Run(ctx context.Context, notify func()) error {
	defer w.fs.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("model file event", "op", ev.Op.String(), "path", ev.Name)
			notify()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", "err", err)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
		return true
	}
	if !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	// rename-based saves move the file away first; the Create that follows
	// carries the new content
	if _, err := os.Stat(w.path); errors.Is(err, fs.ErrNotExist) {
		w.log.Debug("model file moved away, waiting for it to reappear", "op", ev.Op.String())
		return false
	}
	return true
}

// Close stops the watcher without waiting for Run.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
