package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Change describes a write to the backing file that this store did not make.
type Change struct {
	Path    string
	Op      fsnotify.Op
	Removed bool
	Digest  string // hex blake3 of the new contents, "" when removed
}

// Watch reports changes to the backing file made by other writers. It
// registers the watch before returning and then delivers changes to fn
// from a background goroutine until ctx is done.
//
// The parent directory is watched rather than the file so that atomic
// renames by other writers are seen. Writes whose contents match Digest
// are this store's own and are not reported.
func (s *Store) Watch(ctx context.Context, fn func(Change)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go func() {
		defer w.Close()
		var lastReported string // digest, or "removed"
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != s.path {
					continue
				}
				change, ok := s.inspect(event)
				if !ok {
					continue
				}
				key := change.Digest
				if change.Removed {
					key = "removed"
				}
				if key == lastReported {
					continue
				}
				lastReported = key
				s.metrics.ExternalWritesTotal.Inc()
				fn(change)
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// inspect turns a raw event into a Change, or reports false when the file
// still holds what this store last loaded or wrote. It holds the store lock
// so a concurrent Save cannot land between the read and the comparison.
func (s *Store) inspect(event fsnotify.Event) (Change, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return Change{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	change := Change{Path: s.path, Op: event.Op}
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		change.Removed = true
		return change, s.digest != ""
	case err != nil:
		return Change{}, false
	}
	change.Digest = digestOf(data)
	return change, change.Digest != s.digest
}
