package settings

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 50 * time.Millisecond

// Watch reloads the handle's overrides whenever its config file in dir
// changes and passes the result to fn. It blocks until ctx is done.
func Watch(ctx context.Context, dir, handle, environment string, fn func(*Overrides, error)) error {
	if handle == "" {
		return ErrNoHandle
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	names := make(map[string]struct{}, len(configExtensions))
	for _, ext := range configExtensions {
		names[handle+ext] = struct{}{}
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if _, match := names[filepath.Base(ev.Name)]; !match {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			pending = time.After(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fn(nil, err)
		case <-pending:
			pending = nil
			fn(LoadOverrides(dir, handle, environment))
		}
	}
}
