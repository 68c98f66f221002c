package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/gridelo/pkg/logger"
)

// Watch reloads the alias table whenever path changes. It runs until ctx is
// cancelled. A failed reload is logged and the previous table stays.
//
// The parent directory is watched rather than the file: a save that writes a
// temp file and renames it over path replaces the inode, which silently ends a
// watch placed on the file itself.
func (r *Resolver) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	r.log.Info(ctx, "watching alias table", logger.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// The old name of a rename is gone; the Create for the new file follows.
			if _, err := os.Stat(target); errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err := r.LoadFile(target); err != nil {
				r.log.Error(ctx, "alias table reload failed, keeping previous table",
					logger.String("path", path), logger.Error(err))
				continue
			}
			r.log.Info(ctx, "alias table reloaded",
				logger.String("path", path), logger.Int("keys", r.Aliases()))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Error(ctx, "alias watcher error", logger.Error(err))
		}
	}
}
