package library

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch watches musicDirs (and, best-effort, every directory beneath
// them) for filesystem changes and invokes onChange after a short
// debounce once activity settles. It runs until ctx is cancelled. Watch
// failures to add a root are logged, not fatal: the server still serves
// whatever was scanned at startup.
func Watch(ctx context.Context, musicDirs []string, onChange func()) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("library watch: could not start watcher", "error", err)
		return
	}
	defer watcher.Close()

	for _, dir := range musicDirs {
		if err := addRecursive(watcher, dir); err != nil {
			slog.Warn("library watch: could not watch directory", "path", dir, "error", err)
		}
	}

	const debounce = 2 * time.Second
	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// A newly created directory needs its own watch.
				_ = watcher.Add(event.Name)
			}
			if timer == nil {
				timer = time.AfterFunc(debounce, func() {
					select {
					case pending <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("library watch: error", "error", err)
		case <-pending:
			onChange()
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if werr := watcher.Add(path); werr != nil {
				slog.Debug("library watch: could not add path", "path", path, "error", werr)
			}
		}
		return nil
	})
}
