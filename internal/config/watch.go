package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads b from its file whenever the file is written and calls
// onChange after each successful reload. It runs until ctx is cancelled.
// A failed reload is logged and the previous document stays active.
func (b *Business) Watch(ctx context.Context, onChange func()) error {
	if b.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(b.path); err != nil {
		return err
	}

	slog.Info("config: watching business config", "path", b.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so Create counts as a write.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			doc, err := readBusiness(b.path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config", "path", b.path, "err", err)
				continue
			}
			b.Replace(doc)
			slog.Info("config: reloaded business config", "path", b.path)
			if onChange != nil {
				onChange()
			}

			_ = watcher.Add(b.path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
