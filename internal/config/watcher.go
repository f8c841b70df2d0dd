package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the motivation section when the config file changes.
type Watcher struct {
	path     string
	logger   *slog.Logger
	onChange func(Motivation)
}

func NewWatcher(path string, logger *slog.Logger, onChange func(Motivation)) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: path, logger: logger, onChange: onChange}
}

// Start watches the file's directory, so editors that replace the file by rename are seen too.
// The goroutine exits when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}
	target := filepath.Clean(w.path)

	go func() {
		defer fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				w.reload(ev)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Error("config watcher error", "error", err)
			}
		}
	}()
	return nil
}

func (w *Watcher) reload(ev fsnotify.Event) {
	m, err := ReadMotivation(w.path)
	if err != nil {
		w.logger.Warn("config reload skipped", "path", ev.Name, "op", ev.Op.String(), "error", err)
		return
	}
	w.logger.Info("config file changed", "path", ev.Name, "op", ev.Op.String(), "tiers", len(m.Tiers))
	if w.onChange != nil {
		w.onChange(m)
	}
}
