package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// WatchLogLevel re-reads the config file whenever it changes and pushes the
// logger.level value into onLevel. Only the level is hot-reloaded; every
// other setting requires a restart. The watch stops when ctx is cancelled.
func WatchLogLevel(ctx context.Context, path string, log *slog.Logger, onLevel func(string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory: editors replace files on save, which would drop
	// a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return err
	}

	target := filepath.Clean(path)

	go func() {
		defer func() { _ = watcher.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				v := viper.New()
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					if log != nil {
						log.Warn("config reload failed", slog.Any("error", err))
					}
					continue
				}

				level := v.GetString("logger.level")
				if level == "" {
					continue
				}

				if log != nil {
					log.Info("log level reloaded", slog.String("level", level))
				}
				if onLevel != nil {
					onLevel(level)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if log != nil {
					log.Warn("config watcher error", slog.Any("error", err))
				}
			}
		}
	}()

	return nil
}
