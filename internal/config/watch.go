package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it is written and hands each valid result,
// with the flags in fl still applied, to onChange. Only poll.interval,
// poll.cooldown and log_level are meant to be applied live; callers can use
// RestartRequired to report edits to anything else. An invalid file is
// logged and skipped. Watch returns when ctx is cancelled.
func Watch(ctx context.Context, path string, fl *Flags, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	defer w.Close()

	if err := w.Add(path); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	slog.Info("config: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			switch {
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
				reload(path, fl, onChange)
				// An atomic save swaps the inode; watch the new one.
				_ = w.Add(path)
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				_ = w.Add(path)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "path", path, "err", err)
		}
	}
}

func reload(path string, fl *Flags, onChange func(*Config)) {
	cfg, err := Load(path, fl)
	if err != nil {
		slog.Error("config: reload failed, keeping previous config", "path", path, "err", err)
		return
	}
	slog.Info("config: reloaded", "path", path,
		"interval", cfg.Poll.Interval, "cooldown", cfg.Poll.Cooldown, "log_level", cfg.LogLevel)
	onChange(cfg)
}

// RestartRequired returns the keys that differ between c and next but are
// only read at startup: the listen address, the router connection and the
// mock file.
func (c *Config) RestartRequired(next *Config) []string {
	var keys []string
	changed := func(key string, differs bool) {
		if differs {
			keys = append(keys, key)
		}
	}
	changed("listen.address", c.Listen.Address != next.Listen.Address)
	changed("listen.port", c.Listen.Port != next.Listen.Port)
	changed("amplifi.url", c.Amplifi.URL != next.Amplifi.URL)
	changed("amplifi.password", c.Amplifi.Password != next.Amplifi.Password)
	changed("amplifi.timeout", c.Amplifi.Timeout != next.Amplifi.Timeout)
	changed("mock_file", c.MockFile != next.MockFile)
	return keys
}
