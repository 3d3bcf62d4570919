package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/obsidianstack/amplifi-exporter/internal/amplifi"
	"github.com/obsidianstack/amplifi-exporter/internal/config"
	"github.com/obsidianstack/amplifi-exporter/internal/exporter"
	"github.com/obsidianstack/amplifi-exporter/internal/metrics"
	"github.com/obsidianstack/amplifi-exporter/internal/poller"
)

func main() {
	flags := config.NewFlags(flag.CommandLine)
	flag.Parse()

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(flags.ConfigPath, flags)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	level.Set(cfg.Level())

	slog.Info("amplifi-exporter starting",
		"listen", cfg.Listen.Addr(),
		"amplifi", cfg.Amplifi.URL,
		"interval", cfg.Poll.Interval,
		"mock", cfg.MockFile,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var src poller.Source
	if cfg.MockFile != "" {
		src = amplifi.NewFileSource(cfg.MockFile)
	} else {
		client, err := amplifi.NewClient(cfg.Amplifi.URL, cfg.Amplifi.Password, cfg.Amplifi.Timeout)
		if err != nil {
			slog.Error("failed to build router client", "err", err)
			os.Exit(1)
		}
		src = amplifi.NewLiveSource(client)
	}

	reg := metrics.NewRegistry()
	sched := poller.New(src, metrics.NewProjector(reg), cfg.Poll.Interval, cfg.Poll.Cooldown)

	if flags.ConfigPath != "" {
		go func() {
			err := config.Watch(ctx, flags.ConfigPath, flags, func(updated *config.Config) {
				level.Set(updated.Level())
				if updated.Poll.Interval != sched.Interval() {
					slog.Info("poll interval changed",
						"from", sched.Interval(), "to", updated.Poll.Interval)
					sched.SetInterval(updated.Poll.Interval)
				}
				if updated.Poll.Cooldown != sched.Cooldown() {
					slog.Info("decode cooldown changed",
						"from", sched.Cooldown(), "to", updated.Poll.Cooldown)
					sched.SetCooldown(updated.Poll.Cooldown)
				}
				if keys := cfg.RestartRequired(updated); len(keys) > 0 {
					slog.Warn("config changes take effect after restart", "keys", keys)
				}
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := exporter.Serve(ctx, cfg.Listen.Addr(), exporter.New(reg.Gatherer(), sched)); err != nil {
			slog.Error("metrics server stopped", "err", err)
			os.Exit(1)
		}
	}()

	// Anything but a decode failure ends Run with an error; exit non-zero
	// and leave restarts to the supervisor.
	if err := sched.Run(ctx); err != nil {
		slog.Error("poller stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("amplifi-exporter shutting down")
	<-served
}
