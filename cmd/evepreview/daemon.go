package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/daemon"
	"github.com/1broseidon/evepreview/internal/ipc"
	"github.com/1broseidon/evepreview/internal/logging"
	"github.com/1broseidon/evepreview/internal/platform"
	"github.com/1broseidon/evepreview/internal/runtimepath"
)

const reconcileInterval = 10 * time.Second

func runDaemon(args []string) int {
	fs := pflag.NewFlagSet("daemon", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	configPath := fs.StringP("config", "c", "", "Config file path (default: ~/.config/evepreview/config.yaml)")
	logLevel := fs.String("log-level", "", "Override log.level (debug, info, warn, error)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: evepreview daemon [--config PATH] [--log-level LEVEL]")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	if err := ipc.NewClient().Ping(); err == nil {
		fmt.Fprintln(os.Stderr, "evepreview daemon is already running")
		return 1
	}

	path, err := resolveConfigPath(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	cfg := res.Config
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	broker := ipc.NewBroker()
	defer broker.Close()

	logger, logCloser, err := logging.Setup(cfg.Log, broker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		return 1
	}
	defer logCloser.Close()
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "path", path, "exists", res.Exists, "profile", cfg.SelectedProfile)

	backend, err := platform.NewLinuxBackendFromDisplay()
	if err != nil {
		logger.Error("failed to connect to display", "error", err)
		return 1
	}
	defer backend.Disconnect()
	if !backend.Connection().HasComposite() {
		logger.Warn("COMPOSITE unavailable, minimized clients will not update their previews")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		watcher *config.Watcher
		keys    *hotkeyRunner
	)
	d, err := daemon.New(daemon.Options{
		Backend:    backend,
		Config:     cfg,
		ConfigPath: path,
		Logger:     logger,
		Broker:     broker,
		OnSaved: func() {
			if watcher != nil {
				watcher.MarkSaved()
			}
		},
		OnConfigApplied: func(c *config.Config) {
			if keys != nil {
				keys.Apply(c)
			}
		},
	})
	if err != nil {
		logger.Error("failed to start daemon", "error", err)
		return 1
	}

	ipcServer, err := ipc.NewServer(d.Dispatch, broker)
	if err != nil {
		logger.Error("failed to create IPC server", "error", err)
		return 1
	}
	if err := ipcServer.Start(); err != nil {
		logger.Error("failed to start IPC server", "error", err)
		return 1
	}
	defer ipcServer.Stop()

	watcher, err = config.Watch(ctx, path, func() {
		logger.Info("config file changed, reloading", "path", path)
		d.RequestReload()
	})
	if err != nil {
		logger.Warn("config watch disabled", "error", err)
	}

	reconciler := daemon.NewReconciler(daemon.ReconcilerConfig{
		Interval: reconcileInterval,
		Logger:   logger,
	}, d)
	go reconciler.Run(ctx)

	keys = newHotkeyRunner(d.Inputs(), logger)
	keys.Apply(cfg)
	go keys.Run(ctx)

	if pidPath, err := runtimepath.PIDPath(); err != nil {
		logger.Warn("pid file disabled", "error", err)
	} else if err := runtimepath.WritePID(pidPath); err != nil {
		logger.Warn("failed to write pid file", "path", pidPath, "error", err)
	} else {
		defer os.Remove(pidPath)
	}

	go broker.RunHeartbeat(ctx, ipc.HeartbeatInterval)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info("received SIGHUP, reloading config")
				d.RequestReload()
			}
		}
	}()

	if err := d.Run(ctx); err != nil {
		logger.Error("daemon stopped", "error", err)
		return 1
	}
	return 0
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}
