package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"gradevault/internal/contentstore"
	"gradevault/internal/courses"
	"gradevault/internal/daemon"
	"gradevault/internal/engine"
	"gradevault/internal/fetch"
	"gradevault/internal/jobstore"
	"gradevault/internal/logging"
	"gradevault/internal/notifications"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:          "daemon",
		Short:        "Run the gradevault daemon",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	if ctx == nil {
		return fmt.Errorf("command context is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireStoreToken(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "gradevault.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := jobstore.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		return err
	}
	defer store.Close()

	proxy, err := fetch.NewHTTPProxy(cfg, logger)
	if err != nil {
		logger.Error("init fetch proxy", logging.Error(err))
		return err
	}

	catalog := courses.NewCatalog(cfg.Courses.CatalogPath)
	if err := catalog.Load(); err != nil {
		logger.Warn("load course catalog", logging.Error(err))
	}

	eng := engine.New(cfg, store, contentstore.NewClient(cfg), proxy, logger,
		engine.WithNotifier(notifications.NewService(cfg)))

	d, err := daemon.New(cfg, store, eng, catalog, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return err
	}

	<-signalCtx.Done()
	logger.Info("gradevault daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
