package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"restronaut/internal/daemon"
	"restronaut/internal/logging"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the folder monitors and HTTP ingress in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	if ctx == nil {
		return fmt.Errorf("command context is required")
	}
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if ctx.configPath != "" {
		logger.Info("configuration loaded", logging.String("path", ctx.configPath))
	}

	components, err := daemon.BuildComponents(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("build components", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, components, logger)
	if err != nil {
		_ = components.Close()
		return fmt.Errorf("create daemon: %w", err)
	}

	if err := d.Run(signalCtx); err != nil {
		logger.Error("daemon exited with error", logging.Error(err))
		return err
	}
	return nil
}
