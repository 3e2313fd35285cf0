package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"restronaut/internal/archive"
	"restronaut/internal/config"
	"restronaut/internal/dispatch"
	"restronaut/internal/notifications"
	"restronaut/internal/orderapi"
	"restronaut/internal/workflow"
)

// Components holds the processing stack shared by the daemon and the one-shot
// process command.
type Components struct {
	Processors []*workflow.Processor
	Notifier   notifications.Service
	Archiver   *dispatch.Archiver

	closers []io.Closer
}

// Close releases clients that hold connections.
func (c *Components) Close() error {
	var firstErr error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}

// Processor returns the processor whose folder role matches role.
func (c *Components) Processor(role string) (*workflow.Processor, bool) {
	for _, proc := range c.Processors {
		if proc.Directory().Role == role {
			return proc, true
		}
	}
	return nil, false
}

// BuildComponents constructs the order client, archive store, notifier, and a
// processor for every enabled watch folder.
func BuildComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	client, err := orderapi.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("order service client: %w", err)
	}
	store, err := archive.NewFromConfig(ctx, cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("archive store: %w", err)
	}
	return NewComponents(cfg, dispatch.NewReporter(client), store, logger), nil
}

// NewComponents builds processors around an existing order service and store.
func NewComponents(cfg *config.Config, reporter workflow.Reporter, store archive.Store, logger *slog.Logger) *Components {
	c := &Components{
		Notifier: notifications.NewService(cfg),
		Archiver: dispatch.NewArchiver(store, cfg.Archive),
	}
	if closer, ok := store.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}
	for _, dir := range cfg.Directories() {
		opts := []workflow.Option{workflow.WithNotifier(c.Notifier)}
		if c.Archiver.Enabled() {
			opts = append(opts, workflow.WithArchiver(c.Archiver))
		}
		c.Processors = append(c.Processors, workflow.NewProcessor(dir, reporter, logger, opts...))
	}
	return c
}
