package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"restronaut/internal/config"
	"restronaut/internal/logging"
	"restronaut/internal/notifications"
	"restronaut/internal/preflight"
	"restronaut/internal/watcher"
)

// Daemon runs the folder monitors and the HTTP ingress and enforces
// single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	components *Components
	monitors   []*watcher.Monitor
	api        *apiServer
	logPath    string

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt atomic.Int64

	mu        sync.Mutex
	preflight []preflight.Result
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StartedAt    time.Time          `json:"started_at,omitempty"`
	LockFilePath string             `json:"lock_file"`
	LogPath      string             `json:"log_file"`
	APIAddress   string             `json:"api_address,omitempty"`
	Monitors     []watcher.Snapshot `json:"monitors"`
	Preflight    []preflight.Result `json:"preflight"`
}

// New constructs a daemon around prepared components. Each processor gets a
// monitor; all monitors share one concurrency limiter.
func New(cfg *config.Config, components *Components, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || components == nil || logger == nil {
		return nil, errors.New("daemon requires config, components, and logger")
	}
	if len(components.Processors) == 0 {
		return nil, watcher.ErrNoDirectories
	}

	limiter := watcher.NewLimiter(cfg.Workflow.MaxConcurrency)
	monitors := make([]*watcher.Monitor, 0, len(components.Processors))
	for _, proc := range components.Processors {
		monitors = append(monitors, watcher.New(proc, limiter, cfg.ShutdownGrace(), logger))
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		components: components,
		monitors:   monitors,
		logPath:    filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Run acquires the lock and blocks until ctx is cancelled or a component
// fails. In-flight files get the shutdown grace before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another restronaut daemon instance is already running")
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	if removed := logging.CleanupOldLogs(d.logger, d.cfg.Logging.RetentionDays, logging.RetentionTarget{
		Dir:     d.cfg.Paths.LogDir,
		Pattern: "restronaut*.log*",
		Exclude: []string{d.logPath},
	}); removed > 0 {
		d.logger.Info("old log files pruned", logging.Int("removed", removed))
	}
	d.runPreflight(ctx)

	group, groupCtx := errgroup.WithContext(ctx)
	if d.api != nil {
		if err := d.api.listen(); err != nil {
			return err
		}
		group.Go(func() error { return d.api.serve(groupCtx) })
	}
	for _, m := range d.monitors {
		group.Go(func() error { return m.Run(groupCtx) })
	}

	d.startedAt.Store(time.Now().UnixNano())
	d.running.Store(true)
	defer d.running.Store(false)
	d.logger.Info("restronaut daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("monitors", len(d.monitors)),
		logging.String(logging.FieldEventType, "daemon_started"),
	)

	err = group.Wait()
	if closeErr := d.components.Close(); closeErr != nil {
		d.logger.Warn("failed to close clients", logging.Error(closeErr))
	}
	d.logger.Info("restronaut daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (d *Daemon) runPreflight(ctx context.Context) {
	results := preflight.RunAll(ctx, d.cfg)
	for _, result := range preflight.Failed(results) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix the folder or service named in the check"),
			logging.String(logging.FieldImpact, "files depending on it will be retained until it recovers"),
		)
	}
	d.mu.Lock()
	d.preflight = results
	d.mu.Unlock()
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := d.components.Notifier
	if notifier == nil {
		notifier = notifications.NewService(d.cfg)
	}
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		LogPath:      d.logPath,
	}
	if ns := d.startedAt.Load(); ns > 0 {
		status.StartedAt = time.Unix(0, ns)
	}
	if d.api != nil {
		status.APIAddress = d.api.address()
	}
	for _, m := range d.monitors {
		status.Monitors = append(status.Monitors, m.Snapshot())
	}
	d.mu.Lock()
	status.Preflight = append([]preflight.Result(nil), d.preflight...)
	d.mu.Unlock()
	return status
}
