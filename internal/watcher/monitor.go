package watcher

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

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/semaphore"

	"restronaut/internal/config"
	"restronaut/internal/logging"
	"restronaut/internal/services"
	"restronaut/internal/workflow"
)

// DefaultRefreshInterval is used when a directory carries no refresh interval.
const DefaultRefreshInterval = time.Second

// Processor handles one file to completion.
type Processor interface {
	Process(ctx context.Context, file workflow.DropFile) workflow.Result
	Directory() config.Directory
	Stats() workflow.StatsSnapshot
}

// NewLimiter returns the semaphore shared by every monitor of a daemon.
func NewLimiter(maxConcurrency int) *semaphore.Weighted {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return semaphore.NewWeighted(int64(maxConcurrency))
}

type restartReason int

const (
	reasonUnhealthy restartReason = iota
	reasonResubscribe
)

// Monitor watches one drop folder.
type Monitor struct {
	dir    config.Directory
	proc   Processor
	sem    *semaphore.Weighted
	grace  time.Duration
	logger *slog.Logger

	mu sync.Mutex

	// inFlight maps a path being processed to whether another change
	// arrived meanwhile and the file needs one more pass.
	inFlight map[string]bool
	pending  map[string]*time.Timer
	closed   bool
	wg       sync.WaitGroup

	running    atomic.Bool
	discovered atomic.Int64
	duplicates atomic.Int64
	restarts   atomic.Int64
	lastSweep  atomic.Int64
	lastError  atomic.Value
}

// New builds a monitor for the processor's directory.
func New(proc Processor, sem *semaphore.Weighted, grace time.Duration, logger *slog.Logger) *Monitor {
	if sem == nil {
		sem = NewLimiter(1)
	}
	dir := proc.Directory()
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Monitor{
		dir:      dir,
		proc:     proc,
		sem:      sem,
		grace:    grace,
		logger:   logging.NewComponentLogger(logger, "watcher").With(logging.String(logging.FieldDirectory, dir.Name)),
		inFlight: make(map[string]bool),
		pending:  make(map[string]*time.Timer),
	}
}

// Directory returns the watched folder.
func (m *Monitor) Directory() config.Directory {
	return m.dir
}

// Run sweeps and watches the folder until ctx is cancelled, then waits up to
// the shutdown grace for in-flight files before cancelling them.
func (m *Monitor) Run(ctx context.Context) error {
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()
	defer m.drain(cancelWork)

	m.running.Store(true)
	defer m.running.Store(false)

	m.logger.Info("watching drop folder",
		logging.String("path", m.dir.Path),
		logging.String("filter", m.dir.Filter),
		logging.String(logging.FieldEventType, "monitor_started"),
	)

	sweep := true
	for ctx.Err() == nil {
		w, ident, err := m.subscribe()
		if err != nil {
			m.setError(err)
			logging.WarnWithContext(m.logger, "drop folder subscription failed; retrying", "subscribe_failed",
				logging.String("path", m.dir.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "make sure the folder exists and is readable"),
				logging.String(logging.FieldImpact, "new files are not picked up until the folder is back"),
			)
			if !waitFor(ctx, m.refreshInterval()) {
				break
			}
			sweep = true
			continue
		}
		if sweep {
			m.sweep(ctx, workCtx, workflow.TriggerSweep)
		}
		reason, done := m.watch(ctx, workCtx, w, ident)
		if cerr := w.Close(); cerr != nil {
			m.logger.Debug("close subscription", logging.Error(cerr))
		}
		if done {
			break
		}
		sweep = reason == reasonUnhealthy
		if sweep {
			m.restarts.Add(1)
		}
	}
	return nil
}

func (m *Monitor) subscribe() (*fsnotify.Watcher, os.FileInfo, error) {
	info, err := os.Stat(m.dir.Path)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransientIO, "watcher", "stat", m.dir.Path, err)
	}
	if !info.IsDir() {
		return nil, nil, services.Wrap(services.ErrConfiguration, "watcher", "stat", m.dir.Path+" is not a directory", nil)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransientIO, "watcher", "subscribe", "create watcher", err)
	}
	if err := w.Add(m.dir.Path); err != nil {
		_ = w.Close()
		return nil, nil, services.Wrap(services.ErrTransientIO, "watcher", "subscribe", m.dir.Path, err)
	}
	return w, info, nil
}

// watch consumes events until the subscription must be rebuilt or ctx ends.
// done reports that ctx ended.
func (m *Monitor) watch(ctx, workCtx context.Context, w *fsnotify.Watcher, ident os.FileInfo) (restartReason, bool) {
	refresh := time.NewTicker(m.refreshInterval())
	defer refresh.Stop()

	var rescan <-chan time.Time
	if m.dir.RescanInterval > 0 {
		ticker := time.NewTicker(m.dir.RescanInterval)
		defer ticker.Stop()
		rescan = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return reasonUnhealthy, true

		case ev, ok := <-w.Events:
			if !ok {
				return reasonUnhealthy, false
			}
			m.handleEvent(ctx, workCtx, ev)

		case err, ok := <-w.Errors:
			if !ok {
				return reasonUnhealthy, false
			}
			m.setError(err)
			logging.WarnWithContext(m.logger, "drop folder notification error; resubscribing", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the folder is swept again after resubscribing"),
				logging.String(logging.FieldImpact, "events may have been dropped"),
			)
			return reasonUnhealthy, false

		case <-refresh.C:
			if err := m.healthy(ident); err != nil {
				m.setError(err)
				logging.WarnWithContext(m.logger, "drop folder changed underneath the subscription; resubscribing", "watch_unhealthy",
					logging.String("path", m.dir.Path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "the folder was removed or replaced"),
					logging.String(logging.FieldImpact, "files are picked up again once the folder is back"),
				)
				return reasonUnhealthy, false
			}
			if m.dir.Resubscribe {
				return reasonResubscribe, false
			}

		case <-rescan:
			m.sweep(ctx, workCtx, workflow.TriggerRescan)
		}
	}
}

func (m *Monitor) healthy(ident os.FileInfo) error {
	info, err := os.Stat(m.dir.Path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is no longer a directory", m.dir.Path)
	}
	if !os.SameFile(info, ident) {
		return fmt.Errorf("%s was replaced", m.dir.Path)
	}
	return nil
}

func (m *Monitor) handleEvent(ctx, workCtx context.Context, ev fsnotify.Event) {
	var trigger workflow.Trigger
	switch {
	case ev.Has(fsnotify.Create):
		trigger = workflow.TriggerCreate
	case ev.Has(fsnotify.Write):
		trigger = workflow.TriggerWrite
	case ev.Has(fsnotify.Rename):
		trigger = workflow.TriggerRename
	default:
		return
	}
	if filepath.Dir(ev.Name) != filepath.Clean(m.dir.Path) || !m.Matches(filepath.Base(ev.Name)) {
		return
	}
	m.settle(ctx, workCtx, ev.Name, trigger)
}

// settle schedules path once it has gone SettleDelay without another event.
// Each chunk a producer writes raises its own event.
func (m *Monitor) settle(ctx, workCtx context.Context, path string, trigger workflow.Trigger) {
	delay := m.dir.SettleDelay
	if delay <= 0 {
		m.scheduleExisting(ctx, workCtx, path, trigger)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if prev, ok := m.pending[path]; ok {
		prev.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.closed || m.pending[path] != timer {
			m.mu.Unlock()
			return
		}
		delete(m.pending, path)
		m.mu.Unlock()
		m.scheduleExisting(ctx, workCtx, path, trigger)
	})
	m.pending[path] = timer
}

func (m *Monitor) scheduleExisting(ctx, workCtx context.Context, path string, trigger workflow.Trigger) {
	if ctx.Err() != nil {
		return
	}
	// Rename reports the old name on some platforms; only schedule what is there.
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	m.schedule(ctx, workCtx, workflow.NewDropFile(path, trigger))
}

func (m *Monitor) sweep(ctx, workCtx context.Context, trigger workflow.Trigger) {
	entries, err := os.ReadDir(m.dir.Path)
	if err != nil {
		m.setError(err)
		logging.WarnWithContext(m.logger, "drop folder sweep failed", "sweep_failed",
			logging.String("path", m.dir.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check folder permissions"),
			logging.String(logging.FieldImpact, "existing files wait for the next sweep"),
		)
		return
	}
	scheduled := 0
	for _, entry := range entries {
		if entry.IsDir() || !m.Matches(entry.Name()) {
			continue
		}
		if m.schedule(ctx, workCtx, workflow.NewDropFile(filepath.Join(m.dir.Path, entry.Name()), trigger)) {
			scheduled++
		}
	}
	m.lastSweep.Store(time.Now().UnixNano())
	if scheduled > 0 {
		m.logger.Info("drop folder swept",
			logging.String("trigger", string(trigger)),
			logging.Int("scheduled", scheduled),
			logging.String(logging.FieldEventType, "folder_swept"),
		)
	}
}

// Matches reports whether a base name passes the folder filter, ignoring case.
func (m *Monitor) Matches(name string) bool {
	filter := strings.TrimSpace(m.dir.Filter)
	if filter == "" {
		return true
	}
	ok, err := filepath.Match(strings.ToLower(filter), strings.ToLower(name))
	return err == nil && ok
}

// schedule starts a processing goroutine for file unless it is filtered out
// or already in flight. A trigger for a file in flight is folded into one
// more pass after the current one, if the file is still there.
func (m *Monitor) schedule(ctx, workCtx context.Context, file workflow.DropFile) bool {
	if !m.Matches(file.Name) {
		return false
	}
	m.discovered.Add(1)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	if _, busy := m.inFlight[file.Path]; busy {
		m.inFlight[file.Path] = true
		m.mu.Unlock()
		m.duplicates.Add(1)
		m.logger.Debug("file already in flight; trigger folded",
			logging.String(logging.FieldFile, file.Path),
			logging.String("trigger", string(file.Trigger)),
		)
		return false
	}
	m.inFlight[file.Path] = false
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer m.release(file.Path)
		for m.process(ctx, workCtx, file) && m.again(ctx, file.Path) {
			file = workflow.NewDropFile(file.Path, workflow.TriggerWrite)
		}
	}()
	return true
}

func (m *Monitor) process(ctx, workCtx context.Context, file workflow.DropFile) bool {
	if err := m.sem.Acquire(workCtx, 1); err != nil {
		return false
	}
	defer m.sem.Release(1)
	if ctx.Err() != nil {
		return false
	}
	m.proc.Process(workCtx, file)
	return true
}

// again reports whether path changed while it was processed and is still
// present, clearing the request.
func (m *Monitor) again(ctx context.Context, path string) bool {
	m.mu.Lock()
	requested := m.inFlight[path]
	m.inFlight[path] = false
	m.mu.Unlock()
	if !requested || ctx.Err() != nil {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func (m *Monitor) release(path string) {
	m.mu.Lock()
	delete(m.inFlight, path)
	m.mu.Unlock()
}

func (m *Monitor) drain(cancelWork context.CancelFunc) {
	m.mu.Lock()
	m.closed = true
	for path, timer := range m.pending {
		timer.Stop()
		delete(m.pending, path)
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	if m.grace > 0 {
		timer := time.NewTimer(m.grace)
		defer timer.Stop()
		select {
		case <-done:
			return
		case <-timer.C:
		}
	}
	select {
	case <-done:
		return
	default:
	}
	logging.WarnWithContext(m.logger, "shutdown grace elapsed; cancelling in-flight files", "shutdown_cancel",
		logging.Int("in_flight", m.inFlightCount()),
		logging.String(logging.FieldErrorHint, "raise workflow.shutdown_grace_seconds if this happens often"),
		logging.String(logging.FieldImpact, "cancelled files stay in the folder and are handled on next start"),
	)
	cancelWork()
	<-done
}

func (m *Monitor) inFlightCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inFlight)
}

func (m *Monitor) refreshInterval() time.Duration {
	if m.dir.RefreshInterval > 0 {
		return m.dir.RefreshInterval
	}
	return DefaultRefreshInterval
}

func (m *Monitor) setError(err error) {
	if err != nil {
		m.lastError.Store(err.Error())
	}
}

func waitFor(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Snapshot is a point-in-time view of a monitor for status reporting.
type Snapshot struct {
	Directory  string                 `json:"directory"`
	Path       string                 `json:"path"`
	Role       string                 `json:"role"`
	Running    bool                   `json:"running"`
	Discovered int64                  `json:"discovered"`
	Duplicates int64                  `json:"duplicates"`
	InFlight   int                    `json:"in_flight"`
	Restarts   int64                  `json:"restarts"`
	LastSweep  time.Time              `json:"last_sweep,omitempty"`
	LastError  string                 `json:"last_error,omitempty"`
	Stats      workflow.StatsSnapshot `json:"stats"`
}

// Snapshot returns the monitor's counters.
func (m *Monitor) Snapshot() Snapshot {
	snap := Snapshot{
		Directory:  m.dir.Name,
		Path:       m.dir.Path,
		Role:       m.dir.Role,
		Running:    m.running.Load(),
		Discovered: m.discovered.Load(),
		Duplicates: m.duplicates.Load(),
		InFlight:   m.inFlightCount(),
		Restarts:   m.restarts.Load(),
		Stats:      m.proc.Stats(),
	}
	if ns := m.lastSweep.Load(); ns > 0 {
		snap.LastSweep = time.Unix(0, ns)
	}
	if msg, ok := m.lastError.Load().(string); ok {
		snap.LastError = msg
	}
	return snap
}

// ErrNoDirectories is returned when no watched folder is enabled.
var ErrNoDirectories = errors.New("no watched directories enabled")
