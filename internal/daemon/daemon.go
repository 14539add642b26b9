package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"automerge/internal/api"
	"automerge/internal/catalog"
	"automerge/internal/config"
	"automerge/internal/logging"
	"automerge/internal/notifications"
	"automerge/internal/tasks"
)

// ErrNotRunning reports a trigger sent to a stopped daemon.
var ErrNotRunning = errors.New("daemon not running")

// ErrUnknownTask reports a trigger for a task key the daemon does not host.
var ErrUnknownTask = errors.New("unknown task")

// Daemon coordinates the background tasks and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	store   catalog.Store
	backend string
	logger  *slog.Logger
	merge   *tasks.MergeTask
	split   *tasks.SplitTask
	api     *apiServer
	notify  notifications.Service

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time

	// pollInterval and mergeDelay default to the config values; tests shorten them.
	pollInterval time.Duration
	mergeDelay   time.Duration

	runs *runRegistry
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	Backend      string
	LockFilePath string
	AutoMerge    bool
	Tasks        []api.TaskStatus
}

// New constructs a daemon around store. backend names the store for status output.
func New(cfg *config.Config, store catalog.Store, backend string, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	opts := tasks.OptionsFromConfig(cfg)
	d := &Daemon{
		cfg:          cfg,
		store:        store,
		backend:      backend,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		merge:        tasks.NewMergeTask(store, opts, logger),
		split:        tasks.NewSplitTask(store, opts, logger),
		lockPath:     cfg.LockPath(),
		lock:         flock.New(cfg.LockPath()),
		pollInterval: cfg.ChangePollInterval(),
		mergeDelay:   cfg.AutoMergeDelay(),
		runs:         newRunRegistry(),
		notify:       notifications.NewService(cfg),
	}
	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the daemon lock, starts the API server, and launches the
// scheduler and change watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(d.cfg.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another automerge daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api: %w", err)
	}

	d.startedAt = time.Now()
	d.running.Store(true)

	if interval := d.cfg.MergeInterval(); interval > 0 {
		d.wg.Add(1)
		go d.scheduleLoop(d.ctx, interval)
	}
	if d.cfg.Merge.RunAutomatically && d.pollInterval > 0 {
		d.wg.Add(1)
		go d.watchLoop(d.ctx, newChangeWatcher(d.store))
	}

	d.logger.Info("automerge daemon started",
		logging.String("lock", d.lockPath),
		logging.String("backend", d.backend),
		logging.Bool("auto_merge", d.cfg.Merge.RunAutomatically),
		logging.Duration("merge_interval", d.cfg.MergeInterval()),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop cancels in-flight runs, waits for background loops, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "a stale lock file may remain"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("automerge daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddr returns the address the API server listens on, or "" when disabled.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    d.startedAt,
		Backend:      d.backend,
		LockFilePath: d.lockPath,
		AutoMerge:    d.cfg.Merge.RunAutomatically,
		Tasks: []api.TaskStatus{
			api.FromMetadata(d.merge.Metadata(), d.merge.Running(), d.runs.last(tasks.MergeKey)),
			api.FromMetadata(d.split.Metadata(), d.split.Running(), d.runs.last(tasks.SplitKey)),
		},
	}
}

// SplitByProvider runs a targeted split on the caller's goroutine.
func (d *Daemon) SplitByProvider(ctx context.Context, providerType, providerValue string) (bool, error) {
	ctx = d.runContext(ctx, tasks.SplitKey, newRunID())
	return d.split.SplitByProvider(ctx, providerType, providerValue)
}

// Providers lists the distinct provider types present across the catalog.
func (d *Daemon) Providers(ctx context.Context) ([]string, error) {
	records, err := d.store.ListRecords(ctx, catalog.Query{})
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	return catalog.ProviderTypes(records), nil
}

// Groups returns the classes a merge would consolidate right now.
func (d *Daemon) Groups(ctx context.Context) ([]api.Group, error) {
	plans, err := d.merge.Plan(ctx)
	if err != nil {
		return nil, err
	}
	return api.FromPlans(plans), nil
}

func (d *Daemon) task(key string) (tasks.Task, func() bool, error) {
	switch key {
	case tasks.MergeKey:
		return d.merge, d.merge.Running, nil
	case tasks.SplitKey:
		return d.split, d.split.Running, nil
	default:
		return nil, nil, fmt.Errorf("%w %q", ErrUnknownTask, key)
	}
}
