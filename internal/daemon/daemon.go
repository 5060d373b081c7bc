package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"gradevault/internal/config"
	"gradevault/internal/courses"
	"gradevault/internal/engine"
	"gradevault/internal/jobstore"
	"gradevault/internal/logging"
)

// Daemon coordinates the archival engine and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *jobstore.Store
	engine  *engine.Engine
	catalog *courses.Catalog

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	JobDBPath    string
	LockFilePath string
	Job          *jobstore.Job
	Stats        jobstore.FileStats
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobstore.Store, eng *engine.Engine, catalog *courses.Catalog, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || eng == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, engine, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "gradevaultd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		engine:   eng,
		catalog:  catalog,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, launches the engine, and begins
// serving the HTTP API when a bind address is configured.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(d.cfg.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("ensure log dir: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another gradevault daemon instance is already running")
	}

	dctx, cancel := context.WithCancel(ctx)
	if err := d.engine.Start(dctx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start engine: %w", err)
	}
	d.cancel = cancel

	srv, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.engine.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}
	d.api = srv
	if err := d.api.start(dctx); err != nil {
		d.engine.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		d.api = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("gradevault daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the engine and API server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.api = nil
	d.engine.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("gradevault daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the bound HTTP API address, or empty when the API is
// not serving.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// ActiveJob returns the current non-terminal job with its file stats.
// Both return values are zero when no job is active.
func (d *Daemon) ActiveJob(ctx context.Context) (*jobstore.Job, jobstore.FileStats, error) {
	job, err := d.store.ActiveJob(ctx)
	if err != nil {
		return nil, jobstore.FileStats{}, err
	}
	if job == nil {
		return nil, jobstore.FileStats{}, nil
	}
	stats, err := d.store.Stats(ctx, job.ID)
	if err != nil {
		return nil, jobstore.FileStats{}, err
	}
	return job, stats, nil
}

// JobFiles returns the file records of the given job in manifest order.
func (d *Daemon) JobFiles(ctx context.Context, jobID int64) ([]*jobstore.FileRecord, error) {
	return d.store.Files(ctx, jobID)
}

// Courses returns the catalog entries, empty when no catalog is wired.
func (d *Daemon) Courses() []courses.Course {
	if d.catalog == nil {
		return nil
	}
	return d.catalog.List()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		JobDBPath:    d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if job, stats, err := d.ActiveJob(ctx); err == nil && job != nil {
		status.Job = job
		status.Stats = stats
	}
	return status
}
