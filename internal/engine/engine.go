package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gradevault/internal/config"
	"gradevault/internal/contentstore"
	"gradevault/internal/enumerator"
	"gradevault/internal/fetch"
	"gradevault/internal/fileutil"
	"gradevault/internal/jobstore"
	"gradevault/internal/logging"
	"gradevault/internal/notifications"
	"gradevault/internal/services"
)

// ObjectStore is the slice of the content store client the engine uses.
// *contentstore.Client satisfies it; tests substitute a scripted fake.
type ObjectStore interface {
	EnsureRepo(ctx context.Context, owner, name string, private bool) (*contentstore.Repo, error)
	GetRef(ctx context.Context, owner, repo, branch string) (string, error)
	GetCommit(ctx context.Context, owner, repo, sha string) (*contentstore.Commit, error)
	CreateBlob(ctx context.Context, owner, repo string, content []byte) (string, error)
	CreateTree(ctx context.Context, owner, repo string, entries []contentstore.TreeEntry, baseTree string) (string, error)
	CreateCommit(ctx context.Context, owner, repo, message, tree string, parents []string) (string, error)
	CreateRef(ctx context.Context, owner, repo, branch, sha string) error
	UpdateRef(ctx context.Context, owner, repo, branch, sha string) error
}

// Engine coordinates the archival job lifecycle.
type Engine struct {
	cfg       *config.Config
	store     *jobstore.Store
	objects   ObjectStore
	proxy     fetch.Proxy
	notifier  notifications.Service
	scheduler Scheduler
	logger    *slog.Logger

	pollInterval time.Duration
	wake         chan struct{}

	// advanceMu serializes Advance so there is exactly one control
	// flow mutating the active job, even when timers and the run loop
	// fire together.
	advanceMu sync.Mutex

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures optional Engine behavior.
type Option func(*Engine)

// WithNotifier replaces the notification service (used in tests).
func WithNotifier(n notifications.Service) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithScheduler replaces the delayed-wake scheduler (used in tests).
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.scheduler = s }
}

// New constructs an engine. The poll interval is a safety net; normal
// progress is driven by explicit wakes after each completed step.
func New(cfg *config.Config, store *jobstore.Store, objects ObjectStore, proxy fetch.Proxy, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:          cfg,
		store:        store,
		objects:      objects,
		proxy:        proxy,
		notifier:     notifications.NewService(cfg),
		scheduler:    NewTimerScheduler(),
		logger:       logging.NewComponentLogger(logger, "engine"),
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		wake:         make(chan struct{}, 1),
	}
	if e.pollInterval <= 0 {
		e.pollInterval = 2 * time.Second
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins background processing and runs crash recovery once.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.wg.Add(1)
	e.mu.Unlock()

	if err := e.Recover(runCtx); err != nil {
		e.logger.Warn("crash recovery failed", logging.Error(err))
	}

	go e.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the loop to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
}

// Running reports whether the background loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Wake nudges the run loop without blocking. Safe from any goroutine.
func (e *Engine) Wake() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()
	e.Wake()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.wake:
		case <-time.After(e.pollInterval):
		}
		if err := e.Advance(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			e.logger.Error("advance failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "advance_failed"),
			)
		}
	}
}

// JobParams identifies the course being archived. RepoName, when
// empty, is derived from the course name.
type JobParams struct {
	CourseID   string
	CourseName string
	RepoName   string
	Visibility string
}

// StartJob validates the manifest, replaces any previous job with a
// fresh one, and wakes the loop. The previous job's history is
// discarded; at most one job exists at a time.
func (e *Engine) StartJob(ctx context.Context, params JobParams, entries []enumerator.Entry) (*jobstore.Job, error) {
	if err := enumerator.Validate(entries); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.CourseName) == "" {
		return nil, services.Wrap(services.ErrValidation, "engine", "start job",
			"course name is required", nil)
	}
	repoName := strings.TrimSpace(params.RepoName)
	if repoName == "" {
		repoName = fileutil.RepoName(params.CourseName)
	}
	visibility := params.Visibility
	if visibility == "" {
		visibility = "private"
	}

	seeds := make([]jobstore.Seed, len(entries))
	for i, entry := range entries {
		seeds[i] = jobstore.Seed{URL: entry.URL, Path: fileutil.SanitizePath(entry.Path)}
	}

	job := &jobstore.Job{
		CourseID:     params.CourseID,
		CourseName:   params.CourseName,
		RepoName:     repoName,
		Visibility:   visibility,
		Status:       jobstore.JobInProgress,
		ProgressStep: StepInitializing,
	}
	created, err := e.store.CreateJob(ctx, job, seeds)
	if err != nil {
		return nil, err
	}

	e.logger.Info("job started",
		logging.Int64(logging.FieldJobID, created.ID),
		logging.String("course", created.CourseName),
		logging.String("repo", created.RepoName),
		logging.Int("files", len(seeds)),
	)
	if err := e.notifier.NotifyJobStarted(ctx, created.CourseName, len(seeds)); err != nil {
		e.logger.Warn("job started notification failed", logging.Error(err))
	}
	e.Wake()
	return created, nil
}

// Cancel marks the active job cancelled. In-flight work finishes
// naturally; its result is discarded at the next status check.
func (e *Engine) Cancel(ctx context.Context) error {
	job, err := e.store.ActiveJob(ctx)
	if err != nil {
		return err
	}
	if job == nil || job.Status.Terminal() {
		return services.Wrap(services.ErrNotFound, "engine", "cancel",
			"no active job", nil)
	}
	job.Status = jobstore.JobCancelled
	job.ProgressStep = StepCancelled
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return err
	}
	e.logger.Info("job cancelled", logging.Int64(logging.FieldJobID, job.ID))
	return nil
}

// Recover demotes any orphaned in-progress file back to pending. The
// in-flight attempt from before the restart is presumed lost, not
// failed; the next Advance retries it from the top.
func (e *Engine) Recover(ctx context.Context) error {
	job, err := e.store.ActiveJob(ctx)
	if err != nil {
		return err
	}
	if job == nil || job.Status.Terminal() {
		return nil
	}
	demoted, err := e.store.DemoteInProgress(ctx, job.ID)
	if err != nil {
		return err
	}
	if demoted > 0 {
		e.logger.Info("recovered orphaned files",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Int64("demoted", demoted),
		)
	}
	e.Wake()
	return nil
}
