package engine

import (
	"context"
	"errors"
	"fmt"

	"gradevault/internal/contentstore"
	"gradevault/internal/jobstore"
	"gradevault/internal/logging"
)

// Advance performs one idempotent step of the job state machine:
// initialize once, dispatch the next pending file, or finalize when
// every file is terminal. Calling it on a missing or terminal job is a
// no-op. The run loop, delayed wakes, and recovery all funnel here.
func (e *Engine) Advance(ctx context.Context) error {
	e.advanceMu.Lock()
	defer e.advanceMu.Unlock()

	job, err := e.store.ActiveJob(ctx)
	if err != nil {
		return err
	}
	if job == nil || job.Status != jobstore.JobInProgress {
		return nil
	}

	if !job.Initialized() {
		if err := e.initialize(ctx, job); err != nil {
			e.failJob(ctx, job, fmt.Sprintf("initialization failed: %v", err))
			return err
		}
	}

	stats, err := e.store.Stats(ctx, job.ID)
	if err != nil {
		return err
	}
	// Serialization invariant: never dispatch while a file is outstanding.
	if stats.InProgress > 0 {
		return nil
	}

	file, err := e.store.NextPending(ctx, job.ID)
	if err != nil {
		return err
	}
	if file != nil {
		e.processFile(ctx, job, file)
		return nil
	}

	if stats.AllTerminal() {
		return e.finalize(ctx, job, stats)
	}
	return nil
}

// initialize runs the one-time repository setup: ensure the remote
// repository exists, resolve the branch tip (absent for an unborn
// branch), and create the README blob. The populated metadata fields
// are the idempotency guard; a failure here aborts the whole job and
// is not retried automatically.
func (e *Engine) initialize(ctx context.Context, job *jobstore.Job) error {
	owner := e.cfg.ContentStore.Owner
	repo, err := e.objects.EnsureRepo(ctx, owner, job.RepoName, job.Visibility != "public")
	if err != nil {
		return fmt.Errorf("ensure repository: %w", err)
	}
	if repo.Owner.Login != "" {
		owner = repo.Owner.Login
	}
	branch := e.cfg.ContentStore.Branch
	if branch == "" {
		branch = repo.DefaultBranch
	}

	parentSHA := ""
	baseTreeSHA := ""
	tip, err := e.objects.GetRef(ctx, owner, job.RepoName, branch)
	switch {
	case err == nil:
		parentSHA = tip
		commit, err := e.objects.GetCommit(ctx, owner, job.RepoName, tip)
		if err != nil {
			return fmt.Errorf("resolve base tree: %w", err)
		}
		baseTreeSHA = commit.TreeSHA
	case isNotFound(err):
		// Unborn branch: first commit will have no parents.
	default:
		return fmt.Errorf("resolve branch tip: %w", err)
	}

	readmeSHA, err := e.objects.CreateBlob(ctx, owner, job.RepoName, []byte(renderREADME(job)))
	if err != nil {
		return fmt.Errorf("create readme blob: %w", err)
	}

	job.Owner = owner
	job.Branch = branch
	job.ParentSHA = parentSHA
	job.BaseTreeSHA = baseTreeSHA
	job.ReadmeBlobSHA = readmeSHA
	job.ProgressStep = StepArchiving
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return err
	}

	e.logger.Info("repository initialized",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("owner", owner),
		logging.String("branch", branch),
		logging.Bool("unborn", parentSHA == ""),
	)
	return nil
}

// failJob marks the whole job failed and notifies. Used only for
// initialization and finalization failures; file-level errors stay
// isolated to their record.
func (e *Engine) failJob(ctx context.Context, job *jobstore.Job, message string) {
	job.SetFailed(message)
	if err := e.store.UpdateJob(ctx, job); err != nil {
		e.logger.Error("failed to persist job failure", logging.Error(err))
	}
	e.logger.Error("job failed",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("reason", message),
	)
	if err := e.notifier.NotifyJobFailed(ctx, job.CourseName, message); err != nil {
		e.logger.Warn("job failed notification failed", logging.Error(err))
	}
}

func isNotFound(err error) bool {
	var apiErr *contentstore.APIError
	return errors.As(err, &apiErr) && apiErr.NotFound()
}
