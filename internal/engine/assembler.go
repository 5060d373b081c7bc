package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gradevault/internal/contentstore"
	"gradevault/internal/jobstore"
	"gradevault/internal/logging"
)

// finalize builds the single archive commit once every file is
// terminal. Each attempt re-reads the branch tip so a concurrently
// advanced branch is respected rather than clobbered; a rejected
// fast-forward triggers a full rebuild against the fresh tip, up to a
// small fixed bound.
func (e *Engine) finalize(ctx context.Context, job *jobstore.Job, stats jobstore.FileStats) error {
	job.ProgressStep = StepFinalizing
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return err
	}
	e.reportProgress(ctx, job.ID, StepFinalizing, 0)

	files, err := e.store.Files(ctx, job.ID)
	if err != nil {
		return err
	}

	attempts := e.cfg.Workflow.FinalizeAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := time.Duration(e.cfg.Workflow.FinalizeBackoffMS) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, backoff<<(attempt-1)); err != nil {
				return err
			}
		}
		commitSHA, err := e.assembleCommit(ctx, job, files)
		if err == nil {
			job.Status = jobstore.JobDone
			job.CommitSHA = commitSHA
			job.ProgressStep = StepCompleted
			job.ProgressPct = 100
			if err := e.store.UpdateJob(ctx, job); err != nil {
				return err
			}
			e.logger.Info("job completed",
				logging.Int64(logging.FieldJobID, job.ID),
				logging.String("commit", commitSHA),
				logging.Int("archived", stats.Done),
				logging.Int("failed", stats.Errored),
				logging.Int("skipped", stats.Skipped),
			)
			if err := e.notifier.NotifyJobCompleted(ctx, job.CourseName, job.RepoName,
				commitSHA, stats.Done, stats.Errored); err != nil {
				e.logger.Warn("completion notification failed", logging.Error(err))
			}
			return nil
		}

		lastErr = err
		if !refRaceRetryable(err) {
			break
		}
		e.logger.Warn("finalize attempt failed, retrying with fresh tip",
			logging.Int64(logging.FieldJobID, job.ID),
			logging.Int("attempt", attempt+1),
			logging.Error(err),
		)
	}

	e.failJob(ctx, job, fmt.Sprintf("finalize failed: %v", lastErr))
	return lastErr
}

// assembleCommit performs one create-tree, create-commit, update-ref
// sequence against a freshly read branch tip. No job state is mutated
// here; a failure leaves nothing partial behind except unreferenced
// objects, which are harmless.
func (e *Engine) assembleCommit(ctx context.Context, job *jobstore.Job, files []*jobstore.FileRecord) (string, error) {
	parentSHA := ""
	baseTreeSHA := ""
	tip, err := e.objects.GetRef(ctx, job.Owner, job.RepoName, job.Branch)
	switch {
	case err == nil:
		parentSHA = tip
		commit, err := e.objects.GetCommit(ctx, job.Owner, job.RepoName, tip)
		if err != nil {
			return "", fmt.Errorf("resolve base tree: %w", err)
		}
		baseTreeSHA = commit.TreeSHA
	case isNotFound(err):
		// Unborn branch.
	default:
		return "", fmt.Errorf("resolve branch tip: %w", err)
	}

	entries := []contentstore.TreeEntry{
		contentstore.BlobEntry("README.md", job.ReadmeBlobSHA),
	}
	added := make(map[string]bool)
	for _, file := range files {
		if file.Status != jobstore.FileDone || file.BlobSHA == "" {
			continue
		}
		entries = append(entries, contentstore.BlobEntry(file.Path, file.BlobSHA))
		added[file.Path] = true
	}
	// Express extension corrections as renames: delete the original
	// path when it could exist in the base tree from a previous run.
	if baseTreeSHA != "" {
		for _, file := range files {
			if file.OriginalPath == "" || file.OriginalPath == file.Path || added[file.OriginalPath] {
				continue
			}
			entries = append(entries, contentstore.DeleteEntry(file.OriginalPath))
		}
	}

	treeSHA, err := e.objects.CreateTree(ctx, job.Owner, job.RepoName, entries, baseTreeSHA)
	if err != nil {
		return "", fmt.Errorf("create tree: %w", err)
	}

	parents := []string{}
	if parentSHA != "" {
		parents = append(parents, parentSHA)
	}
	message := fmt.Sprintf("Archive %s", job.CourseName)
	commitSHA, err := e.objects.CreateCommit(ctx, job.Owner, job.RepoName, message, treeSHA, parents)
	if err != nil {
		return "", fmt.Errorf("create commit: %w", err)
	}

	if parentSHA == "" {
		err = e.objects.CreateRef(ctx, job.Owner, job.RepoName, job.Branch, commitSHA)
	} else {
		err = e.objects.UpdateRef(ctx, job.Owner, job.RepoName, job.Branch, commitSHA)
	}
	if err != nil {
		return "", fmt.Errorf("advance ref: %w", err)
	}
	return commitSHA, nil
}

// refRaceRetryable reports whether a finalize failure is worth another
// attempt against a refreshed tip.
func refRaceRetryable(err error) bool {
	var apiErr *contentstore.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.FastForwardRejected() || apiErr.RateLimited() || apiErr.StatusCode >= 500
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
