package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"gradevault/internal/contentstore"
	"gradevault/internal/fetch"
	"gradevault/internal/jobstore"
	"gradevault/internal/logging"
	"gradevault/internal/payload"
)

// processFile drives one pending file to done, error, skipped, or back
// to pending (ladder step or rate-limit requeue). The in_progress
// checkpoint lands before the network call; a restart after that point
// is what Recover corrects for.
func (e *Engine) processFile(ctx context.Context, job *jobstore.Job, file *jobstore.FileRecord) {
	logger := e.logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int64(logging.FieldFileID, file.ID),
		logging.String("path", file.Path),
		logging.String("attempt_id", uuid.NewString()),
	)

	file.Status = jobstore.FileInProgress
	file.NotBefore = time.Time{}
	file.RecordTried(file.URL)
	if err := e.store.UpdateFile(ctx, file); err != nil {
		logger.Error("checkpoint before fetch failed", logging.Error(err))
		return
	}
	e.reportProgress(ctx, job.ID, StepArchiving, 0)

	logger.Info("fetching file", logging.String("url", file.URL))
	resp, err := e.proxy.Fetch(ctx, fetch.Request{
		URL:     file.URL,
		Path:    file.Path,
		Timeout: time.Duration(e.cfg.Fetch.RequestTimeout) * time.Second,
		Progress: func(received, total int64) {
			if total > 0 {
				e.reportProgress(ctx, job.ID, StepArchiving, float64(received)/float64(total))
			}
		},
	})
	if err != nil {
		// Context cancellation: leave the record in_progress for the
		// next recovery pass.
		logger.Warn("fetch aborted", logging.Error(err))
		return
	}

	// Post-fetch resumption point: results for a job that was
	// cancelled or replaced mid-flight are discarded.
	current, err := e.store.GetJob(ctx, job.ID)
	if err != nil || current == nil || current.Status != jobstore.JobInProgress {
		logger.Info("discarding fetch result for inactive job")
		return
	}
	reloaded, err := e.store.GetFile(ctx, file.ID)
	if err != nil || reloaded == nil || reloaded.Status != jobstore.FileInProgress {
		logger.Info("discarding fetch result for superseded file")
		return
	}
	file = reloaded
	job = current

	switch resp.Kind {
	case fetch.KindTooLarge:
		file.SetSkipped(fmt.Sprintf("file too large: %d bytes", resp.DeclaredSize))
		e.checkpointAndWake(ctx, file, logger, "file skipped")

	case fetch.KindError:
		e.descendLadder(ctx, file, logger, "", fmt.Sprintf("fetch failed: %s", resp.Message))

	case fetch.KindResult:
		cls := payload.Classify(resp.ContentType, resp.Bytes)
		if cls.Kind == payload.KindLikelyText {
			embedded, _ := payload.ExtractEmbeddedURL(resp.Bytes)
			e.descendLadder(ctx, file, logger, embedded,
				"response looks like a page, not the file")
			return
		}
		e.upload(ctx, job, file, resp, cls, logger)
	}
}

// upload corrects the destination path from the sniffed extension,
// creates the blob, and settles the record. Rate limits requeue the
// file with the server-specified delay instead of failing it.
func (e *Engine) upload(ctx context.Context, job *jobstore.Job, file *jobstore.FileRecord, resp *fetch.Response, cls payload.Classification, logger *slog.Logger) {
	ext := cls.Ext
	if ext == "" {
		ext = payload.ResolveExt(resp.ContentType, resp.ResolvedFilename, resp.Bytes, file.URL)
	}
	if corrected, changed := payload.CorrectPath(file.Path, ext); changed {
		file.OriginalPath = file.Path
		file.Path = corrected
		logger.Info("corrected path extension", logging.String("corrected", corrected))
	}
	if file.Filename == "" {
		if resp.ResolvedFilename != "" {
			file.Filename = resp.ResolvedFilename
		} else {
			file.Filename = path.Base(file.Path)
		}
	}
	file.MimeType = resp.ContentType

	blobSHA, err := e.objects.CreateBlob(ctx, job.Owner, job.RepoName, resp.Bytes)
	if err != nil {
		var apiErr *contentstore.APIError
		if errors.As(err, &apiErr) && apiErr.RateLimited() {
			delay := apiErr.RetryAfter
			if delay <= 0 {
				delay = time.Duration(e.cfg.Workflow.ErrorRetryInterval) * time.Second
			}
			// The due time is persisted so the poll ticker cannot
			// re-dispatch the record before the server-specified
			// delay elapses; the scheduled wake resumes it promptly.
			file.Status = jobstore.FilePending
			file.NotBefore = time.Now().UTC().Add(delay)
			if storeErr := e.store.UpdateFile(ctx, file); storeErr != nil {
				logger.Warn("rate limit checkpoint failed", logging.Error(storeErr))
				return
			}
			logger.Info("rate limited, resume scheduled", logging.Duration("delay", delay))
			e.scheduler.ScheduleAfter(delay, e.Wake)
			return
		}
		file.SetError(fmt.Sprintf("upload failed: %v", err))
		e.checkpointAndWake(ctx, file, logger, "file errored")
		if notifyErr := e.notifier.NotifyError(ctx, err, file.Path); notifyErr != nil {
			logger.Warn("error notification failed", logging.Error(notifyErr))
		}
		return
	}

	file.Status = jobstore.FileDone
	file.BlobSHA = blobSHA
	e.checkpointAndWake(ctx, file, logger, "file archived")
	e.reportProgress(ctx, job.ID, StepArchiving, 0)
}

// descendLadder rewrites the file URL to the next untried candidate
// and requeues it with a short backoff, or fails the record when the
// deterministic candidate set is exhausted. The ladder is bounded by
// the tried-URL set, which only grows.
func (e *Engine) descendLadder(ctx context.Context, file *jobstore.FileRecord, logger *slog.Logger, embedded, reason string) {
	next := ""
	if embedded != "" && !file.Tried(embedded) {
		next = embedded
	}
	if next == "" {
		base := file.URL
		if len(file.TriedURLs) > 0 {
			base = file.TriedURLs[0]
		}
		next = payload.NextAlternate(base, e.cfg.Fetch.AlternateSuffixes, file.Tried)
	}
	if next == "" {
		file.SetError(reason + "; no alternate URLs remain")
		e.checkpointAndWake(ctx, file, logger, "ladder exhausted")
		return
	}

	file.URL = next
	file.Status = jobstore.FilePending
	if err := e.store.UpdateFile(ctx, file); err != nil {
		logger.Warn("ladder checkpoint failed", logging.Error(err))
		return
	}
	logger.Info("retrying with alternate url", logging.String("url", next))
	backoff := time.Duration(e.cfg.Fetch.LadderBackoffMS) * time.Millisecond
	e.scheduler.ScheduleAfter(backoff, e.Wake)
}

func (e *Engine) checkpointAndWake(ctx context.Context, file *jobstore.FileRecord, logger *slog.Logger, event string) {
	if err := e.store.UpdateFile(ctx, file); err != nil {
		logger.Warn("checkpoint failed", logging.Error(err))
		return
	}
	logger.Info(event, logging.String("status", string(file.Status)))
	e.Wake()
}
