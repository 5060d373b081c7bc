package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"gradevault/internal/config"
)

// Store manages job persistence backed by SQLite. At most one job is active
// at a time; creating a new job replaces whatever job came before it.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the job database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// CreateJob replaces any existing job with a fresh one seeded from the
// manifest. Seeds must be non-empty with unique URLs; manifest order is
// preserved as the dispatch order.
func (s *Store) CreateJob(ctx context.Context, job *Job, seeds []Seed) (*Job, error) {
	if job == nil {
		return nil, errors.New("job is nil")
	}
	if len(seeds) == 0 {
		return nil, errors.New("manifest is empty")
	}
	seen := make(map[string]struct{}, len(seeds))
	for _, seed := range seeds {
		if strings.TrimSpace(seed.URL) == "" || strings.TrimSpace(seed.Path) == "" {
			return nil, fmt.Errorf("manifest entry missing url or path: %+v", seed)
		}
		if _, dup := seen[seed.URL]; dup {
			return nil, fmt.Errorf("manifest contains duplicate url %q", seed.URL)
		}
		seen[seed.URL] = struct{}{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
		return nil, fmt.Errorf("clear previous job: %w", err)
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	visibility := job.Visibility
	if visibility == "" {
		visibility = "private"
	}
	step := job.ProgressStep
	if step == "" {
		step = "Queued"
	}

	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO jobs (
            course_id, course_name, repo_name, visibility, status,
            progress_step, progress_pct, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.CourseID,
		nullableString(job.CourseName),
		job.RepoName,
		visibility,
		JobInProgress,
		step,
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	jobID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	insert, err := tx.PrepareContext(
		ctx,
		`INSERT INTO job_files (job_id, seq, url, path, status, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, fmt.Errorf("prepare file insert: %w", err)
	}
	defer insert.Close()

	for i, seed := range seeds {
		if _, err := insert.ExecContext(ctx, jobID, i, seed.URL, seed.Path, FilePending, timestamp); err != nil {
			return nil, fmt.Errorf("insert file %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit job: %w", err)
	}

	return s.GetJob(ctx, jobID)
}

// GetJob fetches a job by identifier. Returns nil when absent.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ActiveJob returns the single stored job, or nil when none exists.
func (s *Store) ActiveJob(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY id DESC LIMIT 1`)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active job: %w", err)
	}
	return job, nil
}

// UpdateJob persists changes to an existing job and bumps updated_at.
func (s *Store) UpdateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, owner = ?, branch = ?, parent_sha = ?, base_tree_sha = ?,
             readme_blob_sha = ?, commit_sha = ?, error_message = ?,
             progress_step = ?, progress_pct = ?, updated_at = ?
         WHERE id = ?`,
		job.Status,
		nullableString(job.Owner),
		nullableString(job.Branch),
		nullableString(job.ParentSHA),
		nullableString(job.BaseTreeSHA),
		nullableString(job.ReadmeBlobSHA),
		nullableString(job.CommitSHA),
		nullableString(job.ErrorMessage),
		nullableString(job.ProgressStep),
		job.ProgressPct,
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// SetProgress persists the progress projection for a job.
func (s *Store) SetProgress(ctx context.Context, jobID int64, step string, pct float64) error {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET progress_step = ?, progress_pct = ?, updated_at = ? WHERE id = ?`,
		step,
		pct,
		time.Now().UTC().Format(time.RFC3339Nano),
		jobID,
	)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

const jobColumns = "id, course_id, course_name, repo_name, visibility, status, owner, branch, parent_sha, base_tree_sha, readme_blob_sha, commit_sha, error_message, progress_step, progress_pct, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           int64
		courseID     string
		courseName   sql.NullString
		repoName     string
		visibility   string
		statusStr    string
		owner        sql.NullString
		branch       sql.NullString
		parentSHA    sql.NullString
		baseTreeSHA  sql.NullString
		readmeSHA    sql.NullString
		commitSHA    sql.NullString
		errorMessage sql.NullString
		progressStep sql.NullString
		progressPct  sql.NullFloat64
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&courseID,
		&courseName,
		&repoName,
		&visibility,
		&statusStr,
		&owner,
		&branch,
		&parentSHA,
		&baseTreeSHA,
		&readmeSHA,
		&commitSHA,
		&errorMessage,
		&progressStep,
		&progressPct,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:            id,
		CourseID:      courseID,
		CourseName:    courseName.String,
		RepoName:      repoName,
		Visibility:    visibility,
		Status:        JobStatus(statusStr),
		Owner:         owner.String,
		Branch:        branch.String,
		ParentSHA:     parentSHA.String,
		BaseTreeSHA:   baseTreeSHA.String,
		ReadmeBlobSHA: readmeSHA.String,
		CommitSHA:     commitSHA.String,
		ErrorMessage:  errorMessage.String,
		ProgressStep:  progressStep.String,
		ProgressPct:   progressPct.Float64,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
