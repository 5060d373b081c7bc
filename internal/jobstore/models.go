package jobstore

import (
	"strings"
	"time"
)

// JobStatus represents the lifecycle of an archival job.
type JobStatus string

const (
	JobInProgress JobStatus = "in_progress"
	JobDone       JobStatus = "done"
	JobError      JobStatus = "error"
	JobCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the job can no longer change state.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobDone, JobError, JobCancelled:
		return true
	default:
		return false
	}
}

// FileStatus represents the lifecycle of a single manifest file.
type FileStatus string

const (
	FilePending    FileStatus = "pending"
	FileInProgress FileStatus = "in_progress"
	FileDone       FileStatus = "done"
	FileError      FileStatus = "error"
	FileSkipped    FileStatus = "skipped"
)

// Terminal reports whether the file record can no longer change state.
func (s FileStatus) Terminal() bool {
	switch s {
	case FileDone, FileError, FileSkipped:
		return true
	default:
		return false
	}
}

// ParseFileStatus converts a string into a known FileStatus.
func ParseFileStatus(value string) (FileStatus, bool) {
	normalized := FileStatus(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case FilePending, FileInProgress, FileDone, FileError, FileSkipped:
		return normalized, true
	default:
		return "", false
	}
}

// Job is the single active unit of archival work persisted in SQLite.
//
// Owner, Branch, ParentSHA, BaseTreeSHA, and ReadmeBlobSHA stay empty until
// one-time repository initialization has run; their presence is the
// idempotency guard that keeps initialization from running twice.
type Job struct {
	ID            int64
	CourseID      string
	CourseName    string
	RepoName      string
	Visibility    string
	Status        JobStatus
	Owner         string
	Branch        string
	ParentSHA     string
	BaseTreeSHA   string
	ReadmeBlobSHA string
	CommitSHA     string
	ErrorMessage  string
	ProgressStep  string
	ProgressPct   float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Initialized reports whether one-time repository initialization completed.
func (j *Job) Initialized() bool {
	return j != nil && j.Owner != "" && j.Branch != "" && j.ReadmeBlobSHA != ""
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = JobError
	j.ErrorMessage = message
	j.ProgressStep = "Failed"
}

// FileRecord is one manifest entry tracked through fetch and upload.
//
// URL may be rewritten in place by the alternate-URL ladder; TriedURLs grows
// monotonically and bounds that ladder. OriginalPath is retained when Path
// is corrected after extension sniffing so the final commit can express the
// rename as a delete plus an add.
type FileRecord struct {
	ID           int64
	JobID        int64
	Seq          int
	URL          string
	Path         string
	OriginalPath string
	Filename     string
	MimeType     string
	Status       FileStatus
	BlobSHA      string
	TriedURLs    []string
	ErrorMessage string
	NotBefore    time.Time
	UpdatedAt    time.Time
}

// Due reports whether a pending record may be dispatched at now. A
// rate-limited upload parks the record with a future NotBefore; the
// poll loop must not re-dispatch it before that time arrives.
func (f *FileRecord) Due(now time.Time) bool {
	return f.NotBefore.IsZero() || !now.Before(f.NotBefore)
}

// Tried reports whether a URL was already attempted for this record.
func (f *FileRecord) Tried(url string) bool {
	for _, u := range f.TriedURLs {
		if u == url {
			return true
		}
	}
	return false
}

// RecordTried adds a URL to the tried set if not already present.
func (f *FileRecord) RecordTried(url string) {
	if url == "" || f.Tried(url) {
		return
	}
	f.TriedURLs = append(f.TriedURLs, url)
}

// SetError marks the record as terminally failed.
func (f *FileRecord) SetError(message string) {
	f.Status = FileError
	f.ErrorMessage = message
}

// SetSkipped marks the record as skipped with a reason.
func (f *FileRecord) SetSkipped(reason string) {
	f.Status = FileSkipped
	f.ErrorMessage = reason
}

// Seed is one manifest entry used to populate a new job.
type Seed struct {
	URL  string
	Path string
}

// FileStats aggregates file record counts per status for one job.
type FileStats struct {
	Total      int
	Pending    int
	InProgress int
	Done       int
	Errored    int
	Skipped    int
}

// AllTerminal reports whether every file reached a terminal status.
func (s FileStats) AllTerminal() bool {
	return s.Total > 0 && s.Pending == 0 && s.InProgress == 0
}

// Completed counts files that finished, successfully or not.
func (s FileStats) Completed() int {
	return s.Done + s.Errored + s.Skipped
}
