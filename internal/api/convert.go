package api

import (
	"time"

	"gradevault/internal/courses"
	"gradevault/internal/jobstore"
)

// FromJob converts a job record and its file stats to the API view.
func FromJob(job *jobstore.Job, stats jobstore.FileStats) JobView {
	if job == nil {
		return JobView{}
	}
	view := JobView{
		ID:           job.ID,
		CourseID:     job.CourseID,
		CourseName:   job.CourseName,
		RepoName:     job.RepoName,
		Visibility:   job.Visibility,
		Status:       string(job.Status),
		Owner:        job.Owner,
		Branch:       job.Branch,
		CommitSHA:    job.CommitSHA,
		ErrorMessage: job.ErrorMessage,
		Progress: ProgressView{
			Step:    job.ProgressStep,
			Percent: job.ProgressPct,
			Files:   FromFileStats(stats),
		},
	}
	view.CreatedAt = FormatTime(job.CreatedAt)
	view.UpdatedAt = FormatTime(job.UpdatedAt)
	return view
}

// FromFileStats converts store aggregates to the API representation.
func FromFileStats(stats jobstore.FileStats) FileCounts {
	return FileCounts{
		Total:      stats.Total,
		Pending:    stats.Pending,
		InProgress: stats.InProgress,
		Done:       stats.Done,
		Errored:    stats.Errored,
		Skipped:    stats.Skipped,
	}
}

// FromFile converts a file record to its API representation.
func FromFile(file *jobstore.FileRecord) FileView {
	if file == nil {
		return FileView{}
	}
	return FileView{
		ID:           file.ID,
		Seq:          file.Seq,
		URL:          file.URL,
		Path:         file.Path,
		OriginalPath: file.OriginalPath,
		Filename:     file.Filename,
		MimeType:     file.MimeType,
		Status:       string(file.Status),
		BlobSHA:      file.BlobSHA,
		Attempts:     len(file.TriedURLs),
		ErrorMessage: file.ErrorMessage,
		UpdatedAt:    FormatTime(file.UpdatedAt),
	}
}

// FromFiles converts a slice of file records into API views.
func FromFiles(files []*jobstore.FileRecord) []FileView {
	if len(files) == 0 {
		return nil
	}
	out := make([]FileView, 0, len(files))
	for _, file := range files {
		out = append(out, FromFile(file))
	}
	return out
}

// FromCourse converts a catalog entry to its API representation.
func FromCourse(course courses.Course) CourseView {
	return CourseView{
		URL:       course.URL,
		Name:      course.DisplayName(),
		FullName:  course.FullName,
		ShortName: course.ShortName,
		Term:      course.Term,
		UpdatedAt: FormatTime(course.UpdatedAt),
	}
}

// FromCourses converts catalog entries into API views, preserving order.
func FromCourses(list []courses.Course) []CourseView {
	if len(list) == 0 {
		return nil
	}
	out := make([]CourseView, 0, len(list))
	for _, course := range list {
		out = append(out, FromCourse(course))
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns the empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
