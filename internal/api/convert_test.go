package api_test

import (
	"testing"
	"time"

	"gradevault/internal/api"
	"gradevault/internal/courses"
	"gradevault/internal/jobstore"
)

func TestFromJobProjectsProgressAndCounts(t *testing.T) {
	created := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	job := &jobstore.Job{
		ID:           7,
		CourseID:     "123456",
		CourseName:   "CS 61A: Fall 2025",
		RepoName:     "CS-61A-Fall-2025",
		Visibility:   "private",
		Status:       jobstore.JobInProgress,
		Owner:        "archive-bot",
		Branch:       "main",
		ProgressStep: "Archiving files",
		ProgressPct:  40,
		CreatedAt:    created,
		UpdatedAt:    created.Add(time.Minute),
	}
	stats := jobstore.FileStats{Total: 5, Pending: 2, InProgress: 1, Done: 1, Skipped: 1}

	view := api.FromJob(job, stats)
	if view.ID != 7 || view.Status != "in_progress" {
		t.Fatalf("unexpected job view: %+v", view)
	}
	if view.Progress.Step != "Archiving files" || view.Progress.Percent != 40 {
		t.Fatalf("unexpected progress: %+v", view.Progress)
	}
	if view.Progress.Files.Total != 5 || view.Progress.Files.Pending != 2 {
		t.Fatalf("unexpected file counts: %+v", view.Progress.Files)
	}
	if view.CreatedAt == "" || view.UpdatedAt == "" {
		t.Fatal("expected formatted timestamps")
	}
	if view.CreatedAt[:10] != "2026-03-14" {
		t.Fatalf("unexpected created timestamp %q", view.CreatedAt)
	}
}

func TestFromJobNil(t *testing.T) {
	view := api.FromJob(nil, jobstore.FileStats{})
	if view.ID != 0 || view.Status != "" {
		t.Fatalf("expected zero view, got %+v", view)
	}
}

func TestFromFileCountsAttempts(t *testing.T) {
	record := &jobstore.FileRecord{
		ID:        3,
		Seq:       2,
		URL:       "https://www.gradescope.com/files/9/download",
		Path:      "hw1/submission.pdf",
		Status:    jobstore.FileDone,
		BlobSHA:   "abc123",
		TriedURLs: []string{"https://www.gradescope.com/files/9", "https://www.gradescope.com/files/9/download"},
	}
	view := api.FromFile(record)
	if view.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", view.Attempts)
	}
	if view.Status != "done" || view.BlobSHA != "abc123" {
		t.Fatalf("unexpected file view: %+v", view)
	}
	if view.UpdatedAt != "" {
		t.Fatalf("zero time should format empty, got %q", view.UpdatedAt)
	}
}

func TestFromCoursePrefersRename(t *testing.T) {
	course := courses.Course{
		URL:      "https://www.gradescope.com/courses/42",
		FullName: "Data Structures",
		Term:     "Fall 2025",
		Rename:   "CS 61B",
	}
	view := api.FromCourse(course)
	if view.Name != "CS 61B" {
		t.Fatalf("name = %q, want rename", view.Name)
	}
	if view.FullName != "Data Structures" {
		t.Fatalf("full name lost: %+v", view)
	}
}
