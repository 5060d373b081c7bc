package testsupport

import (
	"context"
	"fmt"
	"testing"

	"gradevault/internal/config"
	"gradevault/internal/jobstore"
)

// MustOpenStore opens a jobstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobstore.Store {
	t.Helper()

	store, err := jobstore.Open(cfg)
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedJob creates a job with n generated manifest entries.
func SeedJob(t testing.TB, store *jobstore.Store, n int) *jobstore.Job {
	t.Helper()

	seeds := make([]jobstore.Seed, 0, n)
	for i := 0; i < n; i++ {
		seeds = append(seeds, jobstore.Seed{
			URL:  fmt.Sprintf("https://submissions.example.edu/s/%d", i+1),
			Path: fmt.Sprintf("hw%d/submission-%d.pdf", i+1, i+1),
		})
	}
	return SeedJobWith(t, store, seeds)
}

// SeedJobWith creates a job from explicit manifest entries.
func SeedJobWith(t testing.TB, store *jobstore.Store, seeds []jobstore.Seed) *jobstore.Job {
	t.Helper()

	job, err := store.CreateJob(context.Background(), &jobstore.Job{
		CourseID:   "course-42",
		CourseName: "Systems Programming",
		RepoName:   "systems-programming-archive",
		Visibility: "private",
	}, seeds)
	if err != nil {
		t.Fatalf("store.CreateJob: %v", err)
	}
	return job
}
