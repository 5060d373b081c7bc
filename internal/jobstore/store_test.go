package jobstore_test

import (
	"context"
	"testing"
	"time"

	"gradevault/internal/jobstore"
	"gradevault/internal/testsupport"
)

func TestCreateJobSeedsFilesInManifestOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.SeedJob(t, store, 3)
	if job.ID == 0 {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != jobstore.JobInProgress {
		t.Fatalf("unexpected status: %q", job.Status)
	}

	files, err := store.Files(ctx, job.ID)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}
	for i, file := range files {
		if file.Seq != i {
			t.Fatalf("file %d has seq %d", i, file.Seq)
		}
		if file.Status != jobstore.FilePending {
			t.Fatalf("file %d not pending: %q", i, file.Status)
		}
	}
}

func TestCreateJobReplacesPreviousJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.SeedJob(t, store, 2)
	second := testsupport.SeedJob(t, store, 1)

	active, err := store.ActiveJob(ctx)
	if err != nil {
		t.Fatalf("ActiveJob failed: %v", err)
	}
	if active == nil || active.ID != second.ID {
		t.Fatalf("expected job %d active, got %+v", second.ID, active)
	}

	gone, err := store.GetJob(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if gone != nil {
		t.Fatalf("expected first job removed, got %+v", gone)
	}
}

func TestCreateJobRejectsBadManifests(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := &jobstore.Job{CourseID: "c", RepoName: "r"}
	if _, err := store.CreateJob(ctx, base, nil); err == nil {
		t.Fatal("expected error for empty manifest")
	}
	dup := []jobstore.Seed{
		{URL: "https://x/1", Path: "a"},
		{URL: "https://x/1", Path: "b"},
	}
	if _, err := store.CreateJob(ctx, base, dup); err == nil {
		t.Fatal("expected error for duplicate url")
	}
}

func TestNextPendingFollowsManifestOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.SeedJob(t, store, 3)
	first, err := store.NextPending(ctx, job.ID)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if first == nil || first.Seq != 0 {
		t.Fatalf("expected seq 0, got %+v", first)
	}

	first.Status = jobstore.FileDone
	first.BlobSHA = "abc123"
	if err := store.UpdateFile(ctx, first); err != nil {
		t.Fatalf("UpdateFile failed: %v", err)
	}

	next, err := store.NextPending(ctx, job.ID)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next == nil || next.Seq != 1 {
		t.Fatalf("expected seq 1, got %+v", next)
	}
}

func TestNextPendingSkipsParkedRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.SeedJob(t, store, 2)
	files, err := store.Files(ctx, job.ID)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}

	// Park the first record with a future resume time; the second
	// pending record is dispatched in its place.
	files[0].NotBefore = time.Now().UTC().Add(time.Hour)
	if err := store.UpdateFile(ctx, files[0]); err != nil {
		t.Fatalf("UpdateFile failed: %v", err)
	}
	next, err := store.NextPending(ctx, job.ID)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next == nil || next.Seq != 1 {
		t.Fatalf("expected seq 1 while seq 0 is parked, got %+v", next)
	}

	// An elapsed resume time restores manifest order, and the gate
	// survives the round trip through the store.
	files[0].NotBefore = time.Now().UTC().Add(-time.Minute)
	if err := store.UpdateFile(ctx, files[0]); err != nil {
		t.Fatalf("UpdateFile failed: %v", err)
	}
	next, err = store.NextPending(ctx, job.ID)
	if err != nil {
		t.Fatalf("NextPending failed: %v", err)
	}
	if next == nil || next.Seq != 0 {
		t.Fatalf("expected seq 0 once due, got %+v", next)
	}
	if next.NotBefore.IsZero() {
		t.Fatal("resume time should round-trip through the store")
	}
}

func TestUpdateFileRoundTripsTriedURLs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.SeedJob(t, store, 1)
	files, err := store.Files(ctx, job.ID)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	file := files[0]
	file.RecordTried(file.URL)
	file.URL = file.URL + "/download"
	file.RecordTried(file.URL)
	file.RecordTried(file.URL) // no duplicate
	if err := store.UpdateFile(ctx, file); err != nil {
		t.Fatalf("UpdateFile failed: %v", err)
	}

	reloaded, err := store.GetFile(ctx, file.ID)
	if err != nil {
		t.Fatalf("GetFile failed: %v", err)
	}
	if len(reloaded.TriedURLs) != 2 {
		t.Fatalf("expected 2 tried urls, got %v", reloaded.TriedURLs)
	}
	if !reloaded.Tried(file.URL) {
		t.Fatal("expected url recorded as tried")
	}
}

func TestDemoteInProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.SeedJob(t, store, 2)
	files, err := store.Files(ctx, job.ID)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	files[0].Status = jobstore.FileInProgress
	if err := store.UpdateFile(ctx, files[0]); err != nil {
		t.Fatalf("UpdateFile failed: %v", err)
	}

	demoted, err := store.DemoteInProgress(ctx, job.ID)
	if err != nil {
		t.Fatalf("DemoteInProgress failed: %v", err)
	}
	if demoted != 1 {
		t.Fatalf("expected 1 demoted, got %d", demoted)
	}

	stats, err := store.Stats(ctx, job.ID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.InProgress != 0 || stats.Pending != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestStatsAllTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.SeedJob(t, store, 3)
	files, err := store.Files(ctx, job.ID)
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	statuses := []jobstore.FileStatus{jobstore.FileDone, jobstore.FileSkipped, jobstore.FileError}
	for i, file := range files {
		file.Status = statuses[i]
		if err := store.UpdateFile(ctx, file); err != nil {
			t.Fatalf("UpdateFile failed: %v", err)
		}
	}

	stats, err := store.Stats(ctx, job.ID)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if !stats.AllTerminal() {
		t.Fatalf("expected all terminal, got %+v", stats)
	}
	if stats.Completed() != 3 {
		t.Fatalf("expected 3 completed, got %d", stats.Completed())
	}
}

func TestSetProgressClampsPercent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.SeedJob(t, store, 1)
	if err := store.SetProgress(ctx, job.ID, "Uploading", 150); err != nil {
		t.Fatalf("SetProgress failed: %v", err)
	}
	reloaded, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if reloaded.ProgressPct != 100 {
		t.Fatalf("expected clamp to 100, got %f", reloaded.ProgressPct)
	}
	if reloaded.ProgressStep != "Uploading" {
		t.Fatalf("unexpected step: %q", reloaded.ProgressStep)
	}
}
