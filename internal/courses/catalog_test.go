package courses_test

import (
	"path/filepath"
	"testing"
	"time"

	"gradevault/internal/courses"
)

func TestUpdatePreservesRename(t *testing.T) {
	catalog := courses.NewCatalog(filepath.Join(t.TempDir(), "courses.json"))
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	added := catalog.Update([]courses.Course{
		{URL: "https://gs.example.com/courses/1", FullName: "CS 61A", Term: "Fall 2025"},
	}, now)
	if added != 1 {
		t.Fatalf("added = %d, want 1", added)
	}

	if !catalog.Rename("https://gs.example.com/courses/1", "Intro CS") {
		t.Fatal("rename failed for known course")
	}

	// Re-discovery refreshes fields but must keep the rename.
	later := now.Add(time.Hour)
	added = catalog.Update([]courses.Course{
		{URL: "https://gs.example.com/courses/1", FullName: "CS 61A (updated)", Term: "Fall 2025"},
	}, later)
	if added != 0 {
		t.Fatalf("added = %d, want 0 for existing course", added)
	}

	course, ok := catalog.Get("https://gs.example.com/courses/1")
	if !ok {
		t.Fatal("course missing after update")
	}
	if course.FullName != "CS 61A (updated)" {
		t.Fatalf("full name not refreshed: %q", course.FullName)
	}
	if course.Rename != "Intro CS" {
		t.Fatalf("rename lost: %q", course.Rename)
	}
	if course.DisplayName() != "Intro CS" {
		t.Fatalf("display name = %q", course.DisplayName())
	}
	if !course.UpdatedAt.Equal(later) {
		t.Fatalf("timestamp not refreshed: %v", course.UpdatedAt)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "courses.json")
	catalog := courses.NewCatalog(path)
	catalog.Update([]courses.Course{
		{URL: "https://gs.example.com/courses/2", FullName: "Math 54", Term: "Spring 2026"},
	}, time.Now().UTC())
	if err := catalog.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := courses.NewCatalog(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reloaded.Len() != 1 {
		t.Fatalf("reloaded %d entries, want 1", reloaded.Len())
	}
	course, ok := reloaded.Get("https://gs.example.com/courses/2")
	if !ok || course.FullName != "Math 54" {
		t.Fatalf("round trip lost data: %+v ok=%v", course, ok)
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	catalog := courses.NewCatalog(filepath.Join(t.TempDir(), "absent.json"))
	if err := catalog.Load(); err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if catalog.Len() != 0 {
		t.Fatalf("expected empty catalog, got %d", catalog.Len())
	}
}

func TestListOrdering(t *testing.T) {
	catalog := courses.NewCatalog(filepath.Join(t.TempDir(), "courses.json"))
	catalog.Update([]courses.Course{
		{URL: "u3", FullName: "Physics 7A", Term: "Spring 2026"},
		{URL: "u1", FullName: "CS 61A", Term: "Fall 2025"},
		{URL: "u2", FullName: "Math 54", Term: "Fall 2025"},
	}, time.Now().UTC())

	list := catalog.List()
	want := []string{"CS 61A", "Math 54", "Physics 7A"}
	for i, name := range want {
		if list[i].FullName != name {
			t.Fatalf("list[%d] = %q, want %q", i, list[i].FullName, name)
		}
	}
}
