package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CS 61A: Structure & Interpretation", "CS 61A Structure  Interpretation"},
		{"HW 3 (Resubmission)", "HW 3 Resubmission"},
		{"final_project.v2", "final_project.v2"},
		{"  padded  ", "padded"},
		{"///", ""},
	}
	for _, tc := range tests {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRepoName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CS 61A Fall 2025", "CS-61A-Fall-2025"},
		{"Math 54: Linear Algebra", "Math-54-Linear-Algebra"},
		{"  EECS   16B  ", "EECS-16B"},
	}
	for _, tc := range tests {
		if got := RepoName(tc.in); got != tc.want {
			t.Errorf("RepoName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizePathKeepsHierarchy(t *testing.T) {
	got := SanitizePath("HW 1: Intro/submission (graded).pdf")
	want := "HW 1 Intro/submission graded.pdf"
	if got != want {
		t.Fatalf("SanitizePath = %q, want %q", got, want)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := WriteFileAtomic(path, []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("content mismatch: %q", got)
	}

	// Overwrite must replace, not append.
	if err := WriteFileAtomic(path, []byte(`{"b":2}`), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic overwrite failed: %v", err)
	}
	got, _ = os.ReadFile(path)
	if string(got) != `{"b":2}` {
		t.Fatalf("overwrite mismatch: %q", got)
	}
}
