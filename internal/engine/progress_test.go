package engine

import (
	"testing"

	"gradevault/internal/jobstore"
)

func TestProjectPct(t *testing.T) {
	tests := []struct {
		name  string
		stats jobstore.FileStats
		frac  float64
		want  float64
	}{
		{"empty manifest", jobstore.FileStats{}, 0, 0},
		{"nothing done", jobstore.FileStats{Total: 4, Pending: 4}, 0, 0},
		{"half done", jobstore.FileStats{Total: 4, Done: 2, Pending: 2}, 0, 50},
		{"partial credit for in-flight", jobstore.FileStats{Total: 4, Done: 2, InProgress: 1, Pending: 1}, 0.5, 62.5},
		{"skips and errors count as completed", jobstore.FileStats{Total: 4, Done: 2, Skipped: 1, Errored: 1}, 0, 100},
		{"fraction clamped", jobstore.FileStats{Total: 2, Done: 1, InProgress: 1}, 3, 100},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := projectPct(tc.stats, tc.frac); got != tc.want {
				t.Fatalf("projectPct = %v, want %v", got, tc.want)
			}
		})
	}
}
