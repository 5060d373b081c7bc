package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"gradevault/internal/services"
)

func TestConsoleHandlerRendersComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	logger = NewComponentLogger(logger, "engine")
	logger.Info("file archived", String("path", "hw1/report.pdf"), Int64(FieldFileID, 7))

	out := buf.String()
	if !strings.Contains(out, "INFO engine: file archived") {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.Contains(out, "path=hw1/report.pdf") || !strings.Contains(out, "file_id=7") {
		t.Fatalf("attrs missing from output: %q", out)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))
	logger.Warn("skip", String("reason", "too large"))
	if !strings.Contains(buf.String(), `reason="too large"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(newConsoleHandler(&buf, new(slog.LevelVar)))

	ctx := services.WithJobID(context.Background(), 3)
	ctx = services.WithStep(ctx, "fetch")
	WithContext(ctx, base).Info("working")

	out := buf.String()
	if !strings.Contains(out, "job_id=3") || !strings.Contains(out, "step=fetch") {
		t.Fatalf("context fields missing: %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
