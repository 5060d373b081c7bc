package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gradevault/internal/notifications"
	"gradevault/internal/testsupport"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newNtfyServer(t *testing.T, sink *[]captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*sink = append(*sink, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNoopWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	service := notifications.NewService(cfg)
	if err := service.NotifyJobStarted(context.Background(), "CS 61A", 3); err != nil {
		t.Fatalf("noop service must not error: %v", err)
	}
}

func TestJobCompletedMessage(t *testing.T) {
	var sink []captured
	server := newNtfyServer(t, &sink)

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	service := notifications.NewService(cfg)

	err := service.NotifyJobCompleted(context.Background(), "CS 61A", "CS-61A-Fall-2025",
		"0123456789abcdef0123", 12, 0)
	if err != nil {
		t.Fatalf("NotifyJobCompleted failed: %v", err)
	}
	if len(sink) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(sink))
	}
	got := sink[0]
	if got.title != "GradeVault - Archive Complete" {
		t.Fatalf("title = %q", got.title)
	}
	if !strings.Contains(got.body, "12 files") || !strings.Contains(got.body, "0123456789ab") {
		t.Fatalf("unexpected body %q", got.body)
	}
	if got.priority != "high" {
		t.Fatalf("priority = %q", got.priority)
	}
}

func TestJobEventsToggle(t *testing.T) {
	var sink []captured
	server := newNtfyServer(t, &sink)

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.JobEvents = false
	service := notifications.NewService(cfg)

	if err := service.NotifyJobStarted(context.Background(), "CS 61A", 3); err != nil {
		t.Fatalf("NotifyJobStarted failed: %v", err)
	}
	if len(sink) != 0 {
		t.Fatalf("job events disabled but %d notifications sent", len(sink))
	}

	// Error notifications remain on independently.
	if err := service.NotifyJobFailed(context.Background(), "CS 61A", "initialization failed"); err != nil {
		t.Fatalf("NotifyJobFailed failed: %v", err)
	}
	if len(sink) != 1 {
		t.Fatalf("expected error notification, got %d", len(sink))
	}
}
