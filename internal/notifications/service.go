package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gradevault/internal/config"
)

const userAgent = "GradeVault/0.1"

// Service defines the notification surface exposed to the archival engine.
type Service interface {
	NotifyJobStarted(ctx context.Context, courseName string, fileCount int) error
	NotifyJobCompleted(ctx context.Context, courseName, repoName, commitSHA string, archived, failed int) error
	NotifyJobFailed(ctx context.Context, courseName, reason string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		jobEvents: cfg.Notifications.JobEvents,
		errors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	jobEvents bool
	errors    bool
}

func (n *ntfyService) NotifyJobStarted(ctx context.Context, courseName string, fileCount int) error {
	if !n.jobEvents {
		return nil
	}
	courseName = strings.TrimSpace(courseName)
	data := payload{
		title:   "GradeVault - Archive Started",
		message: fmt.Sprintf("Archiving %s (%d files)", courseName, fileCount),
		tags:    []string{"gradevault", "job", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, courseName, repoName, commitSHA string, archived, failed int) error {
	if !n.jobEvents {
		return nil
	}
	courseName = strings.TrimSpace(courseName)
	short := commitSHA
	if len(short) > 12 {
		short = short[:12]
	}

	var title, message string
	if failed == 0 {
		title = "GradeVault - Archive Complete"
		message = fmt.Sprintf("%s archived: %d files in %s @ %s", courseName, archived, repoName, short)
	} else {
		title = "GradeVault - Archive Complete (with errors)"
		message = fmt.Sprintf("%s archived: %d files, %d failed in %s @ %s", courseName, archived, failed, repoName, short)
	}

	data := payload{
		title:    title,
		message:  message,
		tags:     []string{"gradevault", "job", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, courseName, reason string) error {
	if !n.errors {
		return nil
	}
	courseName = strings.TrimSpace(courseName)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "GradeVault - Archive Failed",
		message:  fmt.Sprintf("Archive of %s failed: %s", courseName, reason),
		tags:     []string{"gradevault", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "GradeVault - Error",
		message:  builder.String(),
		tags:     []string{"gradevault", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "GradeVault - Test",
		message:  "Notification system test",
		tags:     []string{"gradevault", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobStarted(context.Context, string, int) error { return nil }
func (noopService) NotifyJobCompleted(context.Context, string, string, string, int, int) error {
	return nil
}
func (noopService) NotifyJobFailed(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error      { return nil }
func (noopService) TestNotification(context.Context) error                { return nil }
