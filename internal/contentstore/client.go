package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gradevault/internal/config"
)

// HTTPDoer describes the HTTP client used by the content store client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client performs typed operations against a Git-style object API.
type Client struct {
	baseURL     string
	token       string
	userAgent   string
	authorName  string
	authorEmail string
	client      HTTPDoer
}

// NewClient constructs a content store client from configuration.
func NewClient(cfg *config.Config) *Client {
	timeout := 30 * time.Second
	if cfg.ContentStore.RequestTimeout > 0 {
		timeout = time.Duration(cfg.ContentStore.RequestTimeout) * time.Second
	}
	return NewClientWithDoer(cfg, &http.Client{Timeout: timeout})
}

// NewClientWithDoer constructs a client with an explicit HTTP doer (used in tests).
func NewClientWithDoer(cfg *config.Config, doer HTTPDoer) *Client {
	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.ContentStore.BaseURL), "/"),
		token:       strings.TrimSpace(cfg.ContentStore.Token),
		userAgent:   "gradevault",
		authorName:  strings.TrimSpace(cfg.ContentStore.CommitAuthor),
		authorEmail: strings.TrimSpace(cfg.ContentStore.CommitEmail),
		client:      doer,
	}
}

// APIError is the uniform failure contract for content store operations. It
// carries the HTTP status and, when the server supplied one, a retry delay.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("content store: status %d", e.StatusCode)
	}
	return fmt.Sprintf("content store: status %d: %s", e.StatusCode, e.Message)
}

// RateLimited reports whether the failure is a rate limit with a usable
// retry delay.
func (e *APIError) RateLimited() bool {
	if e == nil {
		return false
	}
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode == http.StatusForbidden && e.RetryAfter > 0
}

// NotFound reports whether the failure is a missing resource.
func (e *APIError) NotFound() bool {
	return e != nil && e.StatusCode == http.StatusNotFound
}

// AlreadyExists reports whether a create failed because the resource exists.
func (e *APIError) AlreadyExists() bool {
	if e == nil {
		return false
	}
	return e.StatusCode == http.StatusUnprocessableEntity &&
		strings.Contains(strings.ToLower(e.Message), "already exists")
}

// FastForwardRejected reports whether a ref update failed because the branch
// tip moved; the caller should refresh the parent and retry.
func (e *APIError) FastForwardRejected() bool {
	if e == nil {
		return false
	}
	return e.StatusCode == http.StatusUnprocessableEntity ||
		e.StatusCode == http.StatusConflict
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var parsed struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Message != "" {
		apiErr.Message = parsed.Message
	} else if trimmed := strings.TrimSpace(string(data)); trimmed != "" {
		apiErr.Message = trimmed
	}

	if delay := parseRetryAfter(resp); delay > 0 {
		apiErr.RetryAfter = delay
	}
	return apiErr
}

func parseRetryAfter(resp *http.Response) time.Duration {
	value := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if value == "" {
		if reset := strings.TrimSpace(resp.Header.Get("X-RateLimit-Reset")); reset != "" {
			if epoch, err := strconv.ParseInt(reset, 10, 64); err == nil {
				if delay := time.Until(time.Unix(epoch, 0)); delay > 0 {
					return delay
				}
			}
		}
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if delay := time.Until(at); delay > 0 {
			return delay
		}
	}
	return 0
}
