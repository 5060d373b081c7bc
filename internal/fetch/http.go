package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"gradevault/internal/config"
	"gradevault/internal/logging"
	"gradevault/internal/services"
)

const progressChunkSize = 64 * 1024

// HTTPProxy downloads artifacts over plain HTTP with the session
// cookie and user agent of an authenticated browser session.
type HTTPProxy struct {
	client    *http.Client
	userAgent string
	cookie    string
	maxBytes  int64
	timeout   time.Duration
	logger    *slog.Logger
}

// NewHTTPProxy builds the default proxy from configuration. The cookie
// file, when configured, must contain a single Cookie header value;
// a missing file is a configuration error because every Gradescope
// download requires an authenticated session.
func NewHTTPProxy(cfg *config.Config, logger *slog.Logger) (*HTTPProxy, error) {
	p := &HTTPProxy{
		client:    &http.Client{},
		userAgent: cfg.Fetch.UserAgent,
		maxBytes:  int64(cfg.Fetch.MaxFileMiB) * 1024 * 1024,
		timeout:   time.Duration(cfg.Fetch.RequestTimeout) * time.Second,
		logger:    logging.NewComponentLogger(logger, "fetch"),
	}
	if cfg.Fetch.CookieFile != "" {
		raw, err := os.ReadFile(cfg.Fetch.CookieFile)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "fetch", "load cookies",
				"read cookie file", err)
		}
		p.cookie = strings.TrimSpace(string(raw))
	}
	return p, nil
}

// Fetch performs one download attempt. The per-attempt timeout comes
// from the request when set, otherwise from configuration.
func (p *HTTPProxy) Fetch(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = p.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return &Response{Kind: KindError, Message: fmt.Sprintf("build request: %v", err)}, nil
	}
	if p.userAgent != "" {
		httpReq.Header.Set("User-Agent", p.userAgent)
	}
	if p.cookie != "" {
		httpReq.Header.Set("Cookie", p.cookie)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		p.logger.Warn("transport failure", logging.String("path", req.Path), logging.Error(err))
		return &Response{Kind: KindError, Message: err.Error()}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &Response{Kind: KindError, Message: fmt.Sprintf("http status %d", resp.StatusCode)}, nil
	}

	if p.maxBytes > 0 && resp.ContentLength > p.maxBytes {
		return &Response{Kind: KindTooLarge, DeclaredSize: resp.ContentLength}, nil
	}

	body, overflowed, err := p.readAll(resp.Body, resp.ContentLength, req.Progress)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		return &Response{Kind: KindError, Message: fmt.Sprintf("read body: %v", err)}, nil
	}
	if overflowed {
		// The server lied about (or omitted) the length; report the
		// bytes actually streamed before the cap hit.
		return &Response{Kind: KindTooLarge, DeclaredSize: int64(len(body))}, nil
	}

	return &Response{
		Kind:             KindResult,
		Bytes:            body,
		ContentType:      resp.Header.Get("Content-Type"),
		ResolvedFilename: filenameFromDisposition(resp.Header.Get("Content-Disposition")),
	}, nil
}

// readAll streams the body in chunks so progress can be reported and
// the streamed-size cap enforced even without a Content-Length.
func (p *HTTPProxy) readAll(body io.Reader, declared int64, progress func(received, total int64)) ([]byte, bool, error) {
	var buf []byte
	chunk := make([]byte, progressChunkSize)
	for {
		n, err := body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if progress != nil {
				total := declared
				if total <= 0 {
					total = -1
				}
				progress(int64(len(buf)), total)
			}
			if p.maxBytes > 0 && int64(len(buf)) > p.maxBytes {
				return buf, true, nil
			}
		}
		if err == io.EOF {
			return buf, false, nil
		}
		if err != nil {
			return nil, false, err
		}
	}
}

func filenameFromDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}
	for _, part := range strings.Split(disposition, ";") {
		part = strings.TrimSpace(part)
		if value, ok := strings.CutPrefix(part, "filename="); ok {
			return strings.Trim(value, `"`)
		}
	}
	return ""
}
