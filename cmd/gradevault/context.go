package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"gradevault/internal/config"
	"gradevault/internal/contentstore"
	"gradevault/internal/engine"
	"gradevault/internal/fetch"
	"gradevault/internal/jobstore"
	"gradevault/internal/logging"
	"gradevault/internal/notifications"
)

type commandContext struct {
	configFlag *string
	apiFlag    *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, apiFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiFlag:    apiFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) apiBase() string {
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		return strings.TrimSpace(*c.apiFlag)
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return strings.TrimSpace(cfg.Paths.APIBind)
	}
	return ""
}

// apiGet fetches a daemon API endpoint and decodes the JSON response
// into out. A non-2xx response surfaces its error body as the error.
func (c *commandContext) apiGet(path string, out any) error {
	base := c.apiBase()
	if base == "" {
		return errors.New("daemon API address is not configured")
	}

	req, err := http.NewRequest(http.MethodGet, "http://"+base+path, nil)
	if err != nil {
		return err
	}
	if cfg, cfgErr := c.ensureConfig(); cfgErr == nil && cfg != nil && cfg.Paths.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Paths.APIToken)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return wrapAPIError(err, base)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil && payload.Error != "" {
			return fmt.Errorf("daemon API: %s", payload.Error)
		}
		return fmt.Errorf("daemon API: unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func wrapAPIError(err error, address string) error {
	var netErr *net.OpError
	if errors.Is(err, syscall.ECONNREFUSED) || (errors.As(err, &netErr) && netErr.Op == "dial") {
		return fmt.Errorf("connect to daemon API at %s: is the daemon running? start it with `gradevault daemon`", address)
	}
	return fmt.Errorf("connect to daemon API: %w", err)
}

// withEngine opens the job store and constructs an engine for
// in-process operations such as enqueueing or cancelling a job. The
// engine loop is not started; the running daemon observes store
// changes on its next poll.
func (c *commandContext) withEngine(fn func(*engine.Engine, *jobstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger := logging.NewNop()

	store, err := jobstore.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()

	proxy, err := fetch.NewHTTPProxy(cfg, logger)
	if err != nil {
		return err
	}
	eng := engine.New(cfg, store, contentstore.NewClient(cfg), proxy, logger,
		engine.WithNotifier(notifications.NewService(cfg)))
	return fn(eng, store)
}
