package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateContentStore(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateContentStore() error {
	parsed, err := url.Parse(c.ContentStore.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("content_store.base_url %q is not a valid URL", c.ContentStore.BaseURL)
	}
	if strings.TrimSpace(c.ContentStore.Branch) == "" {
		return errors.New("content_store.branch must be set")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.MaxFileMiB > 100 {
		return fmt.Errorf("fetch.max_file_mib %d exceeds the 100 MiB hard ceiling", c.Fetch.MaxFileMiB)
	}
	for _, suffix := range c.Fetch.AlternateSuffixes {
		if strings.ContainsAny(suffix, " \t") {
			return fmt.Errorf("fetch.alternate_suffixes entry %q must not contain whitespace", suffix)
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.FinalizeAttempts > 10 {
		return errors.New("workflow.finalize_attempts must be 10 or fewer")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

// RequireStoreToken returns an actionable error when no content store token
// is configured. The daemon can start without one; archive jobs cannot.
func (c *Config) RequireStoreToken() error {
	if strings.TrimSpace(c.ContentStore.Token) != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/gradevault/config.toml"
	}
	return fmt.Errorf("content_store.token is required. Set GRADEVAULT_STORE_TOKEN or edit %s (create with 'gradevault config init')", defaultPath)
}
