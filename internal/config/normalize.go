package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeContentStore()
	c.normalizeFetch()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Courses.CatalogPath) == "" {
		c.Courses.CatalogPath = defaultCatalogPath
	}
	if c.Courses.CatalogPath, err = expandPath(c.Courses.CatalogPath); err != nil {
		return fmt.Errorf("courses.catalog_path: %w", err)
	}
	if strings.TrimSpace(c.Fetch.CookieFile) != "" {
		if c.Fetch.CookieFile, err = expandPath(c.Fetch.CookieFile); err != nil {
			return fmt.Errorf("fetch.cookie_file: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeContentStore() {
	c.ContentStore.BaseURL = strings.TrimRight(strings.TrimSpace(c.ContentStore.BaseURL), "/")
	if c.ContentStore.BaseURL == "" {
		c.ContentStore.BaseURL = defaultStoreBaseURL
	}
	if token := strings.TrimSpace(os.Getenv("GRADEVAULT_STORE_TOKEN")); token != "" {
		c.ContentStore.Token = token
	}
	if strings.TrimSpace(c.ContentStore.Branch) == "" {
		c.ContentStore.Branch = defaultStoreBranch
	}
	if c.ContentStore.RequestTimeout <= 0 {
		c.ContentStore.RequestTimeout = defaultStoreRequestTimeout
	}
	if strings.TrimSpace(c.ContentStore.CommitAuthor) == "" {
		c.ContentStore.CommitAuthor = defaultCommitAuthor
	}
	if strings.TrimSpace(c.ContentStore.CommitEmail) == "" {
		c.ContentStore.CommitEmail = defaultCommitEmail
	}
}

func (c *Config) normalizeFetch() {
	if strings.TrimSpace(c.Fetch.UserAgent) == "" {
		c.Fetch.UserAgent = defaultFetchUserAgent
	}
	if c.Fetch.RequestTimeout <= 0 {
		c.Fetch.RequestTimeout = defaultFetchTimeout
	}
	if c.Fetch.MaxFileMiB <= 0 {
		c.Fetch.MaxFileMiB = defaultMaxFileMiB
	}
	if c.Fetch.LadderBackoffMS <= 0 {
		c.Fetch.LadderBackoffMS = defaultLadderBackoffMS
	}
	if len(c.Fetch.AlternateSuffixes) == 0 {
		c.Fetch.AlternateSuffixes = defaultAlternateSuffixes()
	}
	trimmed := c.Fetch.AlternateSuffixes[:0]
	for _, suffix := range c.Fetch.AlternateSuffixes {
		if suffix = strings.TrimSpace(suffix); suffix != "" {
			trimmed = append(trimmed, suffix)
		}
	}
	c.Fetch.AlternateSuffixes = trimmed
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.FinalizeAttempts <= 0 {
		c.Workflow.FinalizeAttempts = defaultFinalizeAttempts
	}
	if c.Workflow.FinalizeBackoffMS <= 0 {
		c.Workflow.FinalizeBackoffMS = defaultFinalizeBackoffMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
