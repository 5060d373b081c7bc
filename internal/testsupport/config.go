package testsupport

import (
	"path/filepath"
	"testing"

	"gradevault/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.ContentStore.Token = "test-token"
	cfg.ContentStore.Owner = "archive-owner"
	cfg.Courses.CatalogPath = filepath.Join(base, "courses.json")
	cfg.Workflow.FinalizeBackoffMS = 1
	cfg.Fetch.LadderBackoffMS = 1

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithStoreBaseURL points the content store client at a test server.
func WithStoreBaseURL(url string) ConfigOption {
	return func(c *config.Config) {
		c.ContentStore.BaseURL = url
	}
}

// WithMaxFileMiB overrides the fetch size cap on the test config.
func WithMaxFileMiB(mib int) ConfigOption {
	return func(c *config.Config) {
		c.Fetch.MaxFileMiB = mib
	}
}
