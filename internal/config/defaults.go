package config

const (
	defaultDataDir             = "~/.local/share/gradevault/data"
	defaultLogDir              = "~/.local/share/gradevault/logs"
	defaultAPIBind             = "127.0.0.1:7643"
	defaultStoreBaseURL        = "https://api.github.com"
	defaultStoreBranch         = "main"
	defaultStoreRequestTimeout = 30
	defaultCommitAuthor        = "GradeVault"
	defaultCommitEmail         = "gradevault@localhost"
	defaultFetchUserAgent      = "GradeVault/0.1"
	defaultFetchTimeout        = 60
	defaultMaxFileMiB          = 50
	defaultLadderBackoffMS     = 250
	defaultQueuePollInterval   = 2
	defaultErrorRetryInterval  = 10
	defaultFinalizeAttempts    = 3
	defaultFinalizeBackoffMS   = 500
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultCatalogPath         = "~/.local/share/gradevault/courses.json"
)

func defaultAlternateSuffixes() []string {
	return []string{"/download", "/download_submission", ".pdf", "?download=1"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		ContentStore: ContentStore{
			BaseURL:        defaultStoreBaseURL,
			Branch:         defaultStoreBranch,
			RequestTimeout: defaultStoreRequestTimeout,
			CommitAuthor:   defaultCommitAuthor,
			CommitEmail:    defaultCommitEmail,
		},
		Fetch: Fetch{
			UserAgent:         defaultFetchUserAgent,
			RequestTimeout:    defaultFetchTimeout,
			MaxFileMiB:        defaultMaxFileMiB,
			AlternateSuffixes: defaultAlternateSuffixes(),
			LadderBackoffMS:   defaultLadderBackoffMS,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			FinalizeAttempts:   defaultFinalizeAttempts,
			FinalizeBackoffMS:  defaultFinalizeBackoffMS,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			JobEvents:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Courses: Courses{
			CatalogPath: defaultCatalogPath,
		},
	}
}
