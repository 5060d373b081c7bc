package jobstore

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    course_id TEXT NOT NULL,
    course_name TEXT,
    repo_name TEXT NOT NULL,
    visibility TEXT NOT NULL DEFAULT 'private',
    status TEXT NOT NULL,
    owner TEXT,
    branch TEXT,
    parent_sha TEXT,
    base_tree_sha TEXT,
    readme_blob_sha TEXT,
    commit_sha TEXT,
    error_message TEXT,
    progress_step TEXT,
    progress_pct REAL NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS job_files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    url TEXT NOT NULL,
    path TEXT NOT NULL,
    original_path TEXT,
    filename TEXT,
    mime_type TEXT,
    status TEXT NOT NULL,
    blob_sha TEXT,
    tried_urls TEXT,
    error_message TEXT,
    not_before TEXT,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_job_files_job_seq ON job_files(job_id, seq);
CREATE INDEX IF NOT EXISTS idx_job_files_status ON job_files(job_id, status);
`

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
