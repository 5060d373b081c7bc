package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Files returns every file record for a job in manifest order.
func (s *Store) Files(ctx context.Context, jobID int64) ([]*FileRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+fileColumns+` FROM job_files WHERE job_id = ? ORDER BY seq`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("list job files: %w", err)
	}
	defer rows.Close()

	var files []*FileRecord
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// GetFile fetches a file record by identifier. Returns nil when absent.
func (s *Store) GetFile(ctx context.Context, id int64) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM job_files WHERE id = ?`, id)
	file, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return file, nil
}

// NextPending returns the first dispatchable pending file in manifest
// order, or nil. Records parked behind a future not_before (the
// rate-limit resume gate) are skipped; they become eligible again once
// their due time passes, regardless of which wake triggered the check.
func (s *Store) NextPending(ctx context.Context, jobID int64) (*FileRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+fileColumns+` FROM job_files WHERE job_id = ? AND status = ? ORDER BY seq`,
		jobID,
		FilePending,
	)
	if err != nil {
		return nil, fmt.Errorf("next pending file: %w", err)
	}
	defer rows.Close()

	now := time.Now().UTC()
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("next pending file: %w", err)
		}
		if file.Due(now) {
			return file, nil
		}
	}
	return nil, rows.Err()
}

// UpdateFile persists changes to an existing file record and bumps updated_at.
func (s *Store) UpdateFile(ctx context.Context, file *FileRecord) error {
	if file == nil {
		return errors.New("file is nil")
	}
	triedJSON, err := marshalTried(file.TriedURLs)
	if err != nil {
		return err
	}
	file.UpdatedAt = time.Now().UTC()
	_, err = s.execWithRetry(
		ctx,
		`UPDATE job_files
         SET url = ?, path = ?, original_path = ?, filename = ?, mime_type = ?,
             status = ?, blob_sha = ?, tried_urls = ?, error_message = ?, not_before = ?, updated_at = ?
         WHERE id = ?`,
		file.URL,
		file.Path,
		nullableString(file.OriginalPath),
		nullableString(file.Filename),
		nullableString(file.MimeType),
		file.Status,
		nullableString(file.BlobSHA),
		triedJSON,
		nullableString(file.ErrorMessage),
		nullableTime(file.NotBefore),
		file.UpdatedAt.Format(time.RFC3339Nano),
		file.ID,
	)
	if err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	return nil
}

// DemoteInProgress returns orphaned in-flight records to pending. Called on
// engine start; an in-flight attempt that survived a restart is presumed
// lost, not failed.
func (s *Store) DemoteInProgress(ctx context.Context, jobID int64) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE job_files SET status = ?, updated_at = ? WHERE job_id = ? AND status = ?`,
		FilePending,
		time.Now().UTC().Format(time.RFC3339Nano),
		jobID,
		FileInProgress,
	)
	if err != nil {
		return 0, fmt.Errorf("demote in-progress files: %w", err)
	}
	return res.RowsAffected()
}

// Stats aggregates file record counts for one job.
func (s *Store) Stats(ctx context.Context, jobID int64) (FileStats, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT status, COUNT(1) FROM job_files WHERE job_id = ? GROUP BY status`,
		jobID,
	)
	if err != nil {
		return FileStats{}, fmt.Errorf("file stats: %w", err)
	}
	defer rows.Close()

	var stats FileStats
	for rows.Next() {
		var status FileStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return FileStats{}, err
		}
		stats.Total += count
		switch status {
		case FilePending:
			stats.Pending += count
		case FileInProgress:
			stats.InProgress += count
		case FileDone:
			stats.Done += count
		case FileError:
			stats.Errored += count
		case FileSkipped:
			stats.Skipped += count
		}
	}
	return stats, rows.Err()
}

const fileColumns = "id, job_id, seq, url, path, original_path, filename, mime_type, status, blob_sha, tried_urls, error_message, not_before, updated_at"

func scanFile(scanner interface{ Scan(dest ...any) error }) (*FileRecord, error) {
	var (
		id           int64
		jobID        int64
		seq          int
		url          string
		path         string
		originalPath sql.NullString
		filename     sql.NullString
		mimeType     sql.NullString
		statusStr    string
		blobSHA      sql.NullString
		triedRaw     sql.NullString
		errorMessage sql.NullString
		notBeforeRaw sql.NullString
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&jobID,
		&seq,
		&url,
		&path,
		&originalPath,
		&filename,
		&mimeType,
		&statusStr,
		&blobSHA,
		&triedRaw,
		&errorMessage,
		&notBeforeRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	file := &FileRecord{
		ID:           id,
		JobID:        jobID,
		Seq:          seq,
		URL:          url,
		Path:         path,
		OriginalPath: originalPath.String,
		Filename:     filename.String,
		MimeType:     mimeType.String,
		Status:       FileStatus(statusStr),
		BlobSHA:      blobSHA.String,
		ErrorMessage: errorMessage.String,
	}
	if triedRaw.Valid && triedRaw.String != "" {
		if err := json.Unmarshal([]byte(triedRaw.String), &file.TriedURLs); err != nil {
			return nil, fmt.Errorf("decode tried urls: %w", err)
		}
	}
	if notBeforeRaw.Valid && notBeforeRaw.String != "" {
		if notBefore, err := parseTimeString(notBeforeRaw.String); err == nil {
			file.NotBefore = notBefore
		}
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		file.UpdatedAt = updated
	}
	return file, nil
}

func marshalTried(urls []string) (any, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("encode tried urls: %w", err)
	}
	return string(data), nil
}
