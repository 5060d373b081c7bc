package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobView describes an archival job in a transport-friendly format.
type JobView struct {
	ID           int64        `json:"id"`
	CourseID     string       `json:"courseId"`
	CourseName   string       `json:"courseName"`
	RepoName     string       `json:"repoName"`
	Visibility   string       `json:"visibility"`
	Status       string       `json:"status"`
	Owner        string       `json:"owner,omitempty"`
	Branch       string       `json:"branch,omitempty"`
	CommitSHA    string       `json:"commitSha,omitempty"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	Progress     ProgressView `json:"progress"`
	CreatedAt    string       `json:"createdAt,omitempty"`
	UpdatedAt    string       `json:"updatedAt,omitempty"`
}

// ProgressView captures step and per-file progress for a job.
type ProgressView struct {
	Step    string     `json:"step"`
	Percent float64    `json:"percent"`
	Files   FileCounts `json:"files"`
}

// FileCounts aggregates file record counts per status.
type FileCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Done       int `json:"done"`
	Errored    int `json:"errored"`
	Skipped    int `json:"skipped"`
}

// FileView describes a single manifest file record.
type FileView struct {
	ID           int64  `json:"id"`
	Seq          int    `json:"seq"`
	URL          string `json:"url"`
	Path         string `json:"path"`
	OriginalPath string `json:"originalPath,omitempty"`
	Filename     string `json:"filename,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
	Status       string `json:"status"`
	BlobSHA      string `json:"blobSha,omitempty"`
	Attempts     int    `json:"attempts"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// CourseView describes a catalog entry.
type CourseView struct {
	URL       string `json:"url"`
	Name      string `json:"name"`
	FullName  string `json:"fullName,omitempty"`
	ShortName string `json:"shortName,omitempty"`
	Term      string `json:"term,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool     `json:"running"`
	PID          int      `json:"pid"`
	JobDBPath    string   `json:"jobDbPath"`
	LockFilePath string   `json:"lockFilePath"`
	ActiveJob    *JobView `json:"activeJob,omitempty"`
}

// JobResponse wraps a single job view.
type JobResponse struct {
	Job JobView `json:"job"`
}

// FileListResponse wraps the file records of a job.
type FileListResponse struct {
	Files []FileView `json:"files"`
}

// CourseListResponse wraps the course catalog.
type CourseListResponse struct {
	Courses []CourseView `json:"courses"`
}
