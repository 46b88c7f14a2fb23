package models

import "time"

// ExecutionStatus is the outcome of running one notebook.
type ExecutionStatus string

const (
	StatusSucceeded          ExecutionStatus = "succeeded"
	StatusFailedWithError    ExecutionStatus = "failed_with_error"
	StatusFailedUnexpectedly ExecutionStatus = "failed_unexpectedly"
)

// ExecutionResult contains the outcome of a single notebook execution.
type ExecutionResult struct {
	Notebook    NotebookRef     `json:"notebook"`
	Status      ExecutionStatus `json:"status"`
	Error       *NotebookError  `json:"error"`
	OutputPath  string          `json:"output_path"`
	LogPath     string          `json:"log_path,omitempty"`
	ArtifactURL string          `json:"artifact_url,omitempty"`
	UploadError string          `json:"upload_error,omitempty"`
	DurationSec float64         `json:"duration_sec"`
	StartedAt   time.Time       `json:"started_at"`
	EndedAt     time.Time       `json:"ended_at"`
}

// Succeeded reports whether every cell ran without raising.
func (r ExecutionResult) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// NotebookError describes why a notebook failed.
type NotebookError struct {
	Type    ErrorType    `json:"type"`
	Message string       `json:"message"`
	Cell    *CellFailure `json:"cell,omitempty"`
}

// CellFailure identifies the cell that raised and what it raised.
type CellFailure struct {
	Index          int      `json:"index"` // position in the executed notebook
	ExecutionCount *int     `json:"execution_count,omitempty"`
	Ename          string   `json:"ename"`
	Evalue         string   `json:"evalue"`
	Traceback      []string `json:"traceback,omitempty"`
}

// SuiteResult aggregates the outcome of every notebook in a run.
type SuiteResult struct {
	RunID            string            `json:"run_id"`
	RunName          string            `json:"run_name"`
	NotebooksDir     string            `json:"notebooks_dir"`
	OutputDir        string            `json:"output_dir"`
	Total            int               `json:"total"`
	Succeeded        int               `json:"succeeded"`
	Failed           int               `json:"failed"`
	Cancelled        bool              `json:"cancelled"`
	TotalDurationSec float64           `json:"total_duration_sec"`
	StartedAt        time.Time         `json:"started_at"`
	EndedAt          time.Time         `json:"ended_at"`
	Results          []ExecutionResult `json:"results"`
}

// Failures returns the results that did not succeed, in run order.
func (s *SuiteResult) Failures() []ExecutionResult {
	var out []ExecutionResult
	for _, r := range s.Results {
		if !r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}
