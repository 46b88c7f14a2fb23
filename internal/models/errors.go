package models

import "errors"

// ErrorType identifies the category of error that occurred.
type ErrorType string

const (
	// Run-level failures.
	ErrDiscoveryEmptyType ErrorType = "discovery_empty"
	ErrRenderWriteType    ErrorType = "render_write_error"

	// Per-notebook failures.
	ErrNotebookMissingType     ErrorType = "notebook_missing"
	ErrCellExecutionType       ErrorType = "cell_execution_error"
	ErrUnexpectedExecutionType ErrorType = "unexpected_execution_error"
)

var (
	// ErrDiscoveryEmpty is returned when a notebooks directory exists but
	// contains no notebooks.
	ErrDiscoveryEmpty = errors.New("no notebooks discovered")

	// ErrNotebooksDirNotFound is returned when the notebooks directory does
	// not exist.
	ErrNotebooksDirNotFound = errors.New("notebooks directory not found")

	// ErrNotebookMissing is returned when a discovered notebook vanished
	// before it could be executed.
	ErrNotebookMissing = errors.New("notebook not found")
)
