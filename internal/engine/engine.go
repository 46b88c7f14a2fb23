// Package engine defines the notebook execution backends. Backends shell out
// to papermill, either directly or inside a container.
package engine

import (
	"context"
	"fmt"
	"io"

	"github.com/spachava753/nbsmoke/internal/models"
)

// Engine executes a notebook end to end.
type Engine interface {
	// Name returns the engine name (e.g., "papermill", "docker").
	Name() string

	// Execute runs the notebook at req.InputPath and writes the executed
	// copy to req.OutputPath. A failure raised inside a cell is returned as
	// a *CellError; any other failure is returned as a plain error.
	Execute(ctx context.Context, req Request) error
}

// Request configures a single notebook execution.
type Request struct {
	InputPath   string
	OutputPath  string
	Parameters  map[string]any // must be empty; engines reject injected parameters
	Kernel      string
	WorkDir     string // relative references inside the notebook resolve here
	LogOutput   bool
	ProgressBar bool
	Log         io.Writer // receives the engine's combined output, may be nil
}

// CellError is returned when a cell raised during execution.
type CellError struct {
	// Failure is nil when the executed notebook could not be inspected and
	// the error was recognised from the engine's output instead.
	Failure *models.CellFailure
	Detail  string
}

func (e *CellError) Error() string {
	if e.Failure == nil {
		return fmt.Sprintf("cell execution error: %s", e.Detail)
	}
	f := e.Failure
	where := fmt.Sprintf("cell %d", f.Index)
	if f.ExecutionCount != nil {
		where = fmt.Sprintf("%s (In [%d])", where, *f.ExecutionCount)
	}
	if f.Evalue == "" {
		return fmt.Sprintf("%s raised %s", where, f.Ename)
	}
	return fmt.Sprintf("%s raised %s: %s", where, f.Ename, f.Evalue)
}
