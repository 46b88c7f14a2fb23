package engine

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// executionErrorMarker is printed by papermill when a cell raises.
const executionErrorMarker = "PapermillExecutionError"

// PapermillArgs builds the papermill command line for req. input, output
// and cwd are passed separately so containerised engines can substitute
// their mount paths. A request carrying parameters is rejected.
func PapermillArgs(req Request, input, output, cwd string) ([]string, error) {
	args := []string{input, output}

	if req.Kernel != "" {
		args = append(args, "--kernel", req.Kernel)
	}
	if cwd != "" {
		args = append(args, "--cwd", cwd)
	}

	if req.LogOutput {
		args = append(args, "--log-output")
	} else {
		args = append(args, "--no-log-output")
	}
	if req.ProgressBar {
		args = append(args, "--progress-bar")
	} else {
		args = append(args, "--no-progress-bar")
	}

	// Notebooks always run with their own defaults.
	if len(req.Parameters) > 0 {
		return nil, fmt.Errorf("parameter injection is not supported, got %d parameters", len(req.Parameters))
	}

	return args, nil
}

// Classify turns the result of a papermill process into the error an Engine
// returns. outputPath is inspected for an error output first; diag is the
// tail of the combined process output.
func Classify(ctx context.Context, runErr error, outputPath, diag string) error {
	if runErr == nil {
		return nil
	}

	if ctx.Err() != nil {
		return fmt.Errorf("execution interrupted: %w", ctx.Err())
	}

	var exitErr *exec.ExitError
	if !errors.As(runErr, &exitErr) {
		// Binary not found, permission denied, and the like.
		return fmt.Errorf("launching engine: %w", runErr)
	}

	if failure, err := ReadCellFailure(outputPath); err == nil && failure != nil {
		return &CellError{Failure: failure, Detail: LastLines(diag, 20)}
	}

	if strings.Contains(diag, executionErrorMarker) {
		return &CellError{Detail: LastLines(diag, 20)}
	}

	return fmt.Errorf("engine exited with code %d: %s", exitErr.ExitCode(), LastLines(diag, 20))
}

// LastLines returns at most n trailing non-empty lines of s.
func LastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
