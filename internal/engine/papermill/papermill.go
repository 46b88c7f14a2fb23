// Package papermill runs notebooks with a locally installed papermill.
package papermill

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spachava753/nbsmoke/internal/ctxlog"
	"github.com/spachava753/nbsmoke/internal/engine"
)

// diagLimit bounds the output kept for error messages.
const diagLimit = 64 << 10

// Engine implements the local papermill engine.
type Engine struct {
	Bin string
}

// New creates a new papermill engine. bin defaults to "papermill"; a
// relative path is resolved against the current directory.
func New(bin string) *Engine {
	if bin == "" {
		bin = "papermill"
	}
	if strings.ContainsRune(bin, filepath.Separator) {
		if abs, err := filepath.Abs(bin); err == nil {
			bin = abs
		}
	}
	return &Engine{Bin: bin}
}

// Name returns the engine name.
func (e *Engine) Name() string {
	return "papermill"
}

// Execute runs papermill against req.InputPath.
func (e *Engine) Execute(ctx context.Context, req engine.Request) error {
	// papermill runs in WorkDir, so relative paths must be resolved first.
	input, err := filepath.Abs(req.InputPath)
	if err != nil {
		return fmt.Errorf("resolving notebook path: %w", err)
	}
	output, err := filepath.Abs(req.OutputPath)
	if err != nil {
		return fmt.Errorf("resolving output path: %w", err)
	}
	workDir, err := filepath.Abs(req.WorkDir)
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	args, err := engine.PapermillArgs(req, input, output, workDir)
	if err != nil {
		return err
	}

	ctxlog.FromContext(ctx).Debug("running papermill", "bin", e.Bin, "args", args)

	cmd := exec.CommandContext(ctx, e.Bin, args...)
	cmd.Dir = workDir

	diag := engine.NewTailBuffer(diagLimit)
	var out io.Writer = diag
	if req.Log != nil {
		out = io.MultiWriter(diag, req.Log)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := engine.Classify(ctx, cmd.Run(), output, diag.String()); err != nil {
		return fmt.Errorf("papermill %s: %w", req.InputPath, err)
	}
	return nil
}
