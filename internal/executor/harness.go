package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spachava753/nbsmoke/internal/artifacts"
	"github.com/spachava753/nbsmoke/internal/ctxlog"
	"github.com/spachava753/nbsmoke/internal/engine"
	"github.com/spachava753/nbsmoke/internal/models"
)

// OutputPrefix is prepended to a notebook's name to form its output artifact.
const OutputPrefix = "output_"

// HarnessOptions configures a Harness.
type HarnessOptions struct {
	Kernel    string
	Publisher artifacts.Publisher // optional
	RunID     string
}

// Harness runs one notebook at a time and classifies the outcome.
type Harness struct {
	engine  engine.Engine
	opts    HarnessOptions
	openLog func(path string) (io.WriteCloser, error)
}

// NewHarness creates a harness that executes notebooks with e.
func NewHarness(e engine.Engine, opts HarnessOptions) *Harness {
	if opts.Kernel == "" {
		opts.Kernel = "python3"
	}
	return &Harness{engine: e, opts: opts, openLog: createLog}
}

func createLog(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// OutputPath returns where the executed copy of nb is written.
func OutputPath(outputDir string, nb models.NotebookRef) string {
	return filepath.Join(outputDir, OutputPrefix+nb.FlatName())
}

// LogPath returns where the execution log of nb is written.
func LogPath(outputDir string, nb models.NotebookRef) string {
	flat := nb.FlatName()
	return filepath.Join(outputDir, OutputPrefix+strings.TrimSuffix(flat, filepath.Ext(flat))+".log")
}

// WorkDir returns the directory nb runs in: the directory containing it, so
// relative references inside the notebook resolve as they do in Jupyter.
func WorkDir(nb models.NotebookRef) string {
	return filepath.Dir(nb.Path)
}

// Run executes nb with workDir as its working directory and writes the
// executed copy into outputDir. Failures are reported in the result, never
// returned, so one notebook cannot abort its siblings.
func (h *Harness) Run(ctx context.Context, nb models.NotebookRef, outputDir, workDir string) (result models.ExecutionResult) {
	result = models.ExecutionResult{
		Notebook:   nb,
		OutputPath: OutputPath(outputDir, nb),
		LogPath:    LogPath(outputDir, nb),
		StartedAt:  time.Now(),
	}

	defer func() {
		result.EndedAt = time.Now()
		result.DurationSec = result.EndedAt.Sub(result.StartedAt).Seconds()
	}()

	logger := ctxlog.FromContext(ctx).With("notebook", nb.RelPath)
	logger.Info("testing notebook", "input", nb.Path, "output", result.OutputPath)

	// Verify notebook exists
	if _, err := os.Stat(nb.Path); err != nil {
		result.Status = models.StatusFailedUnexpectedly
		result.Error = &models.NotebookError{
			Type:    models.ErrNotebookMissingType,
			Message: fmt.Errorf("%w: %s: %v", models.ErrNotebookMissing, nb.Path, err).Error(),
		}
		logger.Error("notebook not found", "path", nb.Path, "error", err)
		return result
	}

	// A stale artifact would be mistaken for this run's output.
	if err := os.Remove(result.OutputPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return unexpected(result, logger, fmt.Errorf("removing stale output: %w", err))
	}

	logFile, err := h.openLog(result.LogPath)
	if err != nil {
		return unexpected(result, logger, fmt.Errorf("creating execution log: %w", err))
	}

	execErr := h.engine.Execute(ctx, engine.Request{
		InputPath:   nb.Path,
		OutputPath:  result.OutputPath,
		Parameters:  map[string]any{}, // always a full, unparameterized run
		Kernel:      h.opts.Kernel,
		WorkDir:     workDir,
		LogOutput:   true,
		ProgressBar: false,
		Log:         logFile,
	})
	if err := logFile.Close(); err != nil {
		logger.Warn("closing execution log failed", "path", result.LogPath, "error", err)
	}

	var cellErr *engine.CellError
	switch {
	case execErr == nil:
		result.Status = models.StatusSucceeded
		logger.Info("notebook executed successfully", "duration", time.Since(result.StartedAt).Round(time.Millisecond))
	case errors.As(execErr, &cellErr):
		result.Status = models.StatusFailedWithError
		result.Error = &models.NotebookError{
			Type:    models.ErrCellExecutionType,
			Message: fmt.Sprintf("notebook %s failed to execute: %v", nb.Name, execErr),
			Cell:    cellErr.Failure,
		}
		logger.Error("notebook failed to execute", "error", execErr)
	default:
		result = unexpected(result, logger, execErr)
	}

	h.publish(ctx, logger, &result)
	return result
}

func unexpected(result models.ExecutionResult, logger *slog.Logger, err error) models.ExecutionResult {
	result.Status = models.StatusFailedUnexpectedly
	result.Error = &models.NotebookError{
		Type:    models.ErrUnexpectedExecutionType,
		Message: fmt.Sprintf("unexpected error during execution of %s: %v", result.Notebook.Name, err),
	}
	logger.Error("unexpected error", "error", err)
	return result
}

// publish uploads the executed notebook and its log. Upload failures are
// recorded on the result but do not change its status.
func (h *Harness) publish(ctx context.Context, logger *slog.Logger, result *models.ExecutionResult) {
	if h.opts.Publisher == nil {
		return
	}
	if _, err := os.Stat(result.OutputPath); err != nil {
		return
	}

	url, err := h.opts.Publisher.Publish(ctx, h.opts.RunID, result.OutputPath)
	if err != nil {
		result.UploadError = err.Error()
		logger.Warn("publishing executed notebook failed", "error", err)
		return
	}
	result.ArtifactURL = url

	if _, err := h.opts.Publisher.Publish(ctx, h.opts.RunID, result.LogPath); err != nil {
		logger.Warn("publishing execution log failed", "error", err)
	}
	logger.Debug("published executed notebook", "url", url)
}
