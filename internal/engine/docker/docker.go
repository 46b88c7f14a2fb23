// Package docker runs notebooks with papermill inside a throwaway container.
package docker

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spachava753/nbsmoke/internal/ctxlog"
	"github.com/spachava753/nbsmoke/internal/engine"
	"github.com/spachava753/nbsmoke/internal/util"
)

const (
	workMount = "/work"
	outMount  = "/out"
	diagLimit = 64 << 10

	killTimeout = 10 * time.Second
	waitDelay   = 15 * time.Second
)

// Options configures the docker engine.
type Options struct {
	Image        string
	CPUs         string
	Memory       string // e.g. "2G"
	PapermillBin string // papermill inside the image, default "papermill"
	DockerBin    string // default "docker"
}

// Engine implements the docker-backed papermill engine.
type Engine struct {
	opts     Options
	memoryMB int
}

// New creates a docker engine.
func New(opts Options) (*Engine, error) {
	if opts.Image == "" {
		return nil, fmt.Errorf("docker engine requires an image")
	}
	if opts.PapermillBin == "" {
		opts.PapermillBin = "papermill"
	}
	if opts.DockerBin == "" {
		opts.DockerBin = "docker"
	}

	mb, err := util.ParseMemory(opts.Memory)
	if err != nil {
		return nil, fmt.Errorf("parsing memory %q: %w", opts.Memory, err)
	}

	return &Engine{opts: opts, memoryMB: mb}, nil
}

// Name returns the engine name.
func (e *Engine) Name() string {
	return "docker"
}

// Args returns the docker command line for req in a container called name.
// The working directory is mounted at /work and the output directory at
// /out; the notebook must live under the working directory.
func (e *Engine) Args(req engine.Request, name string) ([]string, error) {
	workDir, err := filepath.Abs(req.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	input, err := filepath.Abs(req.InputPath)
	if err != nil {
		return nil, fmt.Errorf("resolving notebook path: %w", err)
	}
	output, err := filepath.Abs(req.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("resolving output path: %w", err)
	}

	rel, err := filepath.Rel(workDir, input)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("notebook %s is outside working directory %s", input, workDir)
	}

	args := []string{
		"run",
		"--rm",
		"--name", name,
		"-v", workDir + ":" + workMount,
		"-v", filepath.Dir(output) + ":" + outMount,
		"-w", workMount,
	}

	// Add resource constraints
	if e.opts.CPUs != "" {
		args = append(args, "--cpus", e.opts.CPUs)
	}
	if e.memoryMB > 0 {
		args = append(args, "--memory", fmt.Sprintf("%dm", e.memoryMB))
	}

	args = append(args, e.opts.Image, e.opts.PapermillBin)

	pmArgs, err := engine.PapermillArgs(req,
		path.Join(workMount, filepath.ToSlash(rel)),
		path.Join(outMount, filepath.Base(output)),
		workMount,
	)
	if err != nil {
		return nil, err
	}

	return append(args, pmArgs...), nil
}

// Execute runs the notebook in a new container. Cancelling ctx kills the
// container as well as the docker client.
func (e *Engine) Execute(ctx context.Context, req engine.Request) error {
	name := "nbsmoke-" + uuid.NewString()[:8]
	args, err := e.Args(req, name)
	if err != nil {
		return err
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("running papermill in docker", "image", e.opts.Image, "container", name, "args", args)

	cmd := exec.CommandContext(ctx, e.opts.DockerBin, args...)
	cmd.Cancel = func() error {
		killCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), killTimeout)
		defer cancel()
		if err := exec.CommandContext(killCtx, e.opts.DockerBin, "kill", name).Run(); err != nil {
			logger.Warn("killing container failed", "container", name, "error", err)
		}
		return cmd.Process.Kill()
	}
	cmd.WaitDelay = waitDelay

	diag := engine.NewTailBuffer(diagLimit)
	var out io.Writer = diag
	if req.Log != nil {
		out = io.MultiWriter(diag, req.Log)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := engine.Classify(ctx, cmd.Run(), req.OutputPath, diag.String()); err != nil {
		return fmt.Errorf("docker %s: %w", e.opts.Image, err)
	}
	return nil
}
