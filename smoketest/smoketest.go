// Package smoketest runs a project's notebooks as Go subtests.
//
// A notebook repository wires it up with a single test:
//
//	func TestNotebooks(t *testing.T) {
//		smoketest.RunProject(t, "nbsmoke.yaml")
//	}
package smoketest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spachava753/nbsmoke/internal/config"
	"github.com/spachava753/nbsmoke/internal/engine"
	"github.com/spachava753/nbsmoke/internal/executor"
	"github.com/spachava753/nbsmoke/internal/models"
)

// Case is one notebook test.
type Case struct {
	Notebook models.NotebookRef
	harness  *executor.Harness
	outDir   string
}

// Run executes the notebook and returns its error, or nil if it succeeded.
func (c Case) Run(ctx context.Context) (models.ExecutionResult, error) {
	result := c.harness.Run(ctx, c.Notebook, c.outDir, executor.WorkDir(c.Notebook))
	return result, Check(result)
}

// Cases discovers the notebooks of cfg and returns one case per notebook,
// each writing its executed copy into outputDir. Zero notebooks is an error
// wrapping models.ErrDiscoveryEmpty.
func Cases(ctx context.Context, cfg models.ProjectConfig, e engine.Engine, outputDir string) ([]Case, error) {
	refs, err := executor.NewSuite(cfg, e).Discover(ctx)
	if err != nil {
		return nil, err
	}

	h := executor.NewHarness(e, executor.HarnessOptions{Kernel: cfg.Kernel})

	cases := make([]Case, len(refs))
	for i, nb := range refs {
		cases[i] = Case{Notebook: nb, harness: h, outDir: outputDir}
	}
	return cases, nil
}

// Check converts a result into a test failure message.
func Check(r models.ExecutionResult) error {
	if r.Succeeded() {
		return nil
	}
	if r.Error == nil {
		return fmt.Errorf("notebook %s: %s", r.Notebook.Name, r.Status)
	}
	switch r.Error.Type {
	case models.ErrCellExecutionType:
		return fmt.Errorf("notebook execution failed: %s", r.Error.Message)
	default:
		return errors.New(r.Error.Message)
	}
}

// Run discovers the notebooks of cfg and runs each one as a subtest named
// after the notebook. Finding no notebooks fails t.
func Run(t *testing.T, cfg models.ProjectConfig, e engine.Engine) {
	t.Helper()

	cases, err := Cases(t.Context(), cfg, e, t.TempDir())
	if err != nil {
		t.Fatalf("%v", err)
	}
	t.Logf("Discovered %d notebooks in %s", len(cases), cfg.NotebooksDir)

	for _, c := range cases {
		t.Run(c.Notebook.RelPath, func(t *testing.T) {
			result, err := c.Run(t.Context())
			if err != nil {
				t.Fatal(err)
			}
			t.Logf("executed in %.2fs, output: %s", result.DurationSec, result.OutputPath)
		})
	}
}

// RunProject loads the project configuration at path (defaults when the file
// does not exist) and runs its notebooks with the configured engine.
func RunProject(t *testing.T, path string) {
	t.Helper()

	cfg, err := config.LoadProjectConfigOrDefault(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	e, err := executor.NewEngine(cfg.Engine)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	Run(t, cfg, e)
}
