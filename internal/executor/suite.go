package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/spachava753/nbsmoke/internal/artifacts"
	"github.com/spachava753/nbsmoke/internal/ctxlog"
	"github.com/spachava753/nbsmoke/internal/discovery"
	"github.com/spachava753/nbsmoke/internal/engine"
	"github.com/spachava753/nbsmoke/internal/engine/docker"
	"github.com/spachava753/nbsmoke/internal/engine/papermill"
	"github.com/spachava753/nbsmoke/internal/models"
)

// ResultFile is the name of the suite summary written to the output dir.
const ResultFile = "result.json"

// Suite discovers the notebooks of a project and runs each of them.
type Suite struct {
	cfg       models.ProjectConfig
	engine    engine.Engine
	loader    *discovery.Loader
	publisher artifacts.Publisher
}

// NewSuite creates a suite that executes notebooks with e.
func NewSuite(cfg models.ProjectConfig, e engine.Engine) *Suite {
	return &Suite{
		cfg:    cfg,
		engine: e,
		loader: discovery.NewLoader(cfg.Recursive),
	}
}

// WithPublisher sets the publisher executed notebooks are uploaded with.
func (s *Suite) WithPublisher(p artifacts.Publisher) *Suite {
	s.publisher = p
	return s
}

// Discover returns the notebooks to run. Finding none is an error wrapping
// models.ErrDiscoveryEmpty so a misconfigured directory cannot pass as a
// successful run.
func (s *Suite) Discover(ctx context.Context) ([]models.NotebookRef, error) {
	refs, err := s.loader.Discover(ctx, s.cfg.NotebooksDir)
	if err != nil {
		return nil, fmt.Errorf("discovering notebooks: %w", err)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w in %s: ensure notebooks_dir points at a directory containing %s files",
			models.ErrDiscoveryEmpty, s.cfg.NotebooksDir, models.NotebookExt)
	}
	if err := checkOutputNames(refs); err != nil {
		return nil, err
	}
	return refs, nil
}

// checkOutputNames fails when two notebooks would write the same output
// file, as a/b.ipynb and a__b.ipynb do.
func checkOutputNames(refs []models.NotebookRef) error {
	owners := make(map[string]string, len(refs))
	for _, nb := range refs {
		flat := nb.FlatName()
		if other, ok := owners[flat]; ok {
			return fmt.Errorf("notebooks %s and %s both write %s%s", other, nb.RelPath, OutputPrefix, flat)
		}
		owners[flat] = nb.RelPath
	}
	return nil
}

// Run discovers and executes every notebook. Per-notebook failures are
// reported in the result; the returned error covers only failures that
// prevent the run as a whole.
func (s *Suite) Run(ctx context.Context) (*models.SuiteResult, error) {
	startTime := time.Now()
	logger := ctxlog.FromContext(ctx)

	refs, err := s.Discover(ctx)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	outputDir, runName, err := s.prepareOutputDir()
	if err != nil {
		return nil, err
	}
	logger.Info("starting notebook run", "run_id", runID, "notebooks", len(refs), "output_dir", outputDir, "engine", s.engine.Name())

	harness := NewHarness(s.engine, HarnessOptions{
		Kernel:    s.cfg.Kernel,
		Publisher: s.publisher,
		RunID:     runID,
	})

	results, ran := s.runAll(ctx, harness, refs, outputDir)

	sr := aggregate(results, ran, startTime)
	sr.RunID = runID
	sr.RunName = runName
	sr.NotebooksDir = s.cfg.NotebooksDir
	sr.OutputDir = outputDir

	if err := writeResult(outputDir, sr); err != nil {
		logger.Warn("writing suite result failed", "error", err)
	}

	return sr, nil
}

// writeResult saves sr as the run's result file.
func writeResult(outputDir string, sr *models.SuiteResult) error {
	data, err := json.MarshalIndent(sr, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding suite result: %w", err)
	}
	return os.WriteFile(filepath.Join(outputDir, ResultFile), data, 0644)
}

// runAll executes refs with at most cfg.Concurrency notebooks in flight.
// ran[i] is false for notebooks skipped after ctx was cancelled.
func (s *Suite) runAll(ctx context.Context, h *Harness, refs []models.NotebookRef, outputDir string) ([]models.ExecutionResult, []bool) {
	results := make([]models.ExecutionResult, len(refs))
	ran := make([]bool, len(refs))

	limit := s.cfg.Concurrency
	if limit <= 0 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, nb := range refs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = h.Run(ctx, nb, outputDir, WorkDir(nb))
			ran[i] = true
			return nil
		})
	}
	g.Wait()

	return results, ran
}

// prepareOutputDir creates a fresh directory for this run's artifacts.
func (s *Suite) prepareOutputDir() (string, string, error) {
	if s.cfg.OutputsDir == "" {
		dir, err := os.MkdirTemp("", "nbsmoke-*")
		if err != nil {
			return "", "", fmt.Errorf("creating output directory: %w", err)
		}
		return dir, filepath.Base(dir), nil
	}

	runName := time.Now().Format("2006-01-02__15-04-05")
	if s.cfg.RunName != nil && *s.cfg.RunName != "" {
		runName = *s.cfg.RunName
	}
	dir := filepath.Join(s.cfg.OutputsDir, runName)

	if _, err := os.Stat(dir); err == nil {
		return "", "", fmt.Errorf("output directory already exists: %s (will not overwrite existing results)", dir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", "", fmt.Errorf("checking output directory: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("creating output directory: %w", err)
	}
	return dir, runName, nil
}

func aggregate(results []models.ExecutionResult, ran []bool, startTime time.Time) *models.SuiteResult {
	sr := &models.SuiteResult{
		StartedAt: startTime,
		EndedAt:   time.Now(),
		Results:   make([]models.ExecutionResult, 0, len(results)),
	}
	sr.TotalDurationSec = sr.EndedAt.Sub(sr.StartedAt).Seconds()

	for i, r := range results {
		if !ran[i] {
			sr.Cancelled = true
			continue
		}
		sr.Total++
		if r.Succeeded() {
			sr.Succeeded++
		} else {
			sr.Failed++
		}
		sr.Results = append(sr.Results, r)
	}

	return sr
}

// NewEngine creates the engine selected by cfg.
func NewEngine(cfg models.EngineConfig) (engine.Engine, error) {
	switch cfg.Type {
	case "", "papermill":
		return papermill.New(cfg.PapermillBin), nil
	case "docker":
		e, err := docker.New(docker.Options{
			Image:        cfg.Image,
			CPUs:         cfg.CPUs,
			Memory:       cfg.Memory,
			PapermillBin: cfg.PapermillBin,
		})
		if err != nil {
			return nil, fmt.Errorf("creating docker engine: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported engine type: %s", cfg.Type)
	}
}

// NewSuiteFromConfig wires the engine and optional publisher described by
// cfg into a Suite.
func NewSuiteFromConfig(ctx context.Context, cfg models.ProjectConfig) (*Suite, error) {
	e, err := NewEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}

	suite := NewSuite(cfg, e)

	if cfg.Artifacts != nil {
		pub, err := artifacts.NewS3Publisher(*cfg.Artifacts)
		if err != nil {
			return nil, fmt.Errorf("creating artifact publisher: %w", err)
		}
		if err := pub.CheckBucket(ctx); err != nil {
			return nil, err
		}
		suite.WithPublisher(pub)
	}

	return suite, nil
}

// RunFromConfig builds a suite from cfg and runs it.
func RunFromConfig(ctx context.Context, cfg models.ProjectConfig) (*models.SuiteResult, error) {
	suite, err := NewSuiteFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating suite: %w", err)
	}
	return suite.Run(ctx)
}
