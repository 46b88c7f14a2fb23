// Command nbsmoke smoke-tests a repository's notebooks and generates its
// notebook index README.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spachava753/nbsmoke/internal/config"
	"github.com/spachava753/nbsmoke/internal/ctxlog"
	"github.com/spachava753/nbsmoke/internal/executor"
	"github.com/spachava753/nbsmoke/internal/models"
	"github.com/spachava753/nbsmoke/internal/readme"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "test":
		err = testMain(args)
	case "readme":
		err = readmeMain(args)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "nbsmoke: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error(cmd+" failed", "error", err, "error_type", errorType(err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: nbsmoke <command> [flags]

Commands:
  test        Execute every notebook and fail if any cell raises
  readme      Regenerate the notebook index README
  version     Print the version
  help        Show this help

Use "nbsmoke <command> -h" for command-specific flags.`)
}

// --- test ---

func testMain(args []string) error {
	fs := flag.NewFlagSet("test", flag.ExitOnError)
	configPath := fs.String("config", config.ProjectConfigFile, "project config file")
	dir := fs.String("dir", "", "override notebooks_dir")
	out := fs.String("out", "", "override outputs_dir")
	kernel := fs.String("kernel", "", "override kernel")
	concurrency := fs.Int("concurrency", 0, "override concurrency")
	jsonFlag := fs.Bool("json", false, "print the suite result as JSON")
	_ = fs.Parse(args)

	cfg, err := config.LoadProjectConfigOrDefault(*configPath)
	if err != nil {
		return err
	}
	if *dir != "" {
		cfg.NotebooksDir = *dir
	}
	if *out != "" {
		cfg.OutputsDir = *out
	}
	if *kernel != "" {
		cfg.Kernel = *kernel
	}
	if *concurrency > 0 {
		cfg.Concurrency = *concurrency
	}

	logger := newLogger(cfg.LogLevel)
	ctx, cancel := signalContext(logger)
	defer cancel()

	result, err := executor.RunFromConfig(ctx, cfg)
	if err != nil {
		return err
	}

	if *jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		fmt.Print(formatSummary(result))
	}

	if result.Failed > 0 || result.Cancelled {
		os.Exit(1)
	}
	return nil
}

func formatSummary(result *models.SuiteResult) string {
	var b []byte
	w := func(format string, args ...any) {
		b = fmt.Appendf(b, format, args...)
	}

	switch {
	case result.Cancelled:
		w("\nINTERRUPTED\n\n")
	case result.Failed > 0:
		w("\nFAIL\n\n")
	default:
		w("\nok\n\n")
	}

	for _, r := range result.Results {
		status := "ok"
		if !r.Succeeded() {
			status = "FAIL"
		}
		w("  %-40s %-5s %.2fs\n", r.Notebook.RelPath, status, r.DurationSec)
	}
	w("\n")

	if failures := result.Failures(); len(failures) > 0 {
		w("Failed notebooks:\n")
		for _, r := range failures {
			msg := string(r.Status)
			if r.Error != nil {
				msg = r.Error.Message
			}
			w("  %s: %s\n", r.Notebook.Name, msg)
		}
		w("\n")
	}

	w("Run: %s\n", result.RunID)
	w("Total: %d  Succeeded: %d  Failed: %d\n", result.Total, result.Succeeded, result.Failed)
	w("Duration: %.2fs\n", result.TotalDurationSec)
	w("Outputs: %s\n", result.OutputDir)

	return string(b)
}

// --- readme ---

func readmeMain(args []string) error {
	fs := flag.NewFlagSet("readme", flag.ExitOnError)
	root := fs.String("root", ".", "repository root holding readme.toml and nbsmoke.yaml")
	dir := fs.String("dir", "", "notebooks directory relative to root (default: notebooks_dir from nbsmoke.yaml)")
	output := fs.String("o", "", "output file relative to root")
	template := fs.String("template", "", "template file relative to root")
	owner := fs.String("owner", "", "repository owner")
	repo := fs.String("repo", "", "repository name")
	branch := fs.String("branch", "", "branch the links point at")
	columns := fs.String("columns", "", "comma separated columns: colab,binder")
	_ = fs.Parse(args)

	project, err := config.LoadProjectConfigOrDefault(filepath.Join(*root, config.ProjectConfigFile))
	if err != nil {
		return err
	}
	cfg, err := config.LoadReadmeConfig(os.DirFS(*root))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Flags override readme.toml
	if *output != "" {
		cfg.Output = *output
	}
	if *template != "" {
		cfg.Template = *template
	}
	if *owner != "" {
		cfg.Owner = *owner
	}
	if *repo != "" {
		cfg.Repo = *repo
	}
	if *branch != "" {
		cfg.Branch = *branch
	}
	if *columns != "" {
		cols, err := config.ParseColumns(*columns)
		if err != nil {
			return fmt.Errorf("parsing -columns: %w", err)
		}
		cfg.Columns = cols
	}
	if err := config.ValidateReadmeConfig(cfg); err != nil {
		return err
	}

	notebooksDir := project.NotebooksDir
	if *dir != "" {
		notebooksDir = *dir
	}

	logger := newLogger(project.LogLevel)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	g := readme.Generator{
		Root:         *root,
		NotebooksDir: notebooksDir,
		Recursive:    project.Recursive,
		Config:       cfg,
	}
	dest, err := g.Generate(ctx)
	if err != nil {
		return err
	}
	fmt.Println(dest)
	return nil
}

// --- shared ---

func newLogger(level string) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ctxlog.ParseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context carrying logger that is cancelled on the
// first interrupt.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctxlog.WithLogger(context.Background(), logger))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("interrupt received, shutting down gracefully...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func errorType(err error) models.ErrorType {
	var writeErr *readme.WriteError
	switch {
	case errors.Is(err, models.ErrDiscoveryEmpty):
		return models.ErrDiscoveryEmptyType
	case errors.As(err, &writeErr):
		return writeErr.Type()
	default:
		return ""
	}
}
