package docker

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/spachava753/nbsmoke/internal/engine"
)

func TestNew(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("expected error without image")
	}
	if _, err := New(Options{Image: "img", Memory: "lots"}); err == nil {
		t.Error("expected error for bad memory")
	}

	e, err := New(Options{Image: "img", Memory: "2G"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.memoryMB != 2048 {
		t.Errorf("expected 2048 MiB, got %d", e.memoryMB)
	}
	if e.opts.DockerBin != "docker" || e.opts.PapermillBin != "papermill" {
		t.Errorf("expected default binaries, got %+v", e.opts)
	}
}

func TestArgs(t *testing.T) {
	root := t.TempDir()
	nbDir := filepath.Join(root, "notebooks")
	outDir := filepath.Join(root, "out")

	e, err := New(Options{Image: "jupyter/scipy-notebook", CPUs: "2", Memory: "512M"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := e.Args(engine.Request{
		InputPath:  filepath.Join(nbDir, "sub", "x.ipynb"),
		OutputPath: filepath.Join(outDir, "output_sub__x.ipynb"),
		Kernel:     "python3",
		WorkDir:    nbDir,
		LogOutput:  true,
	}, "nbsmoke-test")
	if err != nil {
		t.Fatalf("Args: %v", err)
	}

	want := []string{
		"run", "--rm",
		"--name", "nbsmoke-test",
		"-v", nbDir + ":/work",
		"-v", outDir + ":/out",
		"-w", "/work",
		"--cpus", "2",
		"--memory", "512m",
		"jupyter/scipy-notebook", "papermill",
		"/work/sub/x.ipynb", "/out/output_sub__x.ipynb",
		"--kernel", "python3",
		"--cwd", "/work",
		"--log-output", "--no-progress-bar",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Args mismatch (-want +got):\n%s", diff)
	}
}

func TestArgsRejectsNotebookOutsideWorkDir(t *testing.T) {
	root := t.TempDir()
	e, err := New(Options{Image: "img"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = e.Args(engine.Request{
		InputPath:  filepath.Join(root, "elsewhere", "x.ipynb"),
		OutputPath: filepath.Join(root, "out", "output_x.ipynb"),
		WorkDir:    filepath.Join(root, "notebooks"),
	}, "nbsmoke-test")
	if err == nil {
		t.Error("expected error for notebook outside working directory")
	}
}

func TestExecuteKillsContainerOnCancel(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake docker client is a shell script")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	root := t.TempDir()
	killLog := filepath.Join(root, "kills.log")
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = kill ]; then echo \"$2\" >> " + killLog + "; exit 0; fi\n" +
		"exec sleep 5\n"
	dockerBin := filepath.Join(root, "docker")
	if err := os.WriteFile(dockerBin, []byte(script), 0755); err != nil {
		t.Fatalf("writing fake docker: %v", err)
	}

	e, err := New(Options{Image: "img", DockerBin: dockerBin})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	err = e.Execute(ctx, engine.Request{
		InputPath:  filepath.Join(root, "notebooks", "x.ipynb"),
		OutputPath: filepath.Join(root, "out", "output_x.ipynb"),
		WorkDir:    filepath.Join(root, "notebooks"),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("Execute took %s after cancel", elapsed)
	}

	data, err := os.ReadFile(killLog)
	if err != nil {
		t.Fatalf("expected docker kill to run: %v", err)
	}
	if name := strings.TrimSpace(string(data)); !strings.HasPrefix(name, "nbsmoke-") {
		t.Errorf("killed container %q, want an nbsmoke- name", name)
	}
}
