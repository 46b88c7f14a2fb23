package papermill_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/spachava753/nbsmoke/internal/engine"
	"github.com/spachava753/nbsmoke/internal/engine/papermill"
)

// fakePapermill mimics the papermill CLI: notebooks containing RAISE fail in
// a cell, notebooks containing CRASH fail before any cell runs, everything
// else is copied to the output path.
const fakePapermill = `#!/bin/sh
in="$1"
out="$2"
echo "Input Notebook:  $in" >&2
if grep -q RAISE "$in"; then
  cat > "$out" <<'NB'
{"cells": [{"cell_type": "code", "execution_count": 1, "outputs": [{"output_type": "error", "ename": "RuntimeError", "evalue": "raised on purpose", "traceback": []}]}]}
NB
  echo "papermill.exceptions.PapermillExecutionError: RuntimeError: raised on purpose" >&2
  exit 1
fi
if grep -q CRASH "$in"; then
  echo "jupyter_client.kernelspec.NoSuchKernel: No such kernel named python3" >&2
  exit 1
fi
pwd > "$out.cwd"
cp "$in" "$out"
`

func setup(t *testing.T) (bin, dir string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake papermill requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir = t.TempDir()
	bin = filepath.Join(dir, "papermill")
	if err := os.WriteFile(bin, []byte(fakePapermill), 0755); err != nil {
		t.Fatalf("writing fake papermill: %v", err)
	}
	return bin, dir
}

func writeNotebook(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0644); err != nil {
		t.Fatalf("writing notebook: %v", err)
	}
	return p
}

func TestExecuteSuccess(t *testing.T) {
	bin, dir := setup(t)
	nbDir := t.TempDir()
	input := writeNotebook(t, nbDir, "ok.ipynb", `{"cells": []}`)
	output := filepath.Join(dir, "output_ok.ipynb")

	var log bytes.Buffer
	err := papermill.New(bin).Execute(context.Background(), engine.Request{
		InputPath:  input,
		OutputPath: output,
		Kernel:     "python3",
		WorkDir:    nbDir,
		LogOutput:  true,
		Log:        &log,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if _, err := os.Stat(output); err != nil {
		t.Errorf("expected output notebook: %v", err)
	}
	if !strings.Contains(log.String(), "Input Notebook:") {
		t.Errorf("expected engine output in log, got %q", log.String())
	}

	cwd, err := os.ReadFile(output + ".cwd")
	if err != nil {
		t.Fatalf("reading cwd marker: %v", err)
	}
	want, _ := filepath.EvalSymlinks(nbDir)
	got, _ := filepath.EvalSymlinks(strings.TrimSpace(string(cwd)))
	if got != want {
		t.Errorf("expected working directory %s, got %s", want, got)
	}
}

func TestExecuteCellError(t *testing.T) {
	bin, dir := setup(t)
	input := writeNotebook(t, dir, "bad.ipynb", `{"cells": [], "RAISE": true}`)

	err := papermill.New(bin).Execute(context.Background(), engine.Request{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "output_bad.ipynb"),
		WorkDir:    dir,
	})

	var cellErr *engine.CellError
	if !errors.As(err, &cellErr) {
		t.Fatalf("expected CellError, got %v", err)
	}
	if cellErr.Failure == nil || cellErr.Failure.Ename != "RuntimeError" {
		t.Errorf("expected RuntimeError failure, got %+v", cellErr.Failure)
	}
}

func TestExecuteUnexpectedError(t *testing.T) {
	bin, dir := setup(t)
	input := writeNotebook(t, dir, "crash.ipynb", `{"cells": [], "CRASH": true}`)

	err := papermill.New(bin).Execute(context.Background(), engine.Request{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "output_crash.ipynb"),
		WorkDir:    dir,
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var cellErr *engine.CellError
	if errors.As(err, &cellErr) {
		t.Fatalf("expected plain error, got CellError: %v", err)
	}
	if !strings.Contains(err.Error(), "No such kernel") {
		t.Errorf("expected diagnostics in error, got %q", err.Error())
	}
}

func TestExecuteMissingBinary(t *testing.T) {
	dir := t.TempDir()
	err := papermill.New(filepath.Join(dir, "no-such-papermill")).Execute(context.Background(), engine.Request{
		InputPath:  filepath.Join(dir, "x.ipynb"),
		OutputPath: filepath.Join(dir, "output_x.ipynb"),
		WorkDir:    dir,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "launching engine") {
		t.Errorf("expected launch error, got %q", err.Error())
	}
}

func TestName(t *testing.T) {
	if got := papermill.New("").Name(); got != "papermill" {
		t.Errorf("Name() = %q, want papermill", got)
	}
	if got := papermill.New("").Bin; got != "papermill" {
		t.Errorf("default Bin = %q, want papermill", got)
	}
}
