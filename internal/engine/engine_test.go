package engine_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/spachava753/nbsmoke/internal/engine"
	"github.com/spachava753/nbsmoke/internal/models"
)

const failedNotebook = `{
 "cells": [
  {"cell_type": "markdown", "source": ["# Title"], "metadata": {}},
  {"cell_type": "code", "execution_count": 1, "source": ["x = 1"], "outputs": [
   {"output_type": "stream", "name": "stdout", "text": ["ok\n"]}
  ]},
  {"cell_type": "code", "execution_count": 2, "source": ["raise ValueError('boom')"], "outputs": [
   {"output_type": "error", "ename": "ValueError", "evalue": "boom",
    "traceback": ["\u001b[0;31mValueError\u001b[0m: boom"]}
  ]}
 ],
 "metadata": {},
 "nbformat": 4,
 "nbformat_minor": 5
}`

func TestPapermillArgs(t *testing.T) {
	tests := []struct {
		name string
		req  engine.Request
		want []string
	}{
		{
			name: "smoke run",
			req: engine.Request{
				Kernel:    "python3",
				LogOutput: true,
			},
			want: []string{"in.ipynb", "out.ipynb", "--kernel", "python3", "--cwd", "/nb", "--log-output", "--no-progress-bar"},
		},
		{
			name: "empty parameter set and progress bar",
			req: engine.Request{
				Parameters:  map[string]any{},
				ProgressBar: true,
			},
			want: []string{"in.ipynb", "out.ipynb", "--cwd", "/nb", "--no-log-output", "--progress-bar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.PapermillArgs(tt.req, "in.ipynb", "out.ipynb", "/nb")
			if err != nil {
				t.Fatalf("PapermillArgs: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("PapermillArgs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPapermillArgsRejectsParameters(t *testing.T) {
	req := engine.Request{Kernel: "python3", Parameters: map[string]any{"sample_size": 10}}
	if args, err := engine.PapermillArgs(req, "in.ipynb", "out.ipynb", "/nb"); err == nil {
		t.Errorf("expected error for injected parameters, got args %v", args)
	}
}

func TestReadCellFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output_x.ipynb")
	if err := os.WriteFile(path, []byte(failedNotebook), 0644); err != nil {
		t.Fatalf("writing notebook: %v", err)
	}

	failure, err := engine.ReadCellFailure(path)
	if err != nil {
		t.Fatalf("ReadCellFailure: %v", err)
	}
	if failure == nil {
		t.Fatal("expected a cell failure")
	}

	count := 2
	want := &models.CellFailure{
		Index:          2,
		ExecutionCount: &count,
		Ename:          "ValueError",
		Evalue:         "boom",
		Traceback:      []string{"ValueError: boom"},
	}
	if diff := cmp.Diff(want, failure); diff != "" {
		t.Errorf("ReadCellFailure mismatch (-want +got):\n%s", diff)
	}
}

func TestReadCellFailureCleanNotebook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output_ok.ipynb")
	if err := os.WriteFile(path, []byte(`{"cells": [{"cell_type": "code", "outputs": []}]}`), 0644); err != nil {
		t.Fatalf("writing notebook: %v", err)
	}

	failure, err := engine.ReadCellFailure(path)
	if err != nil {
		t.Fatalf("ReadCellFailure: %v", err)
	}
	if failure != nil {
		t.Errorf("expected no failure, got %+v", failure)
	}
}

func TestReadCellFailureMissingFile(t *testing.T) {
	if _, err := engine.ReadCellFailure(filepath.Join(t.TempDir(), "nope.ipynb")); err == nil {
		t.Error("expected error for missing notebook")
	}
}

func exitError(t *testing.T, code string) error {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	err := exec.Command("sh", "-c", "exit "+code).Run()
	if err == nil {
		t.Fatal("expected exit error")
	}
	return err
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	failedPath := filepath.Join(dir, "failed.ipynb")
	if err := os.WriteFile(failedPath, []byte(failedNotebook), 0644); err != nil {
		t.Fatalf("writing notebook: %v", err)
	}
	missingPath := filepath.Join(dir, "missing.ipynb")

	t.Run("success", func(t *testing.T) {
		if err := engine.Classify(ctx, nil, missingPath, ""); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("cell error from output notebook", func(t *testing.T) {
		err := engine.Classify(ctx, exitError(t, "1"), failedPath, "")
		var cellErr *engine.CellError
		if !errors.As(err, &cellErr) {
			t.Fatalf("expected CellError, got %v", err)
		}
		if cellErr.Failure == nil || cellErr.Failure.Ename != "ValueError" {
			t.Errorf("expected ValueError failure, got %+v", cellErr.Failure)
		}
		if !strings.Contains(err.Error(), "ValueError: boom") {
			t.Errorf("expected error text in message, got %q", err.Error())
		}
	})

	t.Run("cell error from stderr marker", func(t *testing.T) {
		diag := "Executing: 50%\npapermill.exceptions.PapermillExecutionError: \nKeyError: 'x'"
		err := engine.Classify(ctx, exitError(t, "1"), missingPath, diag)
		var cellErr *engine.CellError
		if !errors.As(err, &cellErr) {
			t.Fatalf("expected CellError, got %v", err)
		}
		if !strings.Contains(err.Error(), "KeyError") {
			t.Errorf("expected detail in message, got %q", err.Error())
		}
	})

	t.Run("unexpected exit", func(t *testing.T) {
		err := engine.Classify(ctx, exitError(t, "2"), missingPath, "No such kernel named python3")
		var cellErr *engine.CellError
		if errors.As(err, &cellErr) {
			t.Fatalf("expected plain error, got CellError %v", err)
		}
		if !strings.Contains(err.Error(), "code 2") || !strings.Contains(err.Error(), "No such kernel") {
			t.Errorf("expected exit code and diagnostics, got %q", err.Error())
		}
	})

	t.Run("launch failure", func(t *testing.T) {
		err := engine.Classify(ctx, exec.ErrNotFound, missingPath, "")
		if !errors.Is(err, exec.ErrNotFound) {
			t.Errorf("expected wrapped ErrNotFound, got %v", err)
		}
	})

	t.Run("interrupted", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := engine.Classify(cancelled, exitError(t, "1"), failedPath, "")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestCellErrorMessage(t *testing.T) {
	count := 4
	tests := []struct {
		name string
		err  *engine.CellError
		want string
	}{
		{
			name: "full failure",
			err:  &engine.CellError{Failure: &models.CellFailure{Index: 3, ExecutionCount: &count, Ename: "ZeroDivisionError", Evalue: "division by zero"}},
			want: "cell 3 (In [4]) raised ZeroDivisionError: division by zero",
		},
		{
			name: "no execution count or value",
			err:  &engine.CellError{Failure: &models.CellFailure{Index: 1, Ename: "KeyboardInterrupt"}},
			want: "cell 1 raised KeyboardInterrupt",
		},
		{
			name: "detail only",
			err:  &engine.CellError{Detail: "KeyError: 'x'"},
			want: "cell execution error: KeyError: 'x'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLastLines(t *testing.T) {
	if got := engine.LastLines("a\nb\nc\n", 2); got != "b\nc" {
		t.Errorf("LastLines = %q, want %q", got, "b\nc")
	}
	if got := engine.LastLines("only", 5); got != "only" {
		t.Errorf("LastLines = %q, want %q", got, "only")
	}
}

func TestTailBuffer(t *testing.T) {
	buf := engine.NewTailBuffer(5)

	buf.Write([]byte("abc"))
	buf.Write([]byte("def"))
	if got := buf.String(); got != "bcdef" {
		t.Errorf("after two writes = %q, want %q", got, "bcdef")
	}

	n, err := buf.Write([]byte("0123456789"))
	if err != nil || n != 10 {
		t.Errorf("Write = (%d, %v), want (10, nil)", n, err)
	}
	if got := buf.String(); got != "56789" {
		t.Errorf("after long write = %q, want %q", got, "56789")
	}
}
