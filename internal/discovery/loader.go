// Package discovery enumerates the notebooks in a directory.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spachava753/nbsmoke/internal/ctxlog"
	"github.com/spachava753/nbsmoke/internal/models"
)

// Loader discovers notebooks on the local filesystem.
type Loader struct {
	// Recursive descends into subdirectories when set.
	Recursive bool
}

// NewLoader creates a new notebook loader.
func NewLoader(recursive bool) *Loader {
	return &Loader{Recursive: recursive}
}

// Discover returns the notebooks in dir sorted by relative path. An existing
// directory without notebooks yields an empty slice and a nil error; a
// missing directory yields an error wrapping models.ErrNotebooksDirNotFound.
func (l *Loader) Discover(ctx context.Context, dir string) ([]models.NotebookRef, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotebooksDirNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("reading notebooks directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("notebooks path %s is not a directory", dir)
	}

	refs, err := l.DiscoverFS(os.DirFS(dir), ".")
	if err != nil {
		return nil, err
	}
	for i := range refs {
		refs[i].Path = filepath.Join(dir, filepath.FromSlash(refs[i].RelPath))
	}

	logger := ctxlog.FromContext(ctx)
	if len(refs) == 0 {
		logger.Warn("no notebooks found", "dir", dir)
	} else {
		logger.Info("discovered notebooks", "dir", dir, "count", len(refs), "notebooks", names(refs))
	}

	return refs, nil
}

// DiscoverFS walks root within fsys. Path is left as the slash-separated
// path inside fsys; Discover rewrites it to a filesystem path.
func (l *Loader) DiscoverFS(fsys fs.FS, root string) ([]models.NotebookRef, error) {
	var refs []models.NotebookRef

	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if p == root {
				return nil
			}
			if d.Name() == models.CheckpointDir || !l.Recursive {
				return fs.SkipDir
			}
			return nil
		}

		if path.Ext(d.Name()) != models.NotebookExt || isCheckpoint(p) {
			return nil
		}
		if !d.Type().IsRegular() {
			// Follow symlinks; skip anything else that is not a plain file.
			info, err := fs.Stat(fsys, p)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
		}

		rel := p
		if root != "." {
			rel = strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		}
		refs = append(refs, models.NotebookRef{
			Name:    d.Name(),
			RelPath: rel,
			Path:    p,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking notebooks directory: %w", err)
	}

	slices.SortFunc(refs, func(a, b models.NotebookRef) int {
		return strings.Compare(a.RelPath, b.RelPath)
	})

	return refs, nil
}

// isCheckpoint reports whether any element of the slash-separated path is a
// checkpoint directory.
func isCheckpoint(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if part == models.CheckpointDir {
			return true
		}
	}
	return false
}

func names(refs []models.NotebookRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.RelPath
	}
	return out
}
