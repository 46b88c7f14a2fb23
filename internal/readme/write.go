package readme

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spachava753/nbsmoke/internal/ctxlog"
	"github.com/spachava753/nbsmoke/internal/discovery"
	"github.com/spachava753/nbsmoke/internal/models"
)

// WriteError reports that the README could not be written. The destination
// is left untouched when it occurs.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Type returns the error category reported to users.
func (e *WriteError) Type() models.ErrorType { return models.ErrRenderWriteType }

// Write replaces the file at dest with content. The content goes to a
// temporary file in the same directory first and is renamed into place, so
// dest holds either the old document or the complete new one.
func Write(dest, content string) error {
	dir := filepath.Dir(dest)

	tmp, err := os.CreateTemp(dir, ".readme-*.tmp")
	if err != nil {
		return &WriteError{Path: dest, Err: err}
	}
	tmpPath := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return &WriteError{Path: dest, Err: err}
	}

	if _, err := tmp.WriteString(content); err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: dest, Err: err}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return &WriteError{Path: dest, Err: err}
	}
	return nil
}

// Generator discovers the notebooks of a repository checkout and writes its
// README.
type Generator struct {
	// Root is the repository checkout. Config paths are relative to it.
	Root string
	// NotebooksDir is the notebooks directory relative to Root.
	NotebooksDir string
	Recursive    bool
	Config       models.ReadmeConfig
}

// Generate renders the README and writes it to Config.Output under Root,
// returning the path written.
func (g Generator) Generate(ctx context.Context) (string, error) {
	logger := ctxlog.FromContext(ctx)

	cfg := g.Config
	if cfg.NotebooksPath == "" {
		cfg.NotebooksPath = path.Clean(filepath.ToSlash(g.NotebooksDir))
	}

	refs, err := discovery.NewLoader(g.Recursive).Discover(ctx, filepath.Join(g.Root, g.NotebooksDir))
	if err != nil {
		return "", fmt.Errorf("discovering notebooks: %w", err)
	}

	var template string
	if cfg.Template != "" {
		data, err := os.ReadFile(filepath.Join(g.Root, cfg.Template))
		if err != nil {
			return "", fmt.Errorf("reading template: %w", err)
		}
		template = string(data)
	}

	dest := filepath.Join(g.Root, cfg.Output)
	if err := Write(dest, Render(refs, OptionsFromConfig(cfg, template))); err != nil {
		return "", err
	}

	logger.Info("wrote README", "path", dest, "notebooks", len(refs))
	return dest, nil
}
