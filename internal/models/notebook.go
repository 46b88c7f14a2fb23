package models

import (
	"path"
	"strings"
)

// CheckpointDir is the directory name Jupyter uses for auto-saved copies.
const CheckpointDir = ".ipynb_checkpoints"

// NotebookExt is the file extension of a notebook document.
const NotebookExt = ".ipynb"

// NotebookRef identifies one discovered notebook.
type NotebookRef struct {
	Name    string `json:"name"`     // base name, e.g. "x.ipynb"
	RelPath string `json:"rel_path"` // slash separated, relative to the notebooks dir
	Path    string `json:"path"`     // filesystem path
}

// Stem returns the notebook name without its extension.
func (n NotebookRef) Stem() string {
	return strings.TrimSuffix(n.Name, path.Ext(n.Name))
}

// FlatName returns RelPath with directory separators replaced so it can be
// used as a single file name.
func (n NotebookRef) FlatName() string {
	if n.RelPath == "" {
		return n.Name
	}
	return strings.ReplaceAll(n.RelPath, "/", "__")
}
