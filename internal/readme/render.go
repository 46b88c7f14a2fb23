// Package readme renders the notebook index README.
package readme

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/spachava753/nbsmoke/internal/models"
)

// Marker is the first line of every generated document.
const Marker = "<!-- Automatically generated README. Do not edit by hand; run `nbsmoke readme` to regenerate it. -->"

const (
	colabBadge  = "[![Open In Colab](https://colab.research.google.com/assets/colab-badge.svg)]"
	binderBadge = "[![Open In Binder](https://mybinder.org/badge_logo.svg)]"
)

// Options holds everything Render needs. Every URL in the output is a pure
// function of these fields and the notebook's relative path.
type Options struct {
	Owner  string
	Repo   string
	Branch string

	// NotebooksPath is the repository-relative directory holding the
	// notebooks, used as the link prefix.
	NotebooksPath string

	ColabHost  string
	BinderHost string
	Columns    []models.Column

	// Template is literal text placed after the marker. When empty, Title
	// and Description are rendered instead.
	Template    string
	Title       string
	Description string
}

// OptionsFromConfig builds Options from a readme.toml configuration and the
// contents of its template, if any.
func OptionsFromConfig(cfg models.ReadmeConfig, template string) Options {
	return Options{
		Owner:         cfg.Owner,
		Repo:          cfg.Repo,
		Branch:        cfg.Branch,
		NotebooksPath: cfg.NotebooksPath,
		ColabHost:     cfg.Hosts.Colab,
		BinderHost:    cfg.Hosts.Binder,
		Columns:       cfg.Columns,
		Template:      template,
		Title:         cfg.Title,
		Description:   cfg.Description,
	}
}

// Row is one line of the notebook table.
type Row struct {
	Notebook  models.NotebookRef
	RelPath   string // repository-relative, slash separated
	ColabURL  string
	BinderURL string
}

// NewRow computes the links for nb.
func NewRow(nb models.NotebookRef, opts Options) Row {
	rel := nb.RelPath
	if rel == "" {
		rel = nb.Name
	}
	if opts.NotebooksPath != "" {
		rel = path.Join(opts.NotebooksPath, rel)
	}
	return Row{
		Notebook:  nb,
		RelPath:   rel,
		ColabURL:  fmt.Sprintf("https://%s/github/%s/%s/blob/%s/%s", opts.ColabHost, opts.Owner, opts.Repo, opts.Branch, escapePath(rel)),
		BinderURL: fmt.Sprintf("https://%s/v2/gh/%s/%s/%s?filepath=%s", opts.BinderHost, opts.Owner, opts.Repo, opts.Branch, escapeQuery(rel)),
	}
}

// Render returns the README document for notebooks. The output depends only
// on its arguments, so rendering an unchanged set twice gives identical bytes.
func Render(notebooks []models.NotebookRef, opts Options) string {
	var b strings.Builder

	b.WriteString(Marker)
	b.WriteString("\n\n")

	if opts.Template != "" {
		b.WriteString(opts.Template)
		switch {
		case strings.HasSuffix(opts.Template, "\n\n"):
		case strings.HasSuffix(opts.Template, "\n"):
			b.WriteString("\n")
		default:
			b.WriteString("\n\n")
		}
	} else {
		if opts.Title != "" {
			fmt.Fprintf(&b, "# %s\n\n", opts.Title)
		}
		if opts.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(opts.Description))
		}
	}

	b.WriteString("| Notebook |")
	for _, c := range opts.Columns {
		fmt.Fprintf(&b, " %s |", columnTitle(c))
	}
	b.WriteString("\n|---|")
	for range opts.Columns {
		b.WriteString("---|")
	}
	b.WriteString("\n")

	for _, nb := range notebooks {
		row := NewRow(nb, opts)
		fmt.Fprintf(&b, "| [%s](%s) |", nb.Name, escapePath(row.RelPath))
		for _, c := range opts.Columns {
			switch c {
			case models.ColumnColab:
				fmt.Fprintf(&b, " %s(%s) |", colabBadge, row.ColabURL)
			case models.ColumnBinder:
				fmt.Fprintf(&b, " %s(%s) |", binderBadge, row.BinderURL)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

func columnTitle(c models.Column) string {
	switch c {
	case models.ColumnColab:
		return "Google Colab"
	case models.ColumnBinder:
		return "Binder"
	default:
		return string(c)
	}
}

// escapePath percent-encodes each element of a slash separated path.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// escapeQuery encodes p as a query value, leaving its slashes readable.
func escapeQuery(p string) string {
	return strings.ReplaceAll(url.QueryEscape(p), "%2F", "/")
}
