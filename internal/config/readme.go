package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/spachava753/nbsmoke/internal/models"
)

// ReadmeConfigFile is the name of the README generator configuration file.
const ReadmeConfigFile = "readme.toml"

// DefaultReadmeConfig returns a ReadmeConfig with default values.
func DefaultReadmeConfig() models.ReadmeConfig {
	return models.ReadmeConfig{
		Branch:  "main",
		Output:  "README.md",
		Columns: []models.Column{models.ColumnColab, models.ColumnBinder},
		Hosts: models.HostsConfig{
			Colab:  "colab.research.google.com",
			Binder: "mybinder.org",
		},
	}
}

// LoadReadmeConfig loads and parses a readme.toml file from the given
// filesystem. A missing file yields the defaults.
func LoadReadmeConfig(fsys fs.FS) (models.ReadmeConfig, error) {
	cfg := DefaultReadmeConfig()

	data, err := fs.ReadFile(fsys, ReadmeConfigFile)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading %s: %w", ReadmeConfigFile, err)
	}

	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", ReadmeConfigFile, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("parsing %s: unknown key %q", ReadmeConfigFile, undecoded[0].String())
	}

	// An explicit empty list is a mistake, not a request for the defaults.
	if md.IsDefined("columns") && len(cfg.Columns) == 0 {
		return cfg, fmt.Errorf("parsing %s: 'columns' must not be empty", ReadmeConfigFile)
	}

	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.Output == "" {
		cfg.Output = "README.md"
	}
	if cfg.Hosts.Colab == "" {
		cfg.Hosts.Colab = "colab.research.google.com"
	}
	if cfg.Hosts.Binder == "" {
		cfg.Hosts.Binder = "mybinder.org"
	}

	return cfg, nil
}

// ParseColumns parses a comma separated column list such as "colab,binder".
func ParseColumns(s string) ([]models.Column, error) {
	var cols []models.Column
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		cols = append(cols, models.Column(part))
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns in %q", s)
	}
	return cols, ValidateColumns(cols)
}

// ValidateColumns rejects unknown or repeated columns.
func ValidateColumns(cols []models.Column) error {
	seen := make(map[models.Column]bool, len(cols))
	for _, c := range cols {
		switch c {
		case models.ColumnColab, models.ColumnBinder:
		default:
			return fmt.Errorf("unknown column %q", c)
		}
		if seen[c] {
			return fmt.Errorf("column %q listed twice", c)
		}
		seen[c] = true
	}
	return nil
}

// ValidateReadmeConfig checks that the values needed to build links are set.
func ValidateReadmeConfig(cfg models.ReadmeConfig) error {
	if cfg.Owner == "" {
		return fmt.Errorf("readme: 'owner' is required")
	}
	if cfg.Repo == "" {
		return fmt.Errorf("readme: 'repo' is required")
	}
	if cfg.Branch == "" {
		return fmt.Errorf("readme: 'branch' is required")
	}
	if cfg.NotebooksPath != "" && path.IsAbs(cfg.NotebooksPath) {
		return fmt.Errorf("readme: notebooks_path must be relative, got %q", cfg.NotebooksPath)
	}
	return ValidateColumns(cfg.Columns)
}
