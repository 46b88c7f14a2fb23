package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spachava753/nbsmoke/internal/models"
	"github.com/spachava753/nbsmoke/internal/util"
)

// ProjectConfigFile is the default name of the project configuration file.
const ProjectConfigFile = "nbsmoke.yaml"

// DefaultProjectConfig returns a ProjectConfig with default values.
func DefaultProjectConfig() models.ProjectConfig {
	return models.ProjectConfig{
		NotebooksDir: "notebooks",
		Kernel:       "python3",
		Concurrency:  1,
		LogLevel:     "info",
		Engine: models.EngineConfig{
			Type:         "papermill",
			PapermillBin: "papermill",
		},
	}
}

// LoadProjectConfig loads and parses a nbsmoke.yaml file.
func LoadProjectConfig(path string) (models.ProjectConfig, error) {
	cfg := DefaultProjectConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading project config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing project config: %w", err)
	}

	applyProjectDefaults(&cfg)

	if err := ValidateProjectConfig(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadProjectConfigOrDefault behaves like LoadProjectConfig but returns the
// defaults when the file does not exist.
func LoadProjectConfigOrDefault(path string) (models.ProjectConfig, error) {
	cfg, err := LoadProjectConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultProjectConfig(), nil
	}
	return cfg, err
}

// ValidateProjectConfig checks values that have no sensible fallback.
func ValidateProjectConfig(cfg models.ProjectConfig) error {
	switch cfg.Engine.Type {
	case "papermill":
	case "docker":
		if cfg.Engine.Image == "" {
			return fmt.Errorf("engine: docker engine requires 'image'")
		}
	default:
		return fmt.Errorf("engine: unsupported type %q", cfg.Engine.Type)
	}

	if cfg.Engine.Memory != "" {
		if _, err := util.ParseMemory(cfg.Engine.Memory); err != nil {
			return fmt.Errorf("engine: parsing memory %q: %w", cfg.Engine.Memory, err)
		}
	}

	if cfg.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", cfg.Concurrency)
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unknown level %q", cfg.LogLevel)
	}

	if a := cfg.Artifacts; a != nil {
		if a.Endpoint == "" {
			return fmt.Errorf("artifacts: 'endpoint' is required")
		}
		if strings.Contains(a.Endpoint, "://") {
			return fmt.Errorf("artifacts: endpoint must not include scheme: %q", a.Endpoint)
		}
		if a.Bucket == "" {
			return fmt.Errorf("artifacts: 'bucket' is required")
		}
	}

	return nil
}

func applyProjectDefaults(cfg *models.ProjectConfig) {
	if cfg.NotebooksDir == "" {
		cfg.NotebooksDir = "notebooks"
	}
	if cfg.Kernel == "" {
		cfg.Kernel = "python3"
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 1
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Engine.Type == "" {
		cfg.Engine.Type = "papermill"
	}
	if cfg.Engine.PapermillBin == "" {
		cfg.Engine.PapermillBin = "papermill"
	}
	if a := cfg.Artifacts; a != nil {
		if a.Region == "" {
			a.Region = "us-east-1"
		}
		if a.AccessKeyEnv == "" {
			a.AccessKeyEnv = "NBSMOKE_S3_ACCESS_KEY"
		}
		if a.SecretKeyEnv == "" {
			a.SecretKeyEnv = "NBSMOKE_S3_SECRET_KEY"
		}
	}
}
