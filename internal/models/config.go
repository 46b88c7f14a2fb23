package models

// ProjectConfig represents the parsed nbsmoke.yaml configuration.
type ProjectConfig struct {
	NotebooksDir string          `yaml:"notebooks_dir" json:"notebooks_dir"`
	Recursive    bool            `yaml:"recursive" json:"recursive"`
	OutputsDir   string          `yaml:"outputs_dir,omitempty" json:"outputs_dir,omitempty"`
	RunName      *string         `yaml:"run_name,omitempty" json:"run_name,omitempty"`
	Kernel       string          `yaml:"kernel" json:"kernel"`
	Concurrency  int             `yaml:"concurrency" json:"concurrency"`
	LogLevel     string          `yaml:"log_level,omitempty" json:"log_level,omitempty"`
	Engine       EngineConfig    `yaml:"engine" json:"engine"`
	Artifacts    *ArtifactConfig `yaml:"artifacts,omitempty" json:"artifacts,omitempty"`
}

// EngineConfig selects and configures the notebook execution backend.
type EngineConfig struct {
	Type         string `yaml:"type" json:"type"` // "papermill" or "docker"
	PapermillBin string `yaml:"papermill_bin,omitempty" json:"papermill_bin,omitempty"`
	Image        string `yaml:"image,omitempty" json:"image,omitempty"`
	CPUs         string `yaml:"cpus,omitempty" json:"cpus,omitempty"`
	Memory       string `yaml:"memory,omitempty" json:"memory,omitempty"`
}

// ArtifactConfig points at an S3-compatible bucket that receives executed
// notebooks. Credentials are read from the named environment variables.
type ArtifactConfig struct {
	Endpoint     string `yaml:"endpoint" json:"endpoint"`
	Bucket       string `yaml:"bucket" json:"bucket"`
	Prefix       string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Region       string `yaml:"region,omitempty" json:"region,omitempty"`
	UseSSL       bool   `yaml:"use_ssl" json:"use_ssl"`
	AccessKeyEnv string `yaml:"access_key_env,omitempty" json:"access_key_env,omitempty"`
	SecretKeyEnv string `yaml:"secret_key_env,omitempty" json:"secret_key_env,omitempty"`
}

// Column names a hosted-execution column in the README table.
type Column string

const (
	ColumnColab  Column = "colab"
	ColumnBinder Column = "binder"
)

// ReadmeConfig represents the parsed readme.toml configuration.
type ReadmeConfig struct {
	Owner         string      `toml:"owner"`
	Repo          string      `toml:"repo"`
	Branch        string      `toml:"branch"`         // default: "main"
	NotebooksPath string      `toml:"notebooks_path"` // link prefix, default: the notebooks dir
	Output        string      `toml:"output"`         // default: "README.md"
	Template      string      `toml:"template,omitempty"`
	Title         string      `toml:"title,omitempty"`
	Description   string      `toml:"description,omitempty"`
	Columns       []Column    `toml:"columns"`
	Hosts         HostsConfig `toml:"hosts"`
}

// HostsConfig holds the hostnames of the hosted notebook services.
type HostsConfig struct {
	Colab  string `toml:"colab"`  // default: "colab.research.google.com"
	Binder string `toml:"binder"` // default: "mybinder.org"
}
