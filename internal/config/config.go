package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultExecutionModel = "gpt-5.2"
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultTimeout        = 120

	maxTimeoutSeconds    = 600
	maxRequestsPerMinute = 600
)

// Environment overrides.
const (
	EnvAPIKey         = "OPENAI_API_KEY"
	EnvBaseURL        = "OPENAI_BASE_URL"
	EnvExecutionModel = "PROMPTLY_EXECUTION_MODEL"
	EnvConfigDir      = "PROMPTLY_CONFIG_DIR"
)

type Config struct {
	Provider       string `yaml:"provider"`
	APIKey         string `yaml:"api_key,omitempty"`
	BaseURL        string `yaml:"base_url,omitempty"`
	ExecutionModel string `yaml:"execution_model"`

	// TargetModel is the last model picked in the form.
	TargetModel string `yaml:"target_model,omitempty"`

	SaveHistory       bool   `yaml:"save_history"`
	RequestsPerMinute int    `yaml:"requests_per_minute,omitempty"`
	TimeoutSeconds    int    `yaml:"timeout_seconds,omitempty"`
	ModelsFile        string `yaml:"models_file,omitempty"`

	// env remembers what ApplyEnv replaced, keyed by variable name.
	env map[string]overlay
}

type overlay struct {
	file string
	env  string
}

func DefaultConfig() *Config {
	return &Config{
		Provider:       "openai",
		ExecutionModel: DefaultExecutionModel,
		SaveHistory:    true,
		TimeoutSeconds: DefaultTimeout,
	}
}

func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return filepath.Join(home, ".config", "promptly"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataPath joins name onto the config directory.
func DataPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config file. A missing file is not an error: it returns nil, nil.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read %s", path)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "parse %s", path),
			"fix the YAML or delete the file to run setup again",
		)
	}

	return cfg, nil
}

// LoadOrDefault is Load with defaults in place of a missing file.
func LoadOrDefault() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return cfg, nil
}

func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c.withoutEnv())
	if err != nil {
		return errors.Wrap(err, "encode config")
	}

	return errors.Wrapf(os.WriteFile(path, data, 0o600), "write %s", path)
}

// ApplyEnv overlays environment variables on top of file values. Save writes
// the file values back unless the field was changed after the overlay.
func (c *Config) ApplyEnv() {
	for _, name := range []string{EnvAPIKey, EnvBaseURL, EnvExecutionModel} {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			continue
		}
		field := c.envField(name)
		if c.env == nil {
			c.env = make(map[string]overlay)
		}
		file := *field
		if prev, ok := c.env[name]; ok {
			file = prev.file
		}
		c.env[name] = overlay{file: file, env: v}
		*field = v
	}
}

func (c *Config) envField(name string) *string {
	switch name {
	case EnvAPIKey:
		return &c.APIKey
	case EnvBaseURL:
		return &c.BaseURL
	case EnvExecutionModel:
		return &c.ExecutionModel
	}
	return nil
}

// withoutEnv is the config as it should be persisted.
func (c *Config) withoutEnv() *Config {
	out := *c
	out.env = nil
	for name, o := range c.env {
		if field := out.envField(name); *field == o.env {
			*field = o.file
		}
	}
	return &out
}

func (c *Config) Validate() error {
	if GetProvider(c.Provider) == nil {
		return errors.WithHintf(
			errors.Newf("unknown provider: %s", c.Provider),
			"supported providers: %s", strings.Join(providerIDs(), ", "),
		)
	}
	if c.Provider == "custom" && c.BaseURL == "" {
		return errors.New("custom provider requires base_url")
	}
	if strings.TrimSpace(c.ExecutionModel) == "" {
		return errors.New("execution_model must not be empty")
	}
	if c.TimeoutSeconds < 0 || c.TimeoutSeconds > maxTimeoutSeconds {
		return errors.Newf("timeout_seconds must be between 0 and %d, got %d", maxTimeoutSeconds, c.TimeoutSeconds)
	}
	if c.RequestsPerMinute < 0 || c.RequestsPerMinute > maxRequestsPerMinute {
		return errors.Newf("requests_per_minute must be between 0 and %d, got %d", maxRequestsPerMinute, c.RequestsPerMinute)
	}
	return nil
}

// HasAPIKey reports whether the configured provider can be called.
func (c *Config) HasAPIKey() bool {
	p := GetProvider(c.Provider)
	if p != nil && !p.NeedsAPIKey {
		return true
	}
	return strings.TrimSpace(c.APIKey) != ""
}

func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) Endpoint() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return DefaultBaseURL
}
