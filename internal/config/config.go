package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"

	"github.com/mcncl/jsonview/internal/errors"
)

// Config represents the complete configuration for jsonview
type Config struct {
	Render RenderConfig `yaml:"render" envPrefix:"RENDER_"`
	Server ServerConfig `yaml:"server" envPrefix:"SERVER_"`
	Worker WorkerConfig `yaml:"worker" envPrefix:"WORKER_"`
	Output OutputConfig `yaml:"output" envPrefix:"OUTPUT_"`
	Dev    DevConfig    `yaml:"dev" envPrefix:"DEV_"`
}

// RenderConfig controls the generated markup
type RenderConfig struct {
	// RootID is the id of the element wrapping the rendered document.
	RootID string `yaml:"root_id" env:"ROOT_ID"`
	// PlaceholderPrefix starts every embedded-source placeholder id. It is
	// normalised to kebab-case.
	PlaceholderPrefix string `yaml:"placeholder_prefix" env:"PLACEHOLDER_PREFIX"`
	// SubmitLabel is the caption of the submit button of action forms.
	SubmitLabel string `yaml:"submit_label" env:"SUBMIT_LABEL"`
	// PreserveNumberLiterals prints numbers exactly as written in the input
	// instead of in JavaScript's canonical form.
	PreserveNumberLiterals bool `yaml:"preserve_number_literals" env:"PRESERVE_NUMBER_LITERALS"`
}

// ServerConfig controls the HTTP transport
type ServerConfig struct {
	Host         string `yaml:"host" env:"HOST"`
	Port         int    `yaml:"port" env:"PORT"`
	ReadTimeout  int    `yaml:"read_timeout" env:"READ_TIMEOUT"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" env:"WRITE_TIMEOUT"` // seconds
	MaxBytes     int64  `yaml:"max_bytes" env:"MAX_BYTES"`
}

// WorkerConfig controls the newline-delimited message worker
type WorkerConfig struct {
	MaxMessageBytes int `yaml:"max_message_bytes" env:"MAX_MESSAGE_BYTES"`
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Pretty      bool `yaml:"pretty" env:"PRETTY"`
	LineNumbers bool `yaml:"line_numbers" env:"LINE_NUMBERS"`
}

// DevConfig contains development/debug options
type DevConfig struct {
	Debug bool `yaml:"debug" env:"DEBUG"`
}

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "JSONVIEW_"

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Render: RenderConfig{
			RootID:            "json",
			PlaceholderPrefix: "src",
			SubmitLabel:       "Send",
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  10,
			WriteTimeout: 30,
			MaxBytes:     16 << 20,
		},
		Worker: WorkerConfig{
			MaxMessageBytes: 64 << 20,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("failed to read config file '%s'", path), err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigError("failed to parse config file", err)
	}

	return cfg, nil
}

// LoadEnv applies JSONVIEW_* environment variables on top of cfg
func LoadEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.NewConfigError("failed to parse environment", err)
	}
	return nil
}

// Load resolves the configuration: defaults, then the config file (explicit
// path or the nearest discovered one), then the environment.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FindConfigFile()
	}

	cfg := NewConfig()
	if path != "" {
		fileConfig, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	if err := LoadEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".jsonview.yml", ".jsonview.yaml", "jsonview.yml", "jsonview.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Validate checks the configuration for values the renderer and transports
// cannot work with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Render.RootID) == "" {
		return errors.NewConfigError("render.root_id must not be empty", errors.ErrInvalidConfig)
	}
	if c.PlaceholderPrefix() == "" {
		return errors.NewConfigError("render.placeholder_prefix must not be empty", errors.ErrInvalidConfig)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.NewConfigError(fmt.Sprintf("server.port %d is out of range", c.Server.Port), errors.ErrInvalidConfig)
	}
	if c.Server.MaxBytes <= 0 {
		return errors.NewConfigError("server.max_bytes must be positive", errors.ErrInvalidConfig)
	}
	if c.Worker.MaxMessageBytes <= 0 {
		return errors.NewConfigError("worker.max_message_bytes must be positive", errors.ErrInvalidConfig)
	}
	return nil
}

// PlaceholderPrefix returns the kebab-cased placeholder id prefix
func (c *Config) PlaceholderPrefix() string {
	return strcase.ToKebab(strings.TrimSpace(c.Render.PlaceholderPrefix))
}

// Addr returns the host:port the HTTP server listens on
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
