// Package config loads the YAML configuration of the mp4meta command.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "mp4meta.yaml"

// DefaultChunkSize matches the tail-shift buffer of the library.
const DefaultChunkSize = 64 << 10

// Config represents the command configuration
type Config struct {
	Defaults struct {
		LogLevel  string `yaml:"log_level"`
		NoColor   bool   `yaml:"no_color"`
		ChunkSize int    `yaml:"chunk_size"`
	} `yaml:"defaults"`

	// Metadata values applied by inject when the matching flag is not given.
	Metadata struct {
		Make     string `yaml:"make"`
		Model    string `yaml:"model"`
		Software string `yaml:"software"`
		Author   string `yaml:"author"`
		Comment  string `yaml:"comment"`
	} `yaml:"metadata"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.Defaults.LogLevel = "warn"
	c.Defaults.ChunkSize = DefaultChunkSize
	return c
}

// Load reads and validates the file at path. Fields missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// LoadOrDefault is Load, except that a missing file yields Default. An empty
// path means DefaultFile.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}
	c, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return c, err
}

// Validate checks the values that cannot be rejected by the YAML decoder.
func (c *Config) Validate() error {
	if c.Defaults.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.Defaults.ChunkSize)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the configured zerolog level. An empty level means warn.
func (c *Config) Level() (zerolog.Level, error) {
	s := strings.TrimSpace(c.Defaults.LogLevel)
	if s == "" {
		return zerolog.WarnLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, fmt.Errorf("unknown log_level %q", c.Defaults.LogLevel)
	}
	return lvl, nil
}
