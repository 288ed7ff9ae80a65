// Package config loads the optional YAML configuration file. Defaults work
// without any file present; the environment supplies the GitHub token.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// EnvGithubToken is the environment variable consulted when the sync
	// command is not given a token argument
	EnvGithubToken = "GITHUB_TOKEN"
)

// Config represents the application configuration
type Config struct {
	// DatabasePath is the SQLite store file
	DatabasePath string `yaml:"database_path"`

	// Endpoint is the GraphQL API endpoint, overridable for GitHub
	// Enterprise deployments
	Endpoint string `yaml:"endpoint"`

	// PageSize is the number of nodes requested per page
	PageSize int `yaml:"page_size"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DatabasePath: "issues.sqlite",
		Endpoint:     "https://api.github.com/graphql",
		PageSize:     50,
	}
}

// Load reads configuration from path, or from .labelfeed.yaml /
// ~/.labelfeed.yaml when path is empty. Missing default-location files are
// not an error; an explicitly named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		return cfg, nil
	}

	defaultPaths := []string{
		".labelfeed.yaml",
		filepath.Join(os.Getenv("HOME"), ".labelfeed.yaml"),
	}
	for _, p := range defaultPaths {
		if _, err := os.Stat(p); err == nil {
			if err := loadFile(p, cfg); err != nil {
				return nil, fmt.Errorf("failed to load config from %s: %w", p, err)
			}
			break
		}
	}

	return cfg, nil
}

// loadFile reads and parses one YAML config file into cfg
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// Token returns the GitHub token from the command argument or the
// environment
func Token(arg string) string {
	if arg != "" {
		return arg
	}
	return os.Getenv(EnvGithubToken)
}
