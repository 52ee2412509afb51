package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mcpcentral/mcp-time/pkg/audit"
	"github.com/mcpcentral/mcp-time/pkg/mcp"
)

// Config holds all mcp-time configuration.
type Config struct {
	Listen         string       `yaml:"listen"`
	AllowedOrigins []string     `yaml:"allowed_origins"`
	Audit          audit.Config `yaml:"audit"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:         ":8787",
		AllowedOrigins: mcp.DefaultAllowedHosts,
		Audit: audit.Config{
			Enabled:       false,
			DBPath:        "mcp-time-audit.db",
			RetentionDays: 30,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Policy builds the transport validation policy from the configured origin
// allow-list.
func (c *Config) Policy() mcp.Policy {
	return mcp.Policy{AllowedHosts: c.AllowedOrigins}
}
