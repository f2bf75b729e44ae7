package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all shardctl configuration.
type Config struct {
	// Deployment roots and trigger handling
	Deploy DeployConfig `yaml:"deploy"`

	// Managed artifacts (create-if-absent)
	Artifacts ArtifactsConfig `yaml:"artifacts"`

	// Built-in sharding generator
	Sharding ShardingConfig `yaml:"sharding"`

	// Proxy reload
	Reload ReloadConfig `yaml:"reload"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ReloadConfig configures how the proxy is told to re-read its config.
type ReloadConfig struct {
	// Command argv; first element is the binary.
	Command []string `yaml:"command"`
}

// LoggingConfig configures the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Dir        string          `yaml:"dir"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

// DefaultConfig returns the configuration matching the reference
// deployment (paths under /etc/zulip, service account zulip).
func DefaultConfig() *Config {
	return &Config{
		Deploy:    defaultDeployConfig(),
		Artifacts: defaultArtifactsConfig(),
		Sharding:  defaultShardingConfig(),
		Reload: ReloadConfig{
			Command: []string{"nginx", "-s", "reload"},
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Dir:       "/var/log/shardctl",
			Level:     "info",
		},
	}
}

// Load reads configuration from a YAML file. Missing fields are
// backfilled with defaults so partial configs stay valid.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads the config at path, or returns the defaults when
// the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Validate checks for configuration mistakes that would only surface
// mid-pipeline otherwise.
func (c *Config) Validate() error {
	if c.Deploy.RootsDir == "" {
		return fmt.Errorf("deploy.roots_dir is required")
	}
	if c.Deploy.ScriptPath == "" {
		return fmt.Errorf("deploy.script_path is required")
	}
	if c.Deploy.TriggerFile == "" {
		return fmt.Errorf("deploy.trigger_file is required")
	}
	if c.Deploy.ScriptTimeout != "" {
		if _, err := time.ParseDuration(c.Deploy.ScriptTimeout); err != nil {
			return fmt.Errorf("deploy.script_timeout: %w", err)
		}
	}
	for _, a := range []ArtifactConfig{c.Artifacts.ProxyVariable, c.Artifacts.ShardMap} {
		if a.Path == "" {
			return fmt.Errorf("artifact path is required")
		}
		if _, err := a.FileMode(); err != nil {
			return fmt.Errorf("artifact %s: %w", a.Path, err)
		}
	}
	if len(c.Reload.Command) == 0 {
		return fmt.Errorf("reload.command is required")
	}
	return nil
}

// applyDefaults fills in zero values with defaults.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Deploy.CurrentName == "" {
		c.Deploy.CurrentName = def.Deploy.CurrentName
	}
	if c.Deploy.NextName == "" {
		c.Deploy.NextName = def.Deploy.NextName
	}
	if c.Deploy.ScriptTimeout == "" {
		c.Deploy.ScriptTimeout = def.Deploy.ScriptTimeout
	}
	if c.Deploy.StateFile == "" {
		c.Deploy.StateFile = def.Deploy.StateFile
	}
	if c.Artifacts.ProxyVariable.Mode == "" {
		c.Artifacts.ProxyVariable.Mode = def.Artifacts.ProxyVariable.Mode
	}
	if c.Artifacts.ShardMap.Mode == "" {
		c.Artifacts.ShardMap.Mode = def.Artifacts.ShardMap.Mode
	}
	if c.Sharding.Section == "" {
		c.Sharding.Section = def.Sharding.Section
	}
	if c.Sharding.DefaultUpstream == "" {
		c.Sharding.DefaultUpstream = def.Sharding.DefaultUpstream
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}
