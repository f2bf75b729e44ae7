package config

import (
	"fmt"
	"os"
	"strconv"
)

// ArtifactConfig describes one managed file: created once with default
// content when absent, never rewritten once present.
type ArtifactConfig struct {
	Path    string `yaml:"path"`
	Owner   string `yaml:"owner"` // empty = leave as process identity
	Group   string `yaml:"group"`
	Mode    string `yaml:"mode"` // octal string, e.g. "0640"
	Content string `yaml:"content"`
}

// FileMode parses the octal mode string.
func (a ArtifactConfig) FileMode() (os.FileMode, error) {
	mode, err := strconv.ParseUint(a.Mode, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q: %w", a.Mode, err)
	}
	return os.FileMode(mode), nil
}

// ArtifactsConfig holds the two artifacts owned by the materializer.
type ArtifactsConfig struct {
	// nginx fragment defining the upstream variable.
	ProxyVariable ArtifactConfig `yaml:"proxy_variable"`

	// JSON map of host to backend port.
	ShardMap ArtifactConfig `yaml:"shard_map"`
}

// Default artifact contents. These are wire formats consumed by nginx
// and the application server; keep them byte-exact.
const (
	DefaultProxyVariableContent = "set $tornado_server http://tornado;\n"
	DefaultShardMapContent      = "{}\n"
)

func defaultArtifactsConfig() ArtifactsConfig {
	return ArtifactsConfig{
		ProxyVariable: ArtifactConfig{
			Path:    "/etc/zulip/nginx_sharding.conf",
			Owner:   "zulip",
			Group:   "zulip",
			Mode:    "0640",
			Content: DefaultProxyVariableContent,
		},
		ShardMap: ArtifactConfig{
			Path:    "/etc/zulip/sharding.json",
			Owner:   "zulip",
			Group:   "zulip",
			Mode:    "0640",
			Content: DefaultShardMapContent,
		},
	}
}
