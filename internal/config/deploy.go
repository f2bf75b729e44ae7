package config

import (
	"path/filepath"
	"time"
)

// DeployConfig describes the deployment roots, the generation script
// and the trigger file gating re-evaluation.
type DeployConfig struct {
	// Directory containing the deployment roots.
	RootsDir string `yaml:"roots_dir"`

	// Names of the two roots under RootsDir.
	CurrentName string `yaml:"current_name"`
	NextName    string `yaml:"next_name"`

	// Relative path of the generation script under each root.
	ScriptPath string `yaml:"script_path"`

	// Configuration file whose mtime gates re-evaluation.
	TriggerFile string `yaml:"trigger_file"`

	// Where the last-seen trigger mtime is recorded.
	StateFile string `yaml:"state_file"`

	// How long a script invocation may run before it is killed,
	// as a duration string ("5m", "30s").
	ScriptTimeout string `yaml:"script_timeout"`

	// Where runner audit events are appended (JSON lines).
	// Empty disables the audit log.
	AuditLog string `yaml:"audit_log"`
}

// CurrentRoot returns the path of the active deployment root.
func (d DeployConfig) CurrentRoot() string {
	return filepath.Join(d.RootsDir, d.CurrentName)
}

// NextRoot returns the path of the staged deployment root.
func (d DeployConfig) NextRoot() string {
	return filepath.Join(d.RootsDir, d.NextName)
}

// CurrentScript returns the generation script path under the active root.
func (d DeployConfig) CurrentScript() string {
	return filepath.Join(d.CurrentRoot(), d.ScriptPath)
}

// NextScript returns the generation script path under the staged root.
func (d DeployConfig) NextScript() string {
	return filepath.Join(d.NextRoot(), d.ScriptPath)
}

// ScriptTimeoutDuration parses the script timeout, falling back to the
// default when unset or unparsable.
func (d DeployConfig) ScriptTimeoutDuration() time.Duration {
	timeout, err := time.ParseDuration(d.ScriptTimeout)
	if err != nil || timeout <= 0 {
		return 5 * time.Minute
	}
	return timeout
}

func defaultDeployConfig() DeployConfig {
	return DeployConfig{
		RootsDir:      "/home/zulip/deployments",
		CurrentName:   "current",
		NextName:      "next",
		ScriptPath:    "scripts/lib/sharding.py",
		TriggerFile:   "/etc/zulip/zulip.conf",
		StateFile:     "/var/lib/shardctl/trigger-state.json",
		ScriptTimeout: "5m",
	}
}
