package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shardctl/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	expected := []string{"sync", "materialize", "generate", "watch", "status"}
	for _, name := range expected {
		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestStatus_ReportsState(t *testing.T) {
	tmpDir := t.TempDir()
	triggerFile := filepath.Join(tmpDir, "zulip.conf")
	if err := os.WriteFile(triggerFile, []byte("[machine]\n"), 0o644); err != nil {
		t.Fatalf("write trigger file: %v", err)
	}

	old := cfg
	defer func() { cfg = old }()
	cfg = config.DefaultConfig()
	cfg.Deploy.RootsDir = filepath.Join(tmpDir, "deployments")
	cfg.Deploy.TriggerFile = triggerFile
	cfg.Deploy.StateFile = filepath.Join(tmpDir, "state.json")
	cfg.Artifacts.ProxyVariable.Path = filepath.Join(tmpDir, "nginx_sharding.conf")
	cfg.Artifacts.ShardMap.Path = filepath.Join(tmpDir, "sharding.json")

	var out bytes.Buffer
	statusCmd.SetOut(&out)
	if err := runStatus(statusCmd, nil); err != nil {
		t.Fatalf("status failed: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "no-deployment") {
		t.Errorf("expected no-deployment state, got:\n%s", got)
	}
	if !strings.Contains(got, "Last evaluation: never") {
		t.Errorf("expected never-evaluated report, got:\n%s", got)
	}
	if !strings.Contains(got, "sync pending") {
		t.Errorf("expected pending trigger report, got:\n%s", got)
	}
}
