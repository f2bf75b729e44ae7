package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"shardctl/internal/config"
	"shardctl/internal/runner"
)

// writeScript installs an executable script under root at relPath that
// appends its root name to markerFile and exits with the given code.
func writeScript(t *testing.T, root, relPath, markerFile string, exitCode int) {
	t.Helper()
	path := filepath.Join(root, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	script := "#!/bin/sh\necho " + filepath.Base(root) + " >> " + markerFile + "\nexit " + strconv.Itoa(exitCode) + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
}

func testDeployConfig(t *testing.T) (config.DeployConfig, string) {
	t.Helper()
	tmpDir := t.TempDir()
	return config.DeployConfig{
		RootsDir:      filepath.Join(tmpDir, "deployments"),
		CurrentName:   "current",
		NextName:      "next",
		ScriptPath:    filepath.Join("scripts", "regenerate-sharding"),
		ScriptTimeout: "30s",
	}, filepath.Join(tmpDir, "marker")
}

func readMarker(t *testing.T, marker string) string {
	t.Helper()
	data, err := os.ReadFile(marker)
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		t.Fatalf("read marker: %v", err)
	}
	return string(data)
}

func TestWatcher_CurrentOnly(t *testing.T) {
	cfg, marker := testDeployConfig(t)
	writeScript(t, cfg.CurrentRoot(), cfg.ScriptPath, marker, 0)

	w := NewWatcher(cfg, runner.New(runner.Config{}), nil)
	eval, err := w.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if eval.State != CurrentActive {
		t.Errorf("expected current-active, got %s", eval.State)
	}
	if !eval.RanCurrent || eval.RanNext {
		t.Errorf("expected only current to run, got current=%v next=%v", eval.RanCurrent, eval.RanNext)
	}
	if got := readMarker(t, marker); got != "current\n" {
		t.Errorf("expected marker %q, got %q", "current\n", got)
	}
}

func TestWatcher_BothRunsNextOnly(t *testing.T) {
	cfg, marker := testDeployConfig(t)
	writeScript(t, cfg.CurrentRoot(), cfg.ScriptPath, marker, 0)
	writeScript(t, cfg.NextRoot(), cfg.ScriptPath, marker, 0)

	w := NewWatcher(cfg, runner.New(runner.Config{}), nil)
	eval, err := w.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if eval.State != Transitioning {
		t.Errorf("expected transitioning, got %s", eval.State)
	}
	if eval.RanCurrent {
		t.Error("current script ran despite exclusivity guard")
	}
	if !eval.RanNext {
		t.Error("next script did not run")
	}
	if got := readMarker(t, marker); got != "next\n" {
		t.Errorf("expected marker %q, got %q", "next\n", got)
	}
}

func TestWatcher_NoDeployment(t *testing.T) {
	cfg, marker := testDeployConfig(t)

	w := NewWatcher(cfg, runner.New(runner.Config{}), nil)
	eval, err := w.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if eval.State != NoDeployment {
		t.Errorf("expected no-deployment, got %s", eval.State)
	}
	if got := readMarker(t, marker); got != "" {
		t.Errorf("no script should have run, marker has %q", got)
	}
}

func TestWatcher_ScriptFailure(t *testing.T) {
	cfg, marker := testDeployConfig(t)
	writeScript(t, cfg.CurrentRoot(), cfg.ScriptPath, marker, 1)

	w := NewWatcher(cfg, runner.New(runner.Config{}), nil)
	eval, err := w.Evaluate(context.Background())
	if err == nil {
		t.Fatal("expected error for failing script")
	}
	var scriptErr *ScriptError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("expected ScriptError, got %T: %v", err, err)
	}
	if scriptErr.Root != "current" {
		t.Errorf("expected root current, got %s", scriptErr.Root)
	}
	if scriptErr.ExitCode != 1 {
		t.Errorf("expected exit code 1, got %d", scriptErr.ExitCode)
	}
	if eval.RanCurrent {
		t.Error("failed run reported as success")
	}
}

// A script visible to the guard but gone at invocation time is a
// deployment-state inconsistency and must surface as a ScriptError.
func TestWatcher_ScriptVanished(t *testing.T) {
	cfg, _ := testDeployConfig(t)

	prober := fakeProber{cfg.CurrentScript(): true}
	w := NewWatcher(cfg, runner.New(runner.Config{}), vanishingProber{prober})
	_, err := w.Evaluate(context.Background())
	if err == nil {
		t.Fatal("expected error for vanished script")
	}
	var scriptErr *ScriptError
	if !errors.As(err, &scriptErr) {
		t.Fatalf("expected ScriptError, got %T: %v", err, err)
	}
}

// vanishingProber answers true exactly once per path.
type vanishingProber struct {
	seen fakeProber
}

func (v vanishingProber) Exists(path string) bool {
	if v.seen[path] {
		v.seen[path] = false
		return true
	}
	return false
}
