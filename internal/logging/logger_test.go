package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogging_DisabledIsNoOp(t *testing.T) {
	defer CloseAll()
	if err := Initialize(Options{DebugMode: false}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// Must not panic or create files.
	Deploy("this goes nowhere")
	Get(CategoryMaterialize).Error("neither does this")
}

func TestLogging_WritesCategoryFiles(t *testing.T) {
	defer CloseAll()
	dir := t.TempDir()
	if err := Initialize(Options{DebugMode: true, Dir: dir, Level: "debug"}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	Deploy("deployment state: %s", "current-active")
	CloseAll()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read log dir: %v", err)
	}

	var found bool
	for _, e := range entries {
		if strings.Contains(e.Name(), string(CategoryDeploy)) {
			found = true
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				t.Fatalf("read log file: %v", err)
			}
			if !strings.Contains(string(data), "deployment state: current-active") {
				t.Errorf("log content mismatch: %q", data)
			}
		}
	}
	if !found {
		t.Error("no deploy category log file written")
	}
}

func TestLogging_CategoryFilter(t *testing.T) {
	defer CloseAll()
	dir := t.TempDir()
	err := Initialize(Options{
		DebugMode:  true,
		Dir:        dir,
		Categories: map[string]bool{string(CategoryNotify): false},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if IsCategoryEnabled(CategoryNotify) {
		t.Error("notify category should be disabled")
	}
	if !IsCategoryEnabled(CategoryDeploy) {
		t.Error("unlisted category should default to enabled")
	}
}
