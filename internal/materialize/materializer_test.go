package materialize

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"shardctl/internal/config"
)

func testArtifactsConfig(t *testing.T) config.ArtifactsConfig {
	t.Helper()
	tmpDir := t.TempDir()
	return config.ArtifactsConfig{
		ProxyVariable: config.ArtifactConfig{
			Path:    filepath.Join(tmpDir, "nginx_sharding.conf"),
			Mode:    "0640",
			Content: config.DefaultProxyVariableContent,
		},
		ShardMap: config.ArtifactConfig{
			Path:    filepath.Join(tmpDir, "sharding.json"),
			Mode:    "0640",
			Content: config.DefaultShardMapContent,
		},
	}
}

func TestMaterializer_FreshHost(t *testing.T) {
	cfg := testArtifactsConfig(t)
	mat, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	created, err := mat.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := []string{cfg.ProxyVariable.Path, cfg.ShardMap.Path}
	if !reflect.DeepEqual(created, want) {
		t.Errorf("created paths mismatch: want %v, got %v", want, created)
	}

	proxyVar, err := os.ReadFile(cfg.ProxyVariable.Path)
	if err != nil {
		t.Fatalf("read proxy-variable file: %v", err)
	}
	if string(proxyVar) != "set $tornado_server http://tornado;\n" {
		t.Errorf("proxy-variable content mismatch: %q", proxyVar)
	}

	shardMap, err := os.ReadFile(cfg.ShardMap.Path)
	if err != nil {
		t.Fatalf("read shard map file: %v", err)
	}
	if string(shardMap) != "{}\n" {
		t.Errorf("shard map content mismatch: %q", shardMap)
	}
}

// The shard map default must parse as an empty mapping.
func TestMaterializer_ShardMapDefaultRoundTrips(t *testing.T) {
	var parsed map[string]int
	if err := json.Unmarshal([]byte(config.DefaultShardMapContent), &parsed); err != nil {
		t.Fatalf("default shard map does not parse: %v", err)
	}
	if len(parsed) != 0 {
		t.Errorf("default shard map should be empty, got %v", parsed)
	}
}

func TestMaterializer_SecondRunIsNoOp(t *testing.T) {
	cfg := testArtifactsConfig(t)
	mat, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := mat.Run(); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	created, err := mat.Run()
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("second run must not create anything, got %v", created)
	}
}

func TestMaterializer_ExistingCustomContentUntouched(t *testing.T) {
	cfg := testArtifactsConfig(t)

	customConf := "set $tornado_server http://tornado9800;\n"
	customMap := `{"zephyr.example.com": 9801}` + "\n"
	if err := os.WriteFile(cfg.ProxyVariable.Path, []byte(customConf), 0o640); err != nil {
		t.Fatalf("seed proxy-variable file: %v", err)
	}
	if err := os.WriteFile(cfg.ShardMap.Path, []byte(customMap), 0o640); err != nil {
		t.Fatalf("seed shard map file: %v", err)
	}

	mat, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	created, err := mat.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(created) != 0 {
		t.Errorf("run over existing artifacts must not create anything, got %v", created)
	}

	gotConf, _ := os.ReadFile(cfg.ProxyVariable.Path)
	gotMap, _ := os.ReadFile(cfg.ShardMap.Path)
	if string(gotConf) != customConf {
		t.Errorf("proxy-variable file modified: %q", gotConf)
	}
	if string(gotMap) != customMap {
		t.Errorf("shard map file modified: %q", gotMap)
	}
}

func TestMaterializer_InvalidModeRejected(t *testing.T) {
	cfg := testArtifactsConfig(t)
	cfg.ProxyVariable.Mode = "worldwritable"

	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for invalid mode")
	}
}
